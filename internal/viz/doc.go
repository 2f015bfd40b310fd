// Package viz draws creatures in the terminal.
//
// The live view is a Bubble Tea program:
//
//   - [Model]: steps a creature and draws it on a braille [Canvas]
//   - [View]: maps world coordinates onto the canvas
//   - [Plot], [PlotRoot]: asciigraph charts of recorded runs
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	N     - Single step while paused
//	R     - Rebuild the creature
//	+/-   - Steps per frame
//	F     - Follow the root
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
