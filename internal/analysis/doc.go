// Package analysis characterises recorded creature motion.
//
//   - [DominantFrequency]: strongest periodic component of a series via FFT
//   - [AnalyzeGait]: gait frequency and stride statistics of a run
//   - [Strides]: upward crossings of the root height through its mean
//   - [Divergence]: sensitivity of a creature to a small change in its
//     starting height
//
// # Gait Detection
//
// A walking creature bobs at its gait frequency:
//
//	gait := analysis.AnalyzeGait(result.Samples)
//	fmt.Printf("%.2f Hz, %.1f per stride\n", gait.Frequency, gait.StrideLength)
package analysis
