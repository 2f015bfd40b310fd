package creature

import (
	"errors"
	"fmt"
)

var (
	// ErrStructureMismatch is wrapped by every StructureError.
	ErrStructureMismatch = errors.New("creature: genome node child count does not match num_connections")

	ErrNilGenome = errors.New("creature: nil genome node")

	// ErrEngine wraps a panic raised by the physics engine.
	ErrEngine = errors.New("creature: physics engine rejected the operation")
)

// StructureError aborts a build when a genome node declares a different
// number of connections than it has children.
type StructureError struct {
	Path     string
	Declared int
	Actual   int
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: declared %d connections, found %d children", e.Path, e.Declared, e.Actual)
}

func (e *StructureError) Unwrap() error {
	return ErrStructureMismatch
}

// guard runs fn and reports an engine panic as an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEngine, r)
		}
	}()
	fn()
	return nil
}
