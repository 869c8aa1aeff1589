package geom

import (
	"fmt"

	"github.com/pkg/errors"
)

// GeometryError reports an empty or malformed mesh. It is fatal to the
// operation that hit it; callers recover by resetting the orientation.
type GeometryError struct {
	Op     string
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Op == "" {
		return "geometry: " + e.Reason
	}
	return fmt.Sprintf("geometry: %s: %s", e.Op, e.Reason)
}

// NewGeometryError builds a GeometryError with a formatted reason.
func NewGeometryError(op, format string, args ...interface{}) error {
	return &GeometryError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// IsGeometryError reports whether err wraps a GeometryError.
func IsGeometryError(err error) bool {
	var ge *GeometryError
	return errors.As(err, &ge)
}
