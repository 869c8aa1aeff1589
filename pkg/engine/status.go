package engine

import (
	"github.com/chazu/orienteer/pkg/buildvolume"
	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/overhang"
)

// Status is the analysis state of a session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Update is delivered to the Listener on every state transition.
type Update struct {
	// Seq is the analysis request the update belongs to. Auto-orient
	// updates carry the latest Seq at the time they complete.
	Seq         uint64
	Status      Status
	Orientation geom.Orientation
	// Result is the latest accepted overhang result, or nil before the
	// first one. A failed analysis keeps the previous result.
	Result *overhang.Result
	// Bounds is computed from Orientation; nil for an empty mesh.
	Bounds *buildvolume.Status
	// Warning is a user-facing message for error and timeout states.
	Warning string
}

// Listener receives updates. It is called without the session lock held,
// possibly from the worker or debounce goroutines.
type Listener func(Update)
