package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chazu/orienteer/pkg/mesh"
	"github.com/chazu/orienteer/pkg/orient"
)

// solveGrace is how long past its own budget the solver may run before
// the session stops waiting for it. The solver only checks its budget
// between samples, so a single slow sample can overrun.
const solveGrace = 2 * time.Second

var (
	// ErrSuperseded is returned when a newer auto-orient started while
	// this one was running.
	ErrSuperseded = errors.New("auto-orient superseded by newer request")
	// ErrSolveTimeout is returned when the solver overran its budget by
	// more than solveGrace.
	ErrSolveTimeout = errors.New("auto-orient did not finish")
)

// solveResult is the internal type used to pass solver results through channels.
type solveResult struct {
	res orient.Result
	err error
}

// solve runs the solver on its own goroutine, converting panics into
// errors.
func solve(ctx context.Context, m *mesh.Mesh, opts orient.Options) <-chan solveResult {
	ch := make(chan solveResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- solveResult{err: errors.Errorf("panic during auto-orient: %v", r)}
			}
		}()
		res, err := orient.AutoOrient(ctx, m, opts)
		ch <- solveResult{res: res, err: err}
	}()
	return ch
}

// waitForSolve waits for a result from ch, but gives up after limit. It
// uses a generation counter to discard results of runs that a newer one
// replaced.
//
// On timeout, the goroutine may still be running; its buffered send lets
// it exit when it eventually completes.
func waitForSolve(
	ch <-chan solveResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	limit time.Duration,
) (orient.Result, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return orient.Result{}, ErrSuperseded
		}
		return res.res, res.err

	case <-timer.C:
		return orient.Result{}, errors.Wrapf(ErrSolveTimeout, "no result after %s", limit)
	}
}
