// Package worker moves overhang analysis off the caller's goroutine.
//
// A Channel is one-shot request/response message passing: nothing crosses
// it except encoded Requests and Responses, so the worker never shares
// memory with the session that feeds it. Local is the in-process
// implementation: one goroutine per channel, started with the channel and
// stopped by Close.
package worker

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/overhang"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("worker channel closed")

// ChannelError reports a worker that is unavailable or crashed.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("worker %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// IsChannelError reports whether err wraps a ChannelError.
func IsChannelError(err error) bool {
	var ce *ChannelError
	return errors.As(err, &ce)
}

// Event is one message from the worker: a Response, or a failure of the
// channel itself.
type Event struct {
	Response *Response
	Err      error
}

// Channel is the session's view of a worker.
type Channel interface {
	// Send dispatches a request. It does not wait for the response.
	Send(req *Request) error
	// Events delivers responses and failures. It is closed after Close.
	Events() <-chan Event
	// Close stops the worker and waits for it to exit.
	Close() error
}

// Handler computes a response for a decoded request.
type Handler func(req *Request) *Response

// Analyze is the default Handler: it decodes the request's mesh and runs
// overhang detection on it.
func Analyze(req *Request) *Response {
	resp := &Response{Seq: req.Seq}

	var buf MeshBuffer
	if _, err := buf.UnmarshalMsg(req.Mesh); err != nil {
		resp.Error = errors.Wrap(err, "decode mesh").Error()
		return resp
	}

	opts := overhang.Options{
		ThresholdDeg:    req.ThresholdDeg,
		Up:              req.Up,
		Density:         req.Density,
		GroundTolerance: req.GroundTolerance,
	}
	r, err := overhang.Detect(buf.Mesh(), req.Orientation(), opts)
	if err != nil {
		resp.Error = err.Error()
		resp.Geometry = geom.IsGeometryError(err)
		return resp
	}
	resp.FaceIndices = r.FaceIndices
	resp.ProjectedArea = r.ProjectedArea
	resp.SupportVolume = r.SupportVolume
	resp.SupportWeight = r.SupportWeight
	return resp
}

// queueSize bounds requests waiting for the worker goroutine.
const queueSize = 8

// Local runs a Handler on a dedicated goroutine.
type Local struct {
	handler Handler
	log     *zap.Logger

	in     chan []byte
	events chan Event
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ Channel = (*Local)(nil)

// Option configures a Local worker.
type Option func(*Local)

// WithHandler replaces Analyze.
func WithHandler(h Handler) Option {
	return func(l *Local) { l.handler = h }
}

// WithLogger sets the worker's logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Local) { l.log = log }
}

// NewLocal starts a worker goroutine.
func NewLocal(opts ...Option) *Local {
	l := &Local{
		handler: Analyze,
		log:     zap.NewNop(),
		in:      make(chan []byte, queueSize),
		events:  make(chan Event, queueSize),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.start()
	return l
}

func (l *Local) start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(l.events)
		for msg := range l.in {
			l.events <- l.serve(msg)
		}
	}()
}

// serve decodes one request, runs the handler and round-trips the
// response through the wire format. A panic in the handler becomes a
// channel failure.
func (l *Local) serve(msg []byte) (ev Event) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("worker panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			ev = Event{Err: &ChannelError{Op: "handle", Err: errors.Errorf("panic: %v", r)}}
		}
	}()

	var req Request
	if _, err := req.UnmarshalMsg(msg); err != nil {
		return Event{Err: &ChannelError{Op: "decode request", Err: err}}
	}
	l.log.Debug("analyzing", zap.Uint64("seq", req.Seq), zap.Int("mesh_bytes", len(req.Mesh)))

	out, err := l.handler(&req).MarshalMsg(nil)
	if err != nil {
		return Event{Err: &ChannelError{Op: "encode response", Err: err}}
	}
	var resp Response
	if _, err := resp.UnmarshalMsg(out); err != nil {
		return Event{Err: &ChannelError{Op: "decode response", Err: err}}
	}
	return Event{Response: &resp}
}

// Send encodes req and queues it for the worker.
func (l *Local) Send(req *Request) error {
	msg, err := req.MarshalMsg(nil)
	if err != nil {
		return &ChannelError{Op: "encode request", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return &ChannelError{Op: "send", Err: ErrClosed}
	}
	l.in <- msg
	return nil
}

// Events implements Channel.
func (l *Local) Events() <-chan Event {
	return l.events
}

// Close stops accepting requests, lets queued ones finish and waits for
// the goroutine. Undelivered events are dropped.
func (l *Local) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.in)
	l.mu.Unlock()

	go func() {
		for range l.events {
		}
	}()
	l.wg.Wait()
	return nil
}
