// Package engine runs overhang analysis for one model session.
//
// A Session owns the live orientation of a mesh and turns a stream of
// orientation changes into analysis results. Requests are debounced so
// only the last one in a burst runs; they go to a worker channel when one
// is available and fall back to the caller's goroutine when it is not, when
// it has failed before, or when the model is too large to copy. Every
// dispatch carries a sequence number and answers to anything but the
// latest one are dropped.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chazu/orienteer/pkg/buildvolume"
	"github.com/chazu/orienteer/pkg/constraint"
	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/logger"
	"github.com/chazu/orienteer/pkg/mesh"
	"github.com/chazu/orienteer/pkg/orient"
	"github.com/chazu/orienteer/pkg/overhang"
	"github.com/chazu/orienteer/pkg/worker"
)

const (
	DefaultDebounce        = 300 * time.Millisecond
	DefaultLargeModelBytes = 50 << 20
)

// Option configures a Session.
type Option func(*Session)

// WithChannel offloads analysis to ch. The session owns ch and closes it.
func WithChannel(ch worker.Channel) Option {
	return func(s *Session) { s.ch = ch }
}

// WithListener registers the update callback.
func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

// WithLogger sets the base logger; the session names it and tags it with
// its ID.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithDebounce sets the coalescing window for RequestAnalysis.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounceWindow = d }
}

// WithLargeModelBytes sets the size at which a model is analyzed on the
// caller's goroutine instead of being copied to the worker.
func WithLargeModelBytes(n int64) Option {
	return func(s *Session) { s.largeBytes = n }
}

// WithOverhangOptions sets the detector options.
func WithOverhangOptions(o overhang.Options) Option {
	return func(s *Session) { s.overhangOpts = o }
}

// WithBuildVolume sets the volume bounds are checked against.
func WithBuildVolume(v buildvolume.Volume) Option {
	return func(s *Session) { s.volume = v }
}

// Session is the analysis state for one loaded mesh.
type Session struct {
	id             string
	log            *zap.Logger
	ch             worker.Channel
	listener       Listener
	debounceWindow time.Duration
	largeBytes     int64
	overhangOpts   overhang.Options
	volume         buildvolume.Volume
	debounced      func(func())
	wg             sync.WaitGroup

	mu          sync.Mutex
	mesh        *mesh.Mesh
	buffer      []byte // encoded mesh, recreated only by SetMesh
	large       bool
	orientation geom.Orientation
	status      Status
	result      *overhang.Result
	warning     string
	seq         uint64 // latest dispatched request
	dispatched  geom.Orientation
	pending     *geom.Orientation
	failed      bool // sticky: the channel is not used again
	closed      bool
	generation  uint64 // auto-orient runs
}

// NewSession starts a session for m.
func NewSession(m *mesh.Mesh, opts ...Option) (*Session, error) {
	if m == nil {
		return nil, errors.New("engine: nil mesh")
	}
	s := &Session{
		id:             uuid.NewString(),
		log:            logger.Log,
		debounceWindow: DefaultDebounce,
		largeBytes:     DefaultLargeModelBytes,
		overhangOpts:   overhang.DefaultOptions(),
		volume:         buildvolume.Default(),
		orientation:    geom.Identity(),
		status:         StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("engine").With(zap.String("session", s.id))
	s.debounced = debounce.New(s.debounceWindow)

	if err := s.setMesh(m); err != nil {
		return nil, err
	}

	if s.ch != nil {
		s.wg.Add(1)
		go s.receive()
	}
	s.log.Debug("session started",
		zap.String("mesh", m.Name),
		zap.Int("triangles", m.TriangleCount()),
		zap.Bool("large", s.large),
		zap.Bool("worker", s.ch != nil))
	return s, nil
}

// ID returns the session's unique ID.
func (s *Session) ID() string { return s.id }

// SetMesh replaces the session's mesh. The serialized buffer is rebuilt,
// the previous result is cleared and in-flight answers are invalidated.
func (s *Session) SetMesh(m *mesh.Mesh) error {
	if m == nil {
		return errors.New("engine: nil mesh")
	}
	return s.setMesh(m)
}

func (s *Session) setMesh(m *mesh.Mesh) error {
	buf, err := worker.Encode(m)
	if err != nil {
		return errors.Wrap(err, "encode mesh")
	}
	large := m.SourceSize >= s.largeBytes || m.ByteSize() >= s.largeBytes

	s.mu.Lock()
	s.mesh = m
	s.buffer = buf
	s.large = large
	s.result = nil
	s.pending = nil
	s.warning = ""
	s.status = StatusIdle
	s.seq++
	s.mu.Unlock()
	return nil
}

// Large reports whether the model is analyzed synchronously because of its
// size.
func (s *Session) Large() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.large
}

// Mesh returns the session's mesh.
func (s *Session) Mesh() *mesh.Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mesh
}

// Orientation returns the live orientation.
func (s *Session) Orientation() geom.Orientation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orientation
}

// Status returns the current analysis status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Result returns the latest accepted overhang result, or nil.
func (s *Session) Result() *overhang.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Warning returns the message attached to the current status.
func (s *Session) Warning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warning
}

// ChannelFailed reports whether the worker channel has been given up on.
func (s *Session) ChannelFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Bounds checks the live orientation against the build volume. It is
// recomputed on every call.
func (s *Session) Bounds() *buildvolume.Status {
	s.mu.Lock()
	m, o := s.mesh, s.orientation
	s.mu.Unlock()
	return s.volume.Check(mesh.ComputeAABB(m, o))
}

// Transform applies the plate constraints for mode to o, makes the result
// the live orientation and requests analysis for it.
func (s *Session) Transform(o geom.Orientation, mode constraint.Mode) geom.Orientation {
	m := s.Mesh()
	o = constraint.ApplyAll(m, geom.NewOrientation(o.Rotation, o.Translation), s.volume, mode)
	s.RequestAnalysis(o.Rotation, o.Translation)
	return o
}

// AlignToFace lays the face with the given object-space normal on the
// plate, re-grounds and requests analysis.
func (s *Session) AlignToFace(normal mgl64.Vec3) geom.Orientation {
	o := s.Orientation()
	q := orient.AlignToFace(normal, o.Rotation, s.overhangOpts.Up)
	return s.Transform(o.WithRotation(q), constraint.ModeRotate)
}

// RequestAnalysis records the orientation as live and schedules an
// analysis of it. Calls within the debounce window of each other collapse
// into one dispatch with the last call's arguments.
func (s *Session) RequestAnalysis(rotation mgl64.Quat, translation mgl64.Vec3) {
	o := geom.NewOrientation(rotation, translation)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.orientation = o
	s.pending = &o
	s.mu.Unlock()

	s.debounced(s.fire)
}

// Flush dispatches a pending request now instead of waiting for the
// debounce window. The timer still fires later but finds nothing to do.
func (s *Session) Flush() {
	s.fire()
}

func (s *Session) fire() {
	s.mu.Lock()
	if s.closed || s.pending == nil {
		s.mu.Unlock()
		return
	}
	o := *s.pending
	s.pending = nil
	s.seq++
	seq := s.seq
	s.dispatched = o
	s.status = StatusRunning
	s.mu.Unlock()

	s.dispatch(seq, o)
}

func (s *Session) dispatch(seq uint64, o geom.Orientation) {
	s.mu.Lock()
	if s.ch == nil || s.failed || s.large {
		s.mu.Unlock()
		s.analyzeSync(seq, o)
		return
	}
	req := &worker.Request{
		Seq:             seq,
		Mesh:            append([]byte(nil), s.buffer...),
		Rotation:        geom.QuatTuple(o.Rotation),
		Translation:     o.Translation,
		Up:              s.overhangOpts.Up,
		ThresholdDeg:    s.overhangOpts.ThresholdDeg,
		Density:         s.overhangOpts.Density,
		GroundTolerance: s.overhangOpts.GroundTolerance,
	}
	s.status = StatusRunning
	s.warning = ""
	u := s.updateLocked()
	s.mu.Unlock()

	s.notify(u)
	s.log.Debug("dispatched to worker", zap.Uint64("seq", seq))

	if err := s.ch.Send(req); err != nil {
		s.channelFailed(seq, err)
	}
}

// analyzeSync runs detection on the calling goroutine. A result for a
// request that is no longer the latest is dropped.
func (s *Session) analyzeSync(seq uint64, o geom.Orientation) {
	s.mu.Lock()
	m := s.mesh
	s.status = StatusRunning
	u := s.updateLocked()
	s.mu.Unlock()
	s.notify(u)

	r, err := overhang.Detect(m, o, s.overhangOpts)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.log.Debug("dropping superseded result", zap.Uint64("seq", seq))
		return
	}
	if err != nil {
		s.status = StatusError
		s.warning = "overhang analysis failed: " + err.Error()
		s.log.Warn("analysis failed", zap.Uint64("seq", seq), zap.Error(err))
	} else {
		s.result = &r
		s.status = StatusIdle
		s.warning = ""
	}
	u = s.updateLocked()
	s.mu.Unlock()

	s.notify(u)
}

// channelFailed marks the channel unusable for the rest of the session and
// retries the latest request synchronously. Only the first failure
// retries; later ones belong to requests sent before it.
func (s *Session) channelFailed(seq uint64, err error) {
	s.mu.Lock()
	if s.failed {
		s.mu.Unlock()
		s.log.Debug("ignoring failure on abandoned channel", zap.Uint64("seq", seq), zap.Error(err))
		return
	}
	s.failed = true
	s.status = StatusError
	s.warning = "analysis worker unavailable, analyzing in the foreground"
	latest, o := s.seq, s.dispatched
	closed := s.closed
	u := s.updateLocked()
	s.mu.Unlock()

	s.log.Warn("worker channel failed", zap.Uint64("seq", seq), zap.Error(err))
	if closed {
		return
	}
	s.notify(u)
	s.analyzeSync(latest, o)
}

// receive handles worker events until the channel closes.
func (s *Session) receive() {
	defer s.wg.Done()
	for ev := range s.ch.Events() {
		if ev.Err != nil {
			s.channelFailed(s.currentSeq(), ev.Err)
			continue
		}
		if ev.Response != nil {
			s.handleResponse(ev.Response)
		}
	}
}

func (s *Session) currentSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// handleResponse applies a worker answer. A worker fault fails the channel
// whatever request it answers; results and geometry errors only count for
// the latest request.
func (s *Session) handleResponse(resp *worker.Response) {
	if resp.Error != "" && !resp.Geometry {
		s.channelFailed(resp.Seq, &worker.ChannelError{Op: "analyze", Err: errors.New(resp.Error)})
		return
	}

	s.mu.Lock()
	if resp.Seq != s.seq {
		s.mu.Unlock()
		s.log.Debug("dropping stale worker response", zap.Uint64("seq", resp.Seq))
		return
	}

	if resp.Error != "" {
		s.status = StatusError
		s.warning = "overhang analysis failed: " + resp.Error
	} else {
		s.result = &overhang.Result{
			FaceIndices:   resp.FaceIndices,
			ProjectedArea: resp.ProjectedArea,
			SupportVolume: resp.SupportVolume,
			SupportWeight: resp.SupportWeight,
		}
		if s.result.FaceIndices == nil {
			s.result.FaceIndices = []int{}
		}
		s.status = StatusIdle
		s.warning = ""
	}
	u := s.updateLocked()
	s.mu.Unlock()

	s.notify(u)
}

// AutoOrient searches for a lower-overhang rotation and makes it live,
// re-grounded at the current X/Z position. A timed-out search still
// applies its best candidate and leaves the session in StatusTimeout. A
// mesh without geometry resets the rotation to identity, leaves the
// session in StatusError and returns the geometry error.
//
// AutoOrient does not request analysis; callers follow up with
// RequestAnalysis or Transform once they have shown the new pose.
func (s *Session) AutoOrient(ctx context.Context, opts orient.Options) (orient.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return orient.Result{}, errors.New("engine: session closed")
	}
	s.generation++
	gen := s.generation
	m := s.mesh
	s.status = StatusRunning
	s.warning = ""
	u := s.updateLocked()
	s.mu.Unlock()
	s.notify(u)

	if opts.MaxDuration <= 0 && opts.DirectionSamples == 0 {
		opts = orient.DefaultOptions(s.Large())
		opts.Up = s.overhangOpts.Up
	}
	if geom.IsDegenerate(opts.Up) {
		opts.Up = s.overhangOpts.Up
	}

	res, err := waitForSolve(solve(ctx, m, opts), gen, &s.mu, &s.generation, opts.MaxDuration+solveGrace)

	switch {
	case errors.Is(err, ErrSuperseded):
		return res, err

	case geom.IsGeometryError(err):
		s.mu.Lock()
		s.orientation = geom.Identity()
		s.status = StatusError
		s.warning = "auto-orient failed, orientation reset: " + err.Error()
		u = s.updateLocked()
		s.mu.Unlock()
		s.log.Warn("auto-orient failed", zap.Error(err))
		s.notify(u)
		return orient.Result{Rotation: mgl64.QuatIdent()}, err

	case err != nil && res.Evaluated == 0:
		s.mu.Lock()
		if errors.Is(err, ErrSolveTimeout) {
			s.status = StatusTimeout
		} else {
			s.status = StatusError
		}
		s.warning = "auto-orient did not complete: " + err.Error()
		u = s.updateLocked()
		s.mu.Unlock()
		s.log.Warn("auto-orient aborted", zap.Error(err))
		s.notify(u)
		return res, err
	}

	// A cancelled search still has a best candidate; apply it.
	s.mu.Lock()
	cur := s.orientation
	o := constraint.GroundAndSeat(m, cur.WithRotation(res.Rotation))
	s.orientation = o
	switch {
	case res.TimedOut:
		s.status = StatusTimeout
		s.warning = res.Warning.String()
	case err != nil:
		s.status = StatusTimeout
		s.warning = "auto-orient interrupted: " + err.Error()
	default:
		s.status = StatusIdle
		s.warning = ""
	}
	u = s.updateLocked()
	s.mu.Unlock()

	s.log.Info("auto-orient finished",
		zap.Int("evaluated", res.Evaluated),
		zap.Bool("timed_out", res.TimedOut),
		zap.Float64("cost", res.Cost))
	s.notify(u)
	return res, err
}

// Close stops the session. Pending debounced requests are dropped and the
// worker channel is closed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	var err error
	if s.ch != nil {
		err = s.ch.Close()
		s.wg.Wait()
	}
	s.log.Debug("session closed")
	return err
}

// updateLocked snapshots the session. s.mu must be held.
func (s *Session) updateLocked() Update {
	return Update{
		Seq:         s.seq,
		Status:      s.status,
		Orientation: s.orientation,
		Result:      s.result,
		Bounds:      s.volume.Check(mesh.ComputeAABB(s.mesh, s.orientation)),
		Warning:     s.warning,
	}
}

func (s *Session) notify(u Update) {
	if s.listener != nil {
		s.listener(u)
	}
}
