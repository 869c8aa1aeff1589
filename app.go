package main

import (
	"context"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/chazu/orienteer/pkg/config"
	"github.com/chazu/orienteer/pkg/constraint"
	"github.com/chazu/orienteer/pkg/engine"
	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/logger"
	"github.com/chazu/orienteer/pkg/mesh"
	"github.com/chazu/orienteer/pkg/meshio"
	"github.com/chazu/orienteer/pkg/primitive"
	"github.com/chazu/orienteer/pkg/store"
	"github.com/chazu/orienteer/pkg/worker"
)

// settleTimeout bounds how long Settle waits for an in-flight analysis.
const settleTimeout = 30 * time.Second

// App is the frontend binding. Every exported method returns a
// JSON-serializable value; failures are reported in it, never panicked.
type App struct {
	ctx   context.Context
	cfg   *config.Config
	store store.Store
	log   *zap.Logger

	// OnUpdate, when set, receives every analysis transition.
	OnUpdate func(AnalysisData)

	mu      sync.Mutex
	session *engine.Session
	key     string
	updated chan struct{}
}

// ModelData is the mesh sent to the frontend for display and picking.
type ModelData struct {
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	Vertices  []float32 `json:"vertices"`
	Indices   []uint32  `json:"indices,omitempty"`
	Triangles int       `json:"triangles"`
	Large     bool      `json:"large"`
}

// OrientationData is an orientation as plain tuples, quaternion in
// (x, y, z, w) order.
type OrientationData struct {
	Rotation    [4]float64 `json:"rotation"`
	Translation [3]float64 `json:"translation"`
}

// AnalysisData is the session state the frontend renders.
type AnalysisData struct {
	Status        string          `json:"status"`
	Orientation   OrientationData `json:"orientation"`
	FaceIndices   []int           `json:"faceIndices"`
	ProjectedArea float64         `json:"projectedArea"`
	SupportVolume float64         `json:"supportVolume"`
	SupportWeight float64         `json:"supportWeight"`
	InBounds      bool            `json:"inBounds"`
	Violations    []string        `json:"violations"`
	Warning       string          `json:"warning,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// LoadResult is returned by LoadModel and LoadPrimitive.
type LoadResult struct {
	Model    *ModelData   `json:"model,omitempty"`
	Analysis AnalysisData `json:"analysis"`
	// Restored is true when the orientation came from the store.
	Restored bool     `json:"restored"`
	Warnings []string `json:"warnings"`
	Error    string   `json:"error,omitempty"`
}

// OrientResult is returned by AutoOrient.
type OrientResult struct {
	Analysis  AnalysisData `json:"analysis"`
	Evaluated int          `json:"evaluated"`
	TimedOut  bool         `json:"timedOut"`
	Cost      float64      `json:"cost"`
	Error     string       `json:"error,omitempty"`
}

// NewApp creates an App. A nil store keeps orientations in memory.
func NewApp(cfg *config.Config, st store.Store) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if st == nil {
		st = store.NewMemory()
	}
	return &App{
		ctx:     context.Background(),
		cfg:     cfg,
		store:   st,
		log:     logger.Named("app"),
		updated: make(chan struct{}, 1),
	}
}

// startup is called by the host runtime with its lifetime context.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// LoadModel reads an STL or 3MF file and starts a session for it.
func (a *App) LoadModel(path string) LoadResult {
	m, err := meshio.Load(path, meshio.DefaultOptions())
	if err != nil {
		a.log.Warn("load failed", zap.String("path", path), zap.Error(err))
		return LoadResult{Warnings: []string{}, Error: err.Error()}
	}
	return a.open(m)
}

// LoadPrimitive generates a calibration shape and starts a session for it.
func (a *App) LoadPrimitive(name string, size float64) LoadResult {
	shape, err := primitive.ByName(name, size)
	if err != nil {
		return LoadResult{Warnings: []string{}, Error: err.Error()}
	}
	m, err := primitive.ToMesh(shape)
	if err != nil {
		a.log.Warn("primitive render failed", zap.String("name", name), zap.Error(err))
		return LoadResult{Warnings: []string{}, Error: err.Error()}
	}
	return a.open(m)
}

func (a *App) open(m *mesh.Mesh) LoadResult {
	result := LoadResult{Warnings: []string{}}

	opts := []engine.Option{
		engine.WithLogger(logger.Log),
		engine.WithListener(a.onUpdate),
		engine.WithDebounce(a.cfg.Worker.Debounce),
		engine.WithLargeModelBytes(a.cfg.LargeModelBytes()),
		engine.WithOverhangOptions(a.cfg.OverhangOptions()),
		engine.WithBuildVolume(a.cfg.BuildVolume),
	}
	if a.cfg.Worker.Enabled {
		opts = append(opts, engine.WithChannel(worker.NewLocal(worker.WithLogger(logger.Named("worker")))))
	}

	s, err := engine.NewSession(m, opts...)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	a.mu.Lock()
	prev := a.session
	a.session = s
	a.key = store.Key(m)
	key := a.key
	a.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	o, ok, err := a.store.Load(key)
	if err != nil {
		a.log.Warn("orientation store unreadable", zap.Error(err))
		result.Warnings = append(result.Warnings, "saved orientation unavailable: "+err.Error())
	}
	result.Restored = ok
	if !ok {
		o = geom.Identity()
	}
	o = s.Transform(o, constraint.ModeTranslate)

	if constraint.IsFlat(m, o, a.cfg.Constraints.MinHeight) {
		result.Warnings = append(result.Warnings, "model is nearly flat; rotating it may have no visible effect")
	}

	result.Model = &ModelData{
		SessionID: s.ID(),
		Name:      m.Name,
		Vertices:  m.Vertices,
		Indices:   m.Indices,
		Triangles: m.TriangleCount(),
		Large:     s.Large(),
	}
	result.Analysis = snapshot(s)

	a.log.Info("model loaded",
		zap.String("name", m.Name),
		zap.String("key", key),
		zap.Int("triangles", m.TriangleCount()),
		zap.Bool("restored", ok))
	return result
}

// AutoOrient searches for a low-overhang orientation and applies it.
func (a *App) AutoOrient() OrientResult {
	s := a.current()
	if s == nil {
		return OrientResult{Error: "no model loaded"}
	}

	res, err := s.AutoOrient(a.ctx, a.cfg.OrientOptions(s.Large()))
	out := OrientResult{
		Evaluated: res.Evaluated,
		TimedOut:  res.TimedOut,
		Cost:      res.Cost,
	}
	if err != nil {
		out.Error = err.Error()
	}
	if !errors.Is(err, engine.ErrSuperseded) {
		o := s.Orientation()
		s.RequestAnalysis(o.Rotation, o.Translation)
	}
	out.Analysis = snapshot(s)
	return out
}

// AlignToFace lays the face with the given object-space normal flat on the
// plate.
func (a *App) AlignToFace(normal [3]float64) AnalysisData {
	s := a.current()
	if s == nil {
		return AnalysisData{Error: "no model loaded"}
	}
	s.AlignToFace(mgl64.Vec3(normal))
	return snapshot(s)
}

// Rotate sets the rotation, keeping the current position, and re-grounds.
func (a *App) Rotate(rotation [4]float64) AnalysisData {
	s := a.current()
	if s == nil {
		return AnalysisData{Error: "no model loaded"}
	}
	o := s.Orientation().WithRotation(geom.QuatFromTuple(rotation))
	s.Transform(o, constraint.ModeRotate)
	return snapshot(s)
}

// Translate moves the object, keeping it on the plate.
func (a *App) Translate(translation [3]float64) AnalysisData {
	s := a.current()
	if s == nil {
		return AnalysisData{Error: "no model loaded"}
	}
	o := s.Orientation().WithTranslation(mgl64.Vec3(translation))
	s.Transform(o, constraint.ModeTranslate)
	return snapshot(s)
}

// Status returns the current session state without waiting.
func (a *App) Status() AnalysisData {
	s := a.current()
	if s == nil {
		return AnalysisData{Error: "no model loaded"}
	}
	return snapshot(s)
}

// Settle runs any pending analysis now, waits for it and saves the
// orientation to the store.
func (a *App) Settle() AnalysisData {
	s := a.current()
	if s == nil {
		return AnalysisData{Error: "no model loaded"}
	}
	s.Flush()

	timer := time.NewTimer(settleTimeout)
	defer timer.Stop()
	for s.Status() == engine.StatusRunning {
		select {
		case <-a.updated:
		case <-timer.C:
			out := snapshot(s)
			out.Error = "analysis did not settle in " + settleTimeout.String()
			return out
		case <-a.ctx.Done():
			out := snapshot(s)
			out.Error = a.ctx.Err().Error()
			return out
		}
	}

	out := snapshot(s)
	a.mu.Lock()
	key := a.key
	a.mu.Unlock()
	if err := a.store.Save(key, s.Orientation()); err != nil {
		a.log.Warn("saving orientation failed", zap.String("key", key), zap.Error(err))
		out.Error = "orientation not saved: " + err.Error()
	}
	return out
}

// Close ends the current session.
func (a *App) Close() {
	a.mu.Lock()
	s := a.session
	a.session = nil
	a.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

func (a *App) current() *engine.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// onUpdate is the session listener. It may run on the worker or debounce
// goroutines.
func (a *App) onUpdate(u engine.Update) {
	select {
	case a.updated <- struct{}{}:
	default:
	}
	if a.OnUpdate != nil {
		a.OnUpdate(updateData(u))
	}
}

func snapshot(s *engine.Session) AnalysisData {
	return updateData(engine.Update{
		Status:      s.Status(),
		Orientation: s.Orientation(),
		Result:      s.Result(),
		Bounds:      s.Bounds(),
		Warning:     s.Warning(),
	})
}

func updateData(u engine.Update) AnalysisData {
	d := AnalysisData{
		Status: string(u.Status),
		Orientation: OrientationData{
			Rotation:    geom.QuatTuple(u.Orientation.Rotation),
			Translation: u.Orientation.Translation,
		},
		FaceIndices: []int{},
		Violations:  []string{},
		Warning:     u.Warning,
	}
	if r := u.Result; r != nil {
		d.FaceIndices = lo.Ternary(r.FaceIndices != nil, r.FaceIndices, []int{})
		d.ProjectedArea = r.ProjectedArea
		d.SupportVolume = r.SupportVolume
		d.SupportWeight = r.SupportWeight
	}
	if b := u.Bounds; b != nil {
		d.InBounds = b.InBounds
		d.Violations = lo.Ternary(b.Violations != nil, b.Violations, []string{})
	}
	return d
}
