// Package store persists settled orientations between sessions. The engine
// reads an orientation when a model is loaded and writes one when the user
// settles on a pose; what a key means and where it lives is the store's
// business.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/chazu/orienteer/pkg/geom"
	"github.com/chazu/orienteer/pkg/mesh"
)

// Store reads and writes orientations by key.
type Store interface {
	// Load returns the orientation saved under key, and false when there
	// is none.
	Load(key string) (geom.Orientation, bool, error)
	Save(key string, o geom.Orientation) error
}

// Key derives a stable key for a model from its name and size.
func Key(m *mesh.Mesh) string {
	if m == nil {
		return ""
	}
	name := m.Name
	if name == "" {
		name = "model"
	}
	return fmt.Sprintf("%s/%dv/%dt", name, m.VertexCount(), m.TriangleCount())
}

// Record is the serialized form of an orientation: plain numeric tuples,
// quaternion in (x, y, z, w) order.
type Record struct {
	Rotation    [4]float64 `yaml:"rotation"`
	Translation [3]float64 `yaml:"translation"`
}

// NewRecord flattens o.
func NewRecord(o geom.Orientation) Record {
	return Record{
		Rotation:    geom.QuatTuple(o.Rotation),
		Translation: o.Translation,
	}
}

// Orientation rebuilds the orientation, normalizing the rotation.
func (r Record) Orientation() geom.Orientation {
	return geom.NewOrientation(geom.QuatFromTuple(r.Rotation), mgl64.Vec3(r.Translation))
}

// Memory keeps orientations in a map.
type Memory struct {
	mu   sync.RWMutex
	recs map[string]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{recs: make(map[string]Record)}
}

// Load implements Store.
func (s *Memory) Load(key string) (geom.Orientation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[key]
	if !ok {
		return geom.Identity(), false, nil
	}
	return r.Orientation(), true, nil
}

// Save implements Store.
func (s *Memory) Save(key string, o geom.Orientation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[key] = NewRecord(o)
	return nil
}

// File keeps orientations in a YAML document, rewritten on every Save.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a store backed by path. The file is created on the first
// Save.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file.
func (s *File) Path() string { return s.path }

type document struct {
	Orientations map[string]Record `yaml:"orientations"`
}

func (s *File) read() (document, error) {
	doc := document{Orientations: map[string]Record{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, errors.Wrap(err, "read orientation store")
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, errors.Wrapf(err, "parse %s", s.path)
	}
	if doc.Orientations == nil {
		doc.Orientations = map[string]Record{}
	}
	return doc, nil
}

// Load implements Store.
func (s *File) Load(key string) (geom.Orientation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return geom.Identity(), false, err
	}
	r, ok := doc.Orientations[key]
	if !ok {
		return geom.Identity(), false, nil
	}
	return r.Orientation(), true, nil
}

// Save implements Store. The document is written to a temporary file and
// renamed into place.
func (s *File) Save(key string, o geom.Orientation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Orientations[key] = NewRecord(o)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.Wrap(err, "encode orientation store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, "create store directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "write orientation store")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replace orientation store")
}
