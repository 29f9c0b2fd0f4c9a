package schema

import (
	"github.com/google/uuid"
	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/mtchm"
)

// Space is a namespace of models plus a property dictionary (spec §3). It
// holds a lock-free model index keyed by name, mirroring the lock-free row
// index each Model keeps for its own rows.
type Space struct {
	UUID   uuid.UUID
	Name   string
	Props  Dict
	models *mtchm.Tree[string, *Model]
}

// NewSpace constructs an empty space with the given properties.
func NewSpace(name string, props Dict) *Space {
	return &Space{
		UUID:  uuid.New(),
		Name:  name,
		Props: props,
		models: mtchm.New[string, *Model](
			mtchm.HashString,
			func(a, b string) bool { return a == b },
		),
	}
}

// CreateModel registers a fresh model, refusing if one already exists under
// the same name.
func (s *Space) CreateModel(m *Model) error {
	if err := s.models.Insert(m.Name, m); err != nil {
		return &schemaerrors.ModelAlreadyExistsError{Space: s.Name, Name: m.Name}
	}
	return nil
}

// GetModel looks up a model by name.
func (s *Space) GetModel(guard *mtchm.Guard, name string) (*Model, bool) {
	return s.models.Get(guard, name)
}

// DropModel removes a model by name, returning it if present.
func (s *Space) DropModel(name string) (*Model, bool) {
	return s.models.Delete(name)
}

// PinModels returns a guard suitable for GetModel / iteration.
func (s *Space) PinModels() *mtchm.Guard { return s.models.Pin() }

// IterateModels walks every model in the space; fn returning false stops
// early.
func (s *Space) IterateModels(guard *mtchm.Guard, fn func(name string, m *Model) bool) {
	s.models.Iterate(guard, fn)
}

// IsEmpty reports whether the space has no models, the precondition for
// DROP SPACE (spec §4: "dropping a space is refused while any model is
// still referenced").
func (s *Space) IsEmpty() bool {
	empty := true
	guard := s.models.Pin()
	s.models.Iterate(guard, func(string, *Model) bool {
		empty = false
		return false
	})
	guard.Unpin()
	return empty
}

// ModelCount returns the number of models, for diagnostics only.
func (s *Space) ModelCount() int { return s.models.Len() }
