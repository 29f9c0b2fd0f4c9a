// Package gns implements the Global Namespace State: "the union of spaces
// index and models index plus the system database. It is the single root
// from which the state of the world is derivable" (spec §3). It is the
// in-memory target that journal recovery replays into and that DDL
// statements mutate directly, mirroring how the teacher's pkg/storage
// exposes a single in-memory Database as the root of all tables.
package gns

import (
	"github.com/skytable/skytable-sub005/pkg/mtchm"
	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/sysdb"
)

// GNS is the single root of server state.
type GNS struct {
	spaces *mtchm.Tree[string, *schema.Space]
	SysDB  *sysdb.SysDB
}

// New returns an empty GNS with an uninitialized system database.
func New() *GNS {
	return &GNS{
		spaces: mtchm.New[string, *schema.Space](
			mtchm.HashString,
			func(a, b string) bool { return a == b },
		),
		SysDB: sysdb.New(),
	}
}

// CreateSpace registers a fresh space, refusing a duplicate name.
func (g *GNS) CreateSpace(name string, props schema.Dict) (*schema.Space, error) {
	sp := schema.NewSpace(name, props)
	if err := g.spaces.Insert(name, sp); err != nil {
		return nil, &schemaerrors.SpaceAlreadyExistsError{Name: name}
	}
	return sp, nil
}

// GetSpace looks up a space by name.
func (g *GNS) GetSpace(guard *mtchm.Guard, name string) (*schema.Space, bool) {
	return g.spaces.Get(guard, name)
}

// DropSpace removes a space, refusing while it still contains any model
// (spec §4: "dropping a space is refused while any model is still
// referenced").
func (g *GNS) DropSpace(name string) error {
	guard := g.spaces.Pin()
	sp, ok := g.spaces.Get(guard, name)
	guard.Unpin()
	if !ok {
		return &schemaerrors.UnknownSpaceError{Name: name}
	}
	if !sp.IsEmpty() {
		return &schemaerrors.SpaceNotEmptyError{Name: name}
	}
	g.spaces.Delete(name)
	return nil
}

// AlterSpace replaces a space's property dictionary in place.
func (g *GNS) AlterSpace(name string, props schema.Dict) error {
	guard := g.spaces.Pin()
	defer guard.Unpin()
	sp, ok := g.spaces.Get(guard, name)
	if !ok {
		return &schemaerrors.UnknownSpaceError{Name: name}
	}
	sp.Props = props
	return nil
}

// PinSpaces returns a guard suitable for GetSpace / iteration.
func (g *GNS) PinSpaces() *mtchm.Guard { return g.spaces.Pin() }

// IterateSpaces walks every space; fn returning false stops early.
func (g *GNS) IterateSpaces(guard *mtchm.Guard, fn func(name string, sp *schema.Space) bool) {
	g.spaces.Iterate(guard, fn)
}

// CreateModel registers a fresh model inside an existing space.
func (g *GNS) CreateModel(space, name string, fields schema.FieldSet) (*schema.Model, error) {
	guard := g.spaces.Pin()
	defer guard.Unpin()
	sp, ok := g.spaces.Get(guard, space)
	if !ok {
		return nil, &schemaerrors.UnknownSpaceError{Name: space}
	}
	m := schema.NewModel(space, name, fields)
	if err := sp.CreateModel(m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetModel looks up a model by space and name.
func (g *GNS) GetModel(spacesGuard *mtchm.Guard, space, name string) (*schema.Model, error) {
	sp, ok := g.spaces.Get(spacesGuard, space)
	if !ok {
		return nil, &schemaerrors.UnknownSpaceError{Name: space}
	}
	modelsGuard := sp.PinModels()
	defer modelsGuard.Unpin()
	m, ok := sp.GetModel(modelsGuard, name)
	if !ok {
		return nil, &schemaerrors.UnknownModelError{Space: space, Name: name}
	}
	return m, nil
}

// DropModel removes a model from a space.
func (g *GNS) DropModel(space, name string) error {
	guard := g.spaces.Pin()
	defer guard.Unpin()
	sp, ok := g.spaces.Get(guard, space)
	if !ok {
		return &schemaerrors.UnknownSpaceError{Name: space}
	}
	if _, ok := sp.DropModel(name); !ok {
		return &schemaerrors.UnknownModelError{Space: space, Name: name}
	}
	return nil
}

// AlterModel applies a mutation (field add/remove) to an existing model.
func (g *GNS) AlterModel(space, name string, fn func(m *schema.Model) error) error {
	guard := g.spaces.Pin()
	defer guard.Unpin()
	sp, ok := g.spaces.Get(guard, space)
	if !ok {
		return &schemaerrors.UnknownSpaceError{Name: space}
	}
	modelsGuard := sp.PinModels()
	defer modelsGuard.Unpin()
	m, ok := sp.GetModel(modelsGuard, name)
	if !ok {
		return &schemaerrors.UnknownModelError{Space: space, Name: name}
	}
	return fn(m)
}

// CreateUser, DropUser, and ChangePassword delegate to the system database;
// they exist on GNS so journal adapters and the dispatcher have one root
// object to depend on rather than threading both GNS and SysDB everywhere.

func (g *GNS) CreateUser(username, password string) error {
	return g.SysDB.AddUser(username, password)
}

func (g *GNS) DropUser(username string) error {
	return g.SysDB.DelUser(username)
}

func (g *GNS) ChangePassword(username, newPassword string) error {
	return g.SysDB.ChangePassword(username, newPassword)
}
