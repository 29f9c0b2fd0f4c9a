package adapter

import (
	"github.com/google/uuid"

	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/gns"
	"github.com/skytable/skytable-sub005/pkg/journal"
	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/sysdb"
	"github.com/skytable/skytable-sub005/pkg/value"
)

// GNS event kinds (spec §4.7). Driver events reserve 0 and 1
// (journal.EventReopened / journal.EventClosed); these start at
// journal.FirstServerEventKind.
const (
	EventCreateSpace journal.EventKind = journal.FirstServerEventKind + iota
	EventDropSpace
	EventAlterSpace
	EventCreateModel
	EventDropModel
	EventAlterModel
	EventCreateUser
	EventAlterUser
	EventDropUser
)

type createSpacePayload struct {
	Name  string             `bson:"name"`
	UUID  uuid.UUID          `bson:"uuid"`
	Props map[string]dictDoc `bson:"props,omitempty"`
}

type dropSpacePayload struct {
	Name string `bson:"name"`
}

type alterSpacePayload struct {
	Name  string             `bson:"name"`
	Props map[string]dictDoc `bson:"props,omitempty"`
}

type createModelPayload struct {
	Space  string     `bson:"space"`
	Name   string     `bson:"name"`
	UUID   uuid.UUID  `bson:"uuid"`
	Fields []fieldDoc `bson:"fields"`
}

type dropModelPayload struct {
	Space string `bson:"space"`
	Name  string `bson:"name"`
}

// alterModelPayload carries either an added field or a removed field name,
// discriminated by Op, since both share the EventAlterModel kind.
type alterModelPayload struct {
	Space string    `bson:"space"`
	Name  string    `bson:"name"`
	Op    string    `bson:"op"` // "add" or "remove"
	Field *fieldDoc `bson:"field,omitempty"`
	Drop  string    `bson:"drop,omitempty"`
}

type userPayload struct {
	Username string `bson:"username"`
	Password string `bson:"password,omitempty"`
}

// EncodeCreateSpace returns the payload for an EventCreateSpace frame.
func EncodeCreateSpace(sp *schema.Space) ([]byte, error) {
	return marshal(createSpacePayload{Name: sp.Name, UUID: sp.UUID, Props: encodeDict(sp.Props)})
}

func EncodeDropSpace(name string) ([]byte, error) {
	return marshal(dropSpacePayload{Name: name})
}

func EncodeAlterSpace(name string, props schema.Dict) ([]byte, error) {
	return marshal(alterSpacePayload{Name: name, Props: encodeDict(props)})
}

func EncodeCreateModel(m *schema.Model) ([]byte, error) {
	return marshal(createModelPayload{Space: m.Space, Name: m.Name, UUID: m.UUID, Fields: encodeFieldSet(m.Schema())})
}

func EncodeDropModel(space, name string) ([]byte, error) {
	return marshal(dropModelPayload{Space: space, Name: name})
}

func EncodeAlterModelAddField(space, name string, f schema.Field) ([]byte, error) {
	fd := fieldDoc{Name: f.Name, Tag: uint8(f.Tag), Nullable: f.Nullable}
	return marshal(alterModelPayload{Space: space, Name: name, Op: "add", Field: &fd})
}

func EncodeAlterModelRemoveField(space, name, field string) ([]byte, error) {
	return marshal(alterModelPayload{Space: space, Name: name, Op: "remove", Drop: field})
}

func EncodeCreateUser(username, password string) ([]byte, error) {
	return marshal(userPayload{Username: username, Password: password})
}

func EncodeDropUser(username string) ([]byte, error) {
	return marshal(userPayload{Username: username})
}

func EncodeAlterUser(username, newPassword string) ([]byte, error) {
	return marshal(userPayload{Username: username, Password: newPassword})
}

// ApplyGNS applies one decoded GNS frame to g during recovery replay. A
// conflict such as CreateSpace for an already-present name is reported as
// RestoreDataConflictError (spec §4.7).
func ApplyGNS(g *gns.GNS, kind journal.EventKind, payload []byte) error {
	switch kind {
	case EventCreateSpace:
		var p createSpacePayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		sp, err := g.CreateSpace(p.Name, decodeDict(p.Props))
		if err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		sp.UUID = p.UUID
		return nil
	case EventDropSpace:
		var p dropSpacePayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		if err := g.DropSpace(p.Name); err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		return nil
	case EventAlterSpace:
		var p alterSpacePayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		if err := g.AlterSpace(p.Name, decodeDict(p.Props)); err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		return nil
	case EventCreateModel:
		var p createModelPayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		m, err := g.CreateModel(p.Space, p.Name, decodeFieldSet(p.Fields))
		if err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		m.UUID = p.UUID
		return nil
	case EventDropModel:
		var p dropModelPayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		if err := g.DropModel(p.Space, p.Name); err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		return nil
	case EventAlterModel:
		var p alterModelPayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		var applyErr error
		switch p.Op {
		case "add":
			applyErr = g.AlterModel(p.Space, p.Name, func(m *schema.Model) error {
				m.AlterAddField(schema.Field{Name: p.Field.Name, Tag: value.Tag(p.Field.Tag), Nullable: p.Field.Nullable})
				return nil
			})
		case "remove":
			applyErr = g.AlterModel(p.Space, p.Name, func(m *schema.Model) error {
				return m.AlterRemoveField(p.Drop)
			})
		default:
			return &schemaerrors.UnknownEventKindError{Kind: uint64(kind)}
		}
		if applyErr != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: applyErr.Error()}
		}
		return nil
	case EventCreateUser:
		var p userPayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		var err error
		if p.Username == sysdb.RootUsername {
			err = g.SysDB.InitRoot(p.Password)
		} else {
			err = g.CreateUser(p.Username, p.Password)
		}
		if err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		return nil
	case EventDropUser:
		var p userPayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		if err := g.DropUser(p.Username); err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		return nil
	case EventAlterUser:
		var p userPayload
		if err := unmarshal(payload, &p); err != nil {
			return err
		}
		if err := g.ChangePassword(p.Username, p.Password); err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		return nil
	default:
		return &schemaerrors.UnknownEventKindError{Kind: uint64(kind)}
	}
}
