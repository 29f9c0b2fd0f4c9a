package gns

import (
	"testing"

	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/value"
)

func TestCreateSpaceRejectsDuplicate(t *testing.T) {
	g := New()
	if _, err := g.CreateSpace("s1", nil); err != nil {
		t.Fatal(err)
	}
	_, err := g.CreateSpace("s1", nil)
	if _, ok := err.(*schemaerrors.SpaceAlreadyExistsError); !ok {
		t.Fatalf("expected SpaceAlreadyExistsError, got %T", err)
	}
}

func TestDropSpaceRefusedWhileModelsExist(t *testing.T) {
	g := New()
	if _, err := g.CreateSpace("s1", nil); err != nil {
		t.Fatal(err)
	}
	fields := schema.FieldSet{{Name: "id", Tag: value.TagString}}
	if _, err := g.CreateModel("s1", "m1", fields); err != nil {
		t.Fatal(err)
	}
	if err := g.DropSpace("s1"); err == nil {
		t.Fatal("expected DropSpace to be refused while a model exists")
	}
	if err := g.DropModel("s1", "m1"); err != nil {
		t.Fatal(err)
	}
	if err := g.DropSpace("s1"); err != nil {
		t.Fatalf("expected DropSpace to succeed once empty, got %v", err)
	}
}

func TestCreateModelUnknownSpace(t *testing.T) {
	g := New()
	fields := schema.FieldSet{{Name: "id", Tag: value.TagString}}
	_, err := g.CreateModel("nope", "m1", fields)
	if _, ok := err.(*schemaerrors.UnknownSpaceError); !ok {
		t.Fatalf("expected UnknownSpaceError, got %T", err)
	}
}

func TestAlterModelAddsField(t *testing.T) {
	g := New()
	if _, err := g.CreateSpace("s1", nil); err != nil {
		t.Fatal(err)
	}
	fields := schema.FieldSet{{Name: "id", Tag: value.TagString}}
	if _, err := g.CreateModel("s1", "m1", fields); err != nil {
		t.Fatal(err)
	}
	err := g.AlterModel("s1", "m1", func(m *schema.Model) error {
		m.AlterAddField(schema.Field{Name: "age", Tag: value.TagUint, Nullable: true})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	guard := g.PinSpaces()
	m, err := g.GetModel(guard, "s1", "m1")
	guard.Unpin()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Schema().Lookup("age"); !ok {
		t.Fatal("expected altered model to have the new field")
	}
}

func TestUserLifecycle(t *testing.T) {
	g := New()
	if err := g.SysDB.InitRoot("rootpw"); err != nil {
		t.Fatal(err)
	}
	if err := g.CreateUser("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := g.DropUser("alice"); err != nil {
		t.Fatal(err)
	}
	if err := g.DropUser("alice"); err == nil {
		t.Fatal("expected error dropping an already-removed user")
	}
}
