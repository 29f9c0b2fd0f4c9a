package adapter

import (
	"testing"

	"github.com/skytable/skytable-sub005/pkg/gns"
	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/value"
)

func TestCreateSpaceRoundTrip(t *testing.T) {
	g := gns.New()
	sp, err := g.CreateSpace("s1", schema.Dict{"owner": schema.Scalar(value.String("alice"))})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := EncodeCreateSpace(sp)
	if err != nil {
		t.Fatal(err)
	}

	g2 := gns.New()
	if err := ApplyGNS(g2, EventCreateSpace, payload); err != nil {
		t.Fatal(err)
	}
	guard := g2.PinSpaces()
	defer guard.Unpin()
	got, ok := g2.GetSpace(guard, "s1")
	if !ok {
		t.Fatal("expected replayed space to exist")
	}
	if owner, _ := got.Props["owner"].Scalar.AsString(); owner != "alice" {
		t.Fatalf("unexpected owner prop: %q", owner)
	}
}

func TestApplyGNSConflictOnDuplicateCreate(t *testing.T) {
	g := gns.New()
	if _, err := g.CreateSpace("s1", nil); err != nil {
		t.Fatal(err)
	}
	sp, _ := g.CreateSpace("s2", nil)
	sp.Name = "s1" // force a colliding name for the replay payload
	payload, _ := EncodeCreateSpace(sp)
	if err := ApplyGNS(g, EventCreateSpace, payload); err == nil {
		t.Fatal("expected a restore conflict for a duplicate space name")
	}
}

func TestAlterModelAddFieldRoundTrip(t *testing.T) {
	g := gns.New()
	if _, err := g.CreateSpace("s1", nil); err != nil {
		t.Fatal(err)
	}
	fields := schema.FieldSet{{Name: "id", Tag: value.TagString}}
	if _, err := g.CreateModel("s1", "m1", fields); err != nil {
		t.Fatal(err)
	}
	payload, err := EncodeAlterModelAddField("s1", "m1", schema.Field{Name: "age", Tag: value.TagUint, Nullable: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := ApplyGNS(g, EventAlterModel, payload); err != nil {
		t.Fatal(err)
	}
	guard := g.PinSpaces()
	m, err := g.GetModel(guard, "s1", "m1")
	guard.Unpin()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Schema().Lookup("age"); !ok {
		t.Fatal("expected applied AlterModel to add the field")
	}
}
