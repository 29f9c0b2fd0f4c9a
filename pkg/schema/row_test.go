package schema

import (
	"testing"

	"github.com/skytable/skytable-sub005/pkg/value"
)

func TestRowViewUpgradesLazily(t *testing.T) {
	m := NewModel("s", "m", FieldSet{{Name: "id", Tag: value.TagString}})
	pk, err := value.NewPrimaryKey(value.String("k1"))
	if err != nil {
		t.Fatal(err)
	}
	row := NewRow(pk, map[string]value.Value{"id": value.String("k1")}, m.CurrentVersion(), 0)

	m.AlterAddField(Field{Name: "age", Tag: value.TagUint, Nullable: true})

	fields := row.View(m)
	if _, ok := fields["age"]; !ok {
		t.Fatal("expected lazily-upgraded row to have the new field")
	}
	if !fields["age"].IsNull() {
		t.Fatal("expected new field to default to null")
	}
}

func TestRowMutateBumpsRevision(t *testing.T) {
	m := NewModel("s", "m", FieldSet{{Name: "id", Tag: value.TagString}})
	pk, _ := value.NewPrimaryKey(value.String("k1"))
	row := NewRow(pk, map[string]value.Value{"id": value.String("k1")}, m.CurrentVersion(), 0)

	err := row.Mutate(m, 7, func(fields map[string]value.Value) error {
		fields["id"] = value.String("k1-renamed")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if row.p.revision != 7 {
		t.Fatalf("expected revision 7, got %d", row.p.revision)
	}
	if got, _ := row.p.fields["id"].AsString(); got != "k1-renamed" {
		t.Fatalf("unexpected field value: %q", got)
	}
}

func TestRowCloneSharesPayload(t *testing.T) {
	m := NewModel("s", "m", FieldSet{{Name: "id", Tag: value.TagString}})
	pk, _ := value.NewPrimaryKey(value.String("k1"))
	row := NewRow(pk, map[string]value.Value{"id": value.String("k1")}, m.CurrentVersion(), 0)

	clone := row.Clone()
	if clone.p != row.p {
		t.Fatal("expected clone to share the same payload")
	}
	if row.p.refcount != 2 {
		t.Fatalf("expected refcount 2, got %d", row.p.refcount)
	}
	clone.Release()
	if row.p.refcount != 1 {
		t.Fatalf("expected refcount 1 after release, got %d", row.p.refcount)
	}
}
