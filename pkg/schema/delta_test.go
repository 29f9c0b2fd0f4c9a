package schema

import (
	"testing"

	"github.com/skytable/skytable-sub005/pkg/value"
)

func TestDeltaStateUpgradesAfterReturnsStrictlyNewer(t *testing.T) {
	d := NewDeltaState()
	d.Append(FieldAdd, "a", value.TagString, true)
	d.Append(FieldAdd, "b", value.TagUint, true)
	d.Append(FieldRem, "a", value.TagNull, true)

	ups := d.UpgradesAfter(1)
	if len(ups) != 2 {
		t.Fatalf("expected 2 deltas after version 1, got %d", len(ups))
	}
	if ups[0].Field != "b" || ups[1].Field != "a" {
		t.Fatalf("unexpected delta order: %+v", ups)
	}
}

func TestDeltaStateUpgradesAfterCurrentIsEmpty(t *testing.T) {
	d := NewDeltaState()
	d.Append(FieldAdd, "a", value.TagString, true)
	if ups := d.UpgradesAfter(d.CurrentVersion()); len(ups) != 0 {
		t.Fatalf("expected no deltas, got %d", len(ups))
	}
}
