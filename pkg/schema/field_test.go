package schema

import (
	"testing"

	"github.com/skytable/skytable-sub005/pkg/value"
)

func TestFieldSetValidateRejectsEmpty(t *testing.T) {
	if err := FieldSet(nil).Validate(); err == nil {
		t.Fatal("expected error for empty field set")
	}
}

func TestFieldSetValidateRejectsDuplicateNames(t *testing.T) {
	fs := FieldSet{
		{Name: "id", Tag: value.TagString},
		{Name: "id", Tag: value.TagUint},
	}
	if err := fs.Validate(); err == nil {
		t.Fatal("expected error for duplicate field name")
	}
}

func TestFieldSetValidateRejectsBadPrimaryKeyType(t *testing.T) {
	fs := FieldSet{{Name: "id", Tag: value.TagFloat}}
	if err := fs.Validate(); err == nil {
		t.Fatal("expected error for float primary key")
	}
}

func TestFieldSetValidateRejectsNullablePrimaryKey(t *testing.T) {
	fs := FieldSet{{Name: "id", Tag: value.TagString, Nullable: true}}
	if err := fs.Validate(); err == nil {
		t.Fatal("expected error for nullable primary key")
	}
}

func TestFieldSetValidateAccepts(t *testing.T) {
	fs := FieldSet{
		{Name: "id", Tag: value.TagUint},
		{Name: "name", Tag: value.TagString, Nullable: true},
	}
	if err := fs.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFieldSetLookup(t *testing.T) {
	fs := FieldSet{{Name: "id", Tag: value.TagUint}}
	if _, ok := fs.Lookup("id"); !ok {
		t.Fatal("expected to find id")
	}
	if _, ok := fs.Lookup("missing"); ok {
		t.Fatal("did not expect to find missing")
	}
}
