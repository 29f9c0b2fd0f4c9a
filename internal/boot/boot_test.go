package boot

import (
	"os"
	"testing"

	"github.com/skytable/skytable-sub005/pkg/dispatcher"
	"github.com/skytable/skytable-sub005/pkg/journal"
	"github.com/skytable/skytable-sub005/pkg/ql/ast"
	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/value"
)

func rootSession() *dispatcher.Session {
	return &dispatcher.Session{Auth: dispatcher.Anonymous().Authenticate("root")}
}

func TestBootApplyShutdownBootRoundTrip(t *testing.T) {
	dir := t.TempDir()

	r1, err := Boot(dir)
	if err != nil {
		t.Fatal(err)
	}
	sess := rootSession()
	if _, err := r1.Dispatcher.Execute(sess, &ast.CreateSpace{Name: "s1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r1.Dispatcher.Execute(sess, &ast.CreateModel{
		Space: "s1", Name: "users",
		Fields: schema.FieldSet{{Name: "id", Tag: value.TagString}},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := r1.Dispatcher.Execute(sess, &ast.Insert{
		Space: "s1", Model: "users",
		Values: []value.Value{value.String("u1")},
	}); err != nil {
		t.Fatal(err)
	}
	if err := Shutdown(r1); err != nil {
		t.Fatal(err)
	}

	r2, err := Boot(dir)
	if err != nil {
		t.Fatal(err)
	}
	guard := r2.GNS.PinSpaces()
	sp, ok := r2.GNS.GetSpace(guard, "s1")
	if !ok {
		t.Fatal("expected space s1 to survive reboot")
	}
	modelsGuard := sp.PinModels()
	m, ok := sp.GetModel(modelsGuard, "users")
	modelsGuard.Unpin()
	guard.Unpin()
	if !ok {
		t.Fatal("expected model users to survive reboot")
	}
	pk, _ := value.NewPrimaryKey(value.String("u1"))
	rowsGuard := m.PinRows()
	defer rowsGuard.Unpin()
	if _, ok := m.GetRow(rowsGuard, pk); !ok {
		t.Fatal("expected row u1 to survive reboot")
	}
	if err := Shutdown(r2); err != nil {
		t.Fatal(err)
	}
}

func TestBootRefusesCorruptedJournalUntilRepaired(t *testing.T) {
	dir := t.TempDir()

	r1, err := Boot(dir)
	if err != nil {
		t.Fatal(err)
	}
	sess := rootSession()
	if _, err := r1.Dispatcher.Execute(sess, &ast.CreateSpace{Name: "s1"}); err != nil {
		t.Fatal(err)
	}
	if err := Shutdown(r1); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(gnsPath(dir), os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	// flip the first frame's checksum byte to produce interior corruption.
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, journal.HeaderSize+24); err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte{^b[0]}, journal.HeaderSize+24); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Boot(dir); err == nil {
		t.Fatal("expected boot to refuse a corrupted journal")
	}

	reports, err := RepairDataDir(dir)
	if err != nil {
		t.Fatalf("expected repair to succeed: %v", err)
	}
	if len(reports) != 1 || !reports[0].Repaired {
		t.Fatalf("expected one repaired report, got %+v", reports)
	}

	if _, err := Boot(dir); err != nil {
		t.Fatalf("expected boot to succeed after repair: %v", err)
	}
}
