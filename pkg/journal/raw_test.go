package journal

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestHeader() Header {
	return Header{Version: 1, Kind: KindGNS, CreatedAt: 1, HostEpoch: 1}
}

func TestWriteRecoverRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gns.db-tlog")
	tracer := &Tracer{}
	w, err := CreateWriter(path, newTestHeader(), tracer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind+1, []byte("world")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	res, err := Recover(path, KindGNS, tracer)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Frames) != 3 { // two server events + Closed
		t.Fatalf("expected 3 frames, got %d", len(res.Frames))
	}
	if string(res.Frames[0].Payload) != "hello" || string(res.Frames[1].Payload) != "world" {
		t.Fatalf("unexpected payloads: %+v", res.Frames)
	}
	if res.Frames[2].Kind != EventClosed {
		t.Fatalf("expected last frame to be Closed, got %v", res.Frames[2].Kind)
	}
}

func TestBoundedRecoveryTruncatesTrailingCorruptionAfterReopened(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gns.db-tlog")
	tracer := &Tracer{}
	w, err := CreateWriter(path, newTestHeader(), tracer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	res, err := Recover(path, KindGNS, tracer)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := ReopenWriter(path, res.TruncateToEnd, res.NextEventID, tracer)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	// simulate a crash mid-write: append a truncated/garbage trailing frame
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	f.Close()
	w2.f.Close()

	res2, err := Recover(path, KindGNS, tracer)
	if err != nil {
		t.Fatalf("expected bounded recovery to succeed, got error: %v", err)
	}
	if len(res2.Frames) != 3 || res2.Frames[2].Kind != EventReopened {
		t.Fatalf("expected recovery to keep every frame up to the Reopened frame, got %+v", res2.Frames)
	}
}

func TestBoundedRecoveryTruncatesOversizedTrailingLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gns.db-tlog")
	tracer := &Tracer{}
	w, err := CreateWriter(path, newTestHeader(), tracer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	res, err := Recover(path, KindGNS, tracer)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := ReopenWriter(path, res.TruncateToEnd, res.NextEventID, tracer)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	// a flipped length field claims a payload far larger than the bytes
	// actually remaining in the file, but the frame header itself is
	// otherwise well formed and complete.
	frame := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint64(frame[0:8], w2.nextID)
	binary.LittleEndian.PutUint64(frame[8:16], uint64(FirstServerEventKind))
	binary.LittleEndian.PutUint64(frame[16:24], 1<<40)
	binary.LittleEndian.PutUint64(frame[24:32], 0)
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(frame); err != nil {
		t.Fatal(err)
	}
	f.Close()
	w2.f.Close()

	res2, err := Recover(path, KindGNS, tracer)
	if err != nil {
		t.Fatalf("expected bounded recovery to succeed, got error: %v", err)
	}
	if len(res2.Frames) != 3 || res2.Frames[2].Kind != EventReopened {
		t.Fatalf("expected recovery to keep every frame up to the Reopened frame, got %+v", res2.Frames)
	}
}

func TestInteriorOversizedPayloadLengthIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gns.db-tlog")
	tracer := &Tracer{}
	w, err := CreateWriter(path, newTestHeader(), tracer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("b")); err != nil {
		t.Fatal(err)
	}
	w.f.Close()

	// flip the first frame's payload_len field to claim more bytes than
	// the whole file contains; this is interior corruption, not trailing.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	oversized := make([]byte, 8)
	binary.LittleEndian.PutUint64(oversized, 1<<40)
	if _, err := f.WriteAt(oversized, HeaderSize+16); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Recover(path, KindGNS, tracer); err == nil {
		t.Fatal("expected an oversized interior payload length to be fatal")
	}
}

func TestRepairTruncatesInteriorCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gns.db-tlog")
	tracer := &Tracer{}
	w, err := CreateWriter(path, newTestHeader(), tracer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("b")); err != nil {
		t.Fatal(err)
	}
	w.f.Close()

	// corrupt the checksum of the first frame (interior, not trailing) —
	// Recover must refuse this, but Repair must salvage everything before it.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte{0x00, 0x00, 0x00, 0x00}, HeaderSize+24); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Recover(path, KindGNS, tracer); err == nil {
		t.Fatal("expected Recover to refuse interior corruption")
	}

	res, err := Repair(path, KindGNS, tracer)
	if err != nil {
		t.Fatalf("expected Repair to salvage the log, got error: %v", err)
	}
	if !res.Repaired {
		t.Fatal("expected Repaired to be true")
	}
	if len(res.Frames) != 0 {
		t.Fatalf("expected the corrupt first frame to be dropped entirely, got %+v", res.Frames)
	}
	if res.TruncateToEnd != HeaderSize {
		t.Fatalf("expected truncation back to just the header, got offset %d", res.TruncateToEnd)
	}

	if err := os.Truncate(path, res.TruncateToEnd); err != nil {
		t.Fatal(err)
	}
	if _, err := Recover(path, KindGNS, tracer); err != nil {
		t.Fatalf("expected the repaired file to recover cleanly, got: %v", err)
	}
}

func TestInteriorCorruptionIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gns.db-tlog")
	tracer := &Tracer{}
	w, err := CreateWriter(path, newTestHeader(), tracer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Append(FirstServerEventKind, []byte("b")); err != nil {
		t.Fatal(err)
	}
	w.f.Close()

	// corrupt the checksum of the first frame (interior, not trailing).
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte{0x00, 0x00, 0x00, 0x00}, HeaderSize+24); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Recover(path, KindGNS, tracer); err == nil {
		t.Fatal("expected interior corruption to be fatal")
	}
}
