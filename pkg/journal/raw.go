// Package journal implements the append-only, length-prefixed, checksummed
// event log described in spec §4.6, grounded in shape on the teacher's
// pkg/wal (single-writer mutex, sequential frame append, fsync-on-commit)
// but replacing its page-oriented WAL record format with the spec's fixed
// 32-byte frame header and CRC64 checksum, and replacing crash recovery by
// fixed-size page count with the spec's "bounded trailing corruption after
// a Reopened marker" rule.
package journal

import (
	"bufio"
	"encoding/binary"
	"hash/crc64"
	"io"
	"os"
	"sync"

	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
)

// EventKind tags a frame's metadata_kind field (spec §4.6): driver events
// use the two reserved sentinels below; every other value is an
// adapter-defined server event kind.
type EventKind uint64

const (
	EventReopened EventKind = 0
	EventClosed   EventKind = 1

	// FirstServerEventKind is the smallest value an adapter may use for its
	// own server event kinds.
	FirstServerEventKind EventKind = 2
)

func (k EventKind) IsDriverEvent() bool { return k == EventReopened || k == EventClosed }

var crcTable = crc64.MakeTable(crc64.ISO)

// frameHeaderSize is [8B event_id][8B metadata_kind][8B payload_len][8B checksum].
const frameHeaderSize = 32

func checksum(eventID uint64, kind EventKind, payload []byte) uint64 {
	buf := make([]byte, 24+len(payload))
	binary.LittleEndian.PutUint64(buf[0:8], eventID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(kind))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(payload)))
	copy(buf[24:], payload)
	return crc64.Checksum(buf, crcTable)
}

// TraceEvent is one entry in the parse-event trace the spec requires for
// testing recovery behavior (spec §4.6, "Parse-event trace (test hook)").
type TraceEvent struct {
	Action string // "opened", "wrote_frame", "read_frame", "checksum_mismatch", "recovery_truncate", "repair_truncate", "closed"
	Detail string
}

// Tracer collects TraceEvents. nil is a valid, no-op Tracer.
type Tracer struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (t *Tracer) record(action, detail string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, TraceEvent{Action: action, Detail: detail})
}

// Events returns a copy of the recorded trace.
func (t *Tracer) Events() []TraceEvent {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Writer is a single-threaded-per-journal append-only frame writer (spec
// §4.6: "concurrency is enforced by a mutex").
type Writer struct {
	mu      sync.Mutex
	f       *os.File
	nextID  uint64
	tracer  *Tracer
}

// CreateWriter creates a fresh journal file with the given header and
// returns a Writer positioned to append the first event.
func CreateWriter(path string, header Header, tracer *Tracer) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, &schemaerrors.JournalIOError{Op: "create", Err: err}
	}
	if err := WriteHeader(f, header); err != nil {
		f.Close()
		return nil, &schemaerrors.JournalIOError{Op: "write_header", Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, &schemaerrors.JournalIOError{Op: "sync", Err: err}
	}
	tracer.record("opened", "create:"+path)
	return &Writer{f: f, nextID: 0, tracer: tracer}, nil
}

// ReopenWriter opens an existing journal file positioned at offset, appends
// a Reopened driver event, and returns a Writer ready for further appends.
// offset and nextEventID normally come from a prior Recover call.
func ReopenWriter(path string, offset int64, nextEventID uint64, tracer *Tracer) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, &schemaerrors.JournalIOError{Op: "open", Err: err}
	}
	if err := f.Truncate(offset); err != nil {
		f.Close()
		return nil, &schemaerrors.JournalIOError{Op: "truncate", Err: err}
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, &schemaerrors.JournalIOError{Op: "seek", Err: err}
	}
	w := &Writer{f: f, nextID: nextEventID, tracer: tracer}
	tracer.record("opened", "reopen:"+path)
	if err := w.appendLocked(EventReopened, nil); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Append commits a server event: write frame, flush, fsync (spec §4.6).
func (w *Writer) Append(kind EventKind, payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendEventLocked(kind, payload)
}

func (w *Writer) appendLocked(kind EventKind, payload []byte) error {
	_, err := w.appendEventLocked(kind, payload)
	return err
}

func (w *Writer) appendEventLocked(kind EventKind, payload []byte) (uint64, error) {
	id := w.nextID
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint64(frame[0:8], id)
	binary.LittleEndian.PutUint64(frame[8:16], uint64(kind))
	binary.LittleEndian.PutUint64(frame[16:24], uint64(len(payload)))
	binary.LittleEndian.PutUint64(frame[24:32], checksum(id, kind, payload))
	copy(frame[frameHeaderSize:], payload)

	if _, err := w.f.Write(frame); err != nil {
		return 0, &schemaerrors.JournalIOError{Op: "append", Err: err}
	}
	if err := w.f.Sync(); err != nil {
		return 0, &schemaerrors.JournalIOError{Op: "sync", Err: err}
	}
	w.nextID++
	w.tracer.record("wrote_frame", kind.label())
	return id, nil
}

func (k EventKind) label() string {
	switch k {
	case EventReopened:
		return "Reopened"
	case EventClosed:
		return "Closed"
	default:
		return "server"
	}
}

// Close appends a Closed driver event and flushes (spec §4.6).
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.appendLocked(EventClosed, nil); err != nil {
		return err
	}
	w.tracer.record("closed", "")
	return w.f.Close()
}

// Frame is one decoded journal record.
type Frame struct {
	EventID uint64
	Kind    EventKind
	Payload []byte
}

// RecoverResult is what Recover returns: the frames that were successfully
// applied, the event ID the writer should resume at, and the absolute byte
// offset (counting the header) the writer should truncate to before reopening.
type RecoverResult struct {
	Frames        []Frame
	NextEventID   uint64
	TruncateToEnd int64 // absolute file offset including header
	Tracer        *Tracer
	// Repaired is true if a corrupt or incomplete frame was discarded to
	// produce this result — only possible when recoverCore ran with
	// force=true (see Repair).
	Repaired bool
}

// Recover walks the file from byte 0 after the header (spec §4.6). It
// implements bounded recovery: a single corrupt or incomplete trailing
// frame is tolerated only if it immediately follows a Reopened driver event
// and is the last bytes in the file; any other corruption is fatal.
func Recover(path string, wantKind FileKind, tracer *Tracer) (RecoverResult, error) {
	return recoverCore(path, wantKind, tracer, false)
}

// Repair walks the file exactly as Recover does, but treats ANY corrupt or
// incomplete frame — interior or trailing, regardless of what preceded it —
// as the recoverable end of the log rather than a fatal error (spec §4.6/
// §4.7: boot refuses on integrity errors "unless repair is explicitly
// invoked"). Everything after the first bad frame is permanently discarded;
// the caller is expected to truncate the file to the returned
// TruncateToEnd before handing it back to Recover/ReopenWriter.
func Repair(path string, wantKind FileKind, tracer *Tracer) (RecoverResult, error) {
	return recoverCore(path, wantKind, tracer, true)
}

func recoverCore(path string, wantKind FileKind, tracer *Tracer, force bool) (RecoverResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return RecoverResult{}, &schemaerrors.JournalIOError{Op: "open", Err: err}
	}
	defer f.Close()

	if _, err := ReadHeader(f, path, wantKind); err != nil {
		return RecoverResult{}, err
	}
	tracer.record("opened", "recover:"+path)

	info, err := f.Stat()
	if err != nil {
		return RecoverResult{}, &schemaerrors.JournalIOError{Op: "stat", Err: err}
	}
	fileSize := info.Size()

	br := bufio.NewReader(f)
	offset := int64(HeaderSize)
	var nextID uint64
	var frames []Frame
	var lastWasReopened bool

	truncate := func(reason string) (RecoverResult, error) {
		action := "recovery_truncate"
		if force && !lastWasReopened {
			action = "repair_truncate"
		}
		tracer.record(action, reason)
		return RecoverResult{Frames: frames, NextEventID: nextID, TruncateToEnd: offset, Tracer: tracer, Repaired: true}, nil
	}

	for {
		head := make([]byte, frameHeaderSize)
		n, err := io.ReadFull(br, head)
		if err == io.EOF {
			break
		}
		if err != nil {
			if lastWasReopened || force {
				return truncate("incomplete trailing frame header")
			}
			return RecoverResult{}, &schemaerrors.TruncatedFrameError{Offset: offset + int64(n)}
		}

		eventID := binary.LittleEndian.Uint64(head[0:8])
		kind := EventKind(binary.LittleEndian.Uint64(head[8:16]))
		payloadLen := binary.LittleEndian.Uint64(head[16:24])
		wantChecksum := binary.LittleEndian.Uint64(head[24:32])

		if eventID != nextID {
			if force {
				return truncate("non-monotonic event id")
			}
			return RecoverResult{}, &schemaerrors.NonMonotonicEventIDError{Expected: nextID, Got: eventID}
		}

		// spec §4.6: "payload length bounded by remaining file size" is
		// checked before the allocation below, so a flipped length field
		// can't request more memory than the file could possibly contain.
		remaining := fileSize - offset - frameHeaderSize
		if payloadLen > uint64(remaining) {
			if lastWasReopened || force {
				return truncate("payload length exceeds remaining file size")
			}
			tracer.record("checksum_mismatch", "payload length exceeds remaining file size")
			return RecoverResult{}, &schemaerrors.TruncatedFrameError{Offset: offset}
		}

		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(br, payload); err != nil {
			if lastWasReopened || force {
				return truncate("incomplete trailing payload")
			}
			return RecoverResult{}, &schemaerrors.TruncatedFrameError{Offset: offset}
		}

		if checksum(eventID, kind, payload) != wantChecksum {
			if force || (lastWasReopened && offset+frameHeaderSize+int64(payloadLen) == fileSize) {
				return truncate("checksum mismatch")
			}
			tracer.record("checksum_mismatch", "interior frame")
			return RecoverResult{}, &schemaerrors.ChecksumMismatchError{EventID: eventID}
		}

		tracer.record("read_frame", kind.label())
		frames = append(frames, Frame{EventID: eventID, Kind: kind, Payload: payload})
		offset += frameHeaderSize + int64(payloadLen)
		nextID++
		lastWasReopened = kind == EventReopened

		if kind == EventClosed {
			tracer.record("closed", "")
		}
	}

	return RecoverResult{Frames: frames, NextEventID: nextID, TruncateToEnd: offset, Tracer: tracer}, nil
}
