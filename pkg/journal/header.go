package journal

import (
	"encoding/binary"
	"fmt"
	"io"

	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
)

// HeaderSize is the fixed on-disk size of every journal file's header
// (spec §6): "[magic: 8B][version: 4B][kind: 2B][flags: 2B][created_at: 8B]
// [host_epoch: 8B][reserved: up to header_size]".
const HeaderSize = 64

var fileMagic = [8]byte{'S', 'K', 'Y', 'T', 'J', 'R', 'N', 'L'}

// FileKind distinguishes the GNS journal from a per-model batch journal so
// opening the wrong kind of file is caught immediately.
type FileKind uint16

const (
	KindGNS   FileKind = 1
	KindBatch FileKind = 2
)

// Header is the fixed file header every journal file begins with.
type Header struct {
	Version   uint32
	Kind      FileKind
	Flags     uint16
	CreatedAt uint64
	HostEpoch uint64
}

// WriteHeader writes a fresh header, padding to HeaderSize with zeroes.
func WriteHeader(w io.Writer, h Header) error {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], fileMagic[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.LittleEndian.PutUint16(buf[12:14], uint16(h.Kind))
	binary.LittleEndian.PutUint16(buf[14:16], h.Flags)
	binary.LittleEndian.PutUint64(buf[16:24], h.CreatedAt)
	binary.LittleEndian.PutUint64(buf[24:32], h.HostEpoch)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and validates a file header, rejecting a wrong magic or
// an unexpected kind.
func ReadHeader(r io.Reader, path string, wantKind FileKind) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, &schemaerrors.BadFileHeaderError{Path: path, Reason: fmt.Sprintf("short header: %v", err)}
	}
	if string(buf[0:8]) != string(fileMagic[:]) {
		return Header{}, &schemaerrors.BadFileHeaderError{Path: path, Reason: "bad magic"}
	}
	kind := FileKind(binary.LittleEndian.Uint16(buf[12:14]))
	if kind != wantKind {
		return Header{}, &schemaerrors.BadFileHeaderError{Path: path, Reason: fmt.Sprintf("expected kind %d, got %d", wantKind, kind)}
	}
	return Header{
		Version:   binary.LittleEndian.Uint32(buf[8:12]),
		Kind:      kind,
		Flags:     binary.LittleEndian.Uint16(buf[14:16]),
		CreatedAt: binary.LittleEndian.Uint64(buf[16:24]),
		HostEpoch: binary.LittleEndian.Uint64(buf[24:32]),
	}, nil
}
