package storage

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MagicBytes identifies a snapshot file.
	MagicBytes = "SRDB"
	// FormatVersion is the only snapshot layout this package reads and writes.
	FormatVersion = 1
	// SnapshotExtension is appended to the collection name.
	SnapshotExtension = ".srdb"
)

// Header flags.
const (
	// FlagUncompressed marks a payload stored raw because lz4 could not shrink it.
	FlagUncompressed uint8 = 1 << 0
)

// HeaderSize is the encoded size of FileHeader.
const HeaderSize = 16

// FileHeader precedes the payload of every snapshot.
type FileHeader struct {
	Magic    [4]byte // "SRDB"
	Version  uint8
	Flags    uint8
	Reserved [2]byte
	RawSize  uint64 // msgpack payload size before compression
}

// WriteHeader writes a header for a payload of rawSize bytes.
func WriteHeader(w io.Writer, flags uint8, rawSize uint64) error {
	header := FileHeader{
		Magic:   [4]byte{'S', 'R', 'D', 'B'},
		Version: FormatVersion,
		Flags:   flags,
		RawSize: rawSize,
	}
	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates a header.
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %q", MagicBytes, string(header.Magic[:]))
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}
	return &header, nil
}
