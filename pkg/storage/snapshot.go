package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/domain"
)

const (
	// maxSnapshotSize bounds the payload read from a snapshot file.
	maxSnapshotSize = 1 << 32
	// maxCompressionRatio is the most an lz4 block can expand on decompression.
	maxCompressionRatio = 255
)

// Snapshot is the payload of a .srdb file.
type Snapshot struct {
	Owner      string           `msgpack:"owner"`
	Collection string           `msgpack:"collection"`
	CreatedAt  time.Time        `msgpack:"created_at"`
	Documents  []document.Value `msgpack:"documents"`
}

// EncodeSnapshot writes header and lz4-compressed msgpack payload to w and
// returns the number of bytes written.
func EncodeSnapshot(w io.Writer, snap *Snapshot) (int, error) {
	raw, err := msgpack.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(raw, compressed, hashTable[:])
	if err != nil {
		return 0, fmt.Errorf("failed to compress data: %w", err)
	}

	var flags uint8
	payload := compressed[:n]
	if n == 0 || n >= len(raw) {
		flags |= FlagUncompressed
		payload = raw
	}

	if err := WriteHeader(w, flags, uint64(len(raw))); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	written, err := w.Write(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to write compressed data: %w", err)
	}
	return HeaderSize + written, nil
}

// DecodeSnapshot reads what EncodeSnapshot wrote.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if header.RawSize > maxSnapshotSize {
		return nil, fmt.Errorf("snapshot payload too large: %d bytes", header.RawSize)
	}

	payload, err := io.ReadAll(io.LimitReader(r, maxSnapshotSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read compressed data: %w", err)
	}

	// RawSize is checked against the payload before anything is allocated from it.
	raw := payload
	if header.Flags&FlagUncompressed == 0 {
		if header.RawSize > uint64(len(payload))*maxCompressionRatio {
			return nil, fmt.Errorf("snapshot header claims %d bytes from a %d byte payload", header.RawSize, len(payload))
		}
		raw = make([]byte, header.RawSize)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress data: %w", err)
		}
		raw = raw[:n]
	}
	if uint64(len(raw)) != header.RawSize {
		return nil, fmt.Errorf("snapshot payload size mismatch: header says %d, got %d", header.RawSize, len(raw))
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	if snap.Documents == nil {
		snap.Documents = []document.Value{}
	}
	return &snap, nil
}

// SnapshotPath returns <data_dir>/users/<owner>/<name>.srdb.
func (s *Store) SnapshotPath(owner, name string) string {
	return filepath.Join(s.UserDir(owner), name+SnapshotExtension)
}

// WriteSnapshot stores docs as the snapshot of a collection, replacing any
// previous one, and returns the snapshot size in bytes.
func (s *Store) WriteSnapshot(owner, name string, docs []document.Value, createdAt time.Time) (int64, error) {
	if err := validateCollection(owner, name); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	n, err := EncodeSnapshot(&buf, &Snapshot{
		Owner:      owner,
		Collection: name,
		CreatedAt:  createdAt.UTC(),
		Documents:  docs,
	})
	if err != nil {
		return 0, domain.WrapError(domain.KindPreconditionFailed, err, "failed to encode snapshot of %s", name)
	}

	if err := s.CreateUserDir(owner); err != nil {
		return 0, err
	}
	if err := s.writeAtomic(s.SnapshotPath(owner, name), buf.Bytes()); err != nil {
		return 0, domain.WrapError(domain.KindPreconditionFailed, err, "failed to write snapshot of %s", name)
	}

	s.logger.Info("wrote snapshot",
		zap.String("owner", owner),
		zap.String("collection", name),
		zap.Int("documents", len(docs)),
		zap.Int("bytes", n))
	return int64(n), nil
}

// ReadSnapshot loads the snapshot of a collection. A missing snapshot is
// not-found; a damaged one, or one written for another collection, is
// precondition-failed.
func (s *Store) ReadSnapshot(owner, name string) (*Snapshot, error) {
	if err := validateCollection(owner, name); err != nil {
		return nil, err
	}

	file, err := os.Open(s.SnapshotPath(owner, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewError(domain.KindNotFound, "no snapshot of database %s for user %s", name, owner)
		}
		return nil, domain.WrapError(domain.KindPreconditionFailed, err, "failed to open snapshot of %s", name)
	}
	defer file.Close()

	snap, err := DecodeSnapshot(file)
	if err != nil {
		return nil, domain.WrapError(domain.KindPreconditionFailed, err, "snapshot of %s is corrupt", name)
	}
	if snap.Owner != owner || snap.Collection != name {
		return nil, domain.NewError(domain.KindPreconditionFailed,
			"snapshot belongs to %s/%s, not %s/%s", snap.Owner, snap.Collection, owner, name)
	}
	return snap, nil
}
