package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/metrics"
)

// Stats reports the size of a collection and how long loading it took.
func (e *Engine) Stats(owner, name string) (*domain.Stats, error) {
	result, err := e.stats(owner, name)
	metrics.OperationsTotal.WithLabelValues("stats", metrics.Status(err)).Inc()
	return result, err
}

func (e *Engine) stats(owner, name string) (*domain.Stats, error) {
	start := time.Now()
	docs, cached, err := e.loadAll(owner, name)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	size, err := e.store.Size(owner, name)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		Database:     name,
		Username:     owner,
		TotalRecords: len(docs),
		SizeBytes:    size,
		LoadTime:     elapsed,
		LoadTimeMS:   float64(elapsed.Microseconds()) / 1000,
		Cached:       cached,
		Timestamp:    e.now().UTC().Format(time.RFC3339),
	}, nil
}

// Backup writes a compressed snapshot of the live collection next to it.
func (e *Engine) Backup(owner, name string) (*domain.SnapshotInfo, error) {
	result, err := e.backup(owner, name)
	metrics.OperationsTotal.WithLabelValues("backup", metrics.Status(err)).Inc()
	return result, err
}

func (e *Engine) backup(owner, name string) (*domain.SnapshotInfo, error) {
	docs, err := e.store.Read(owner, name)
	if err != nil {
		return nil, err
	}

	createdAt := e.now().UTC()
	size, err := e.store.WriteSnapshot(owner, name, docs, createdAt)
	if err != nil {
		return nil, err
	}

	e.logger.Info("collection backed up",
		zap.String("owner", owner), zap.String("collection", name),
		zap.Int("documents", len(docs)), zap.Int64("bytes", size))
	return &domain.SnapshotInfo{
		Database:  name,
		Username:  owner,
		Documents: len(docs),
		SizeBytes: size,
		CreatedAt: createdAt.Format(time.RFC3339Nano),
	}, nil
}

// Restore replaces the collection with its last snapshot and drops its cached results.
func (e *Engine) Restore(owner, name string) (*domain.SnapshotInfo, error) {
	result, err := e.restore(owner, name)
	metrics.OperationsTotal.WithLabelValues("restore", metrics.Status(err)).Inc()
	return result, err
}

func (e *Engine) restore(owner, name string) (*domain.SnapshotInfo, error) {
	snap, err := e.store.ReadSnapshot(owner, name)
	if err != nil {
		return nil, err
	}

	if err := e.store.Write(owner, name, snap.Documents); err != nil {
		return nil, domain.WrapError(domain.KindPreconditionFailed, err, "restore of %s failed", name)
	}
	e.invalidate(owner, name)

	e.logger.Info("collection restored",
		zap.String("owner", owner), zap.String("collection", name),
		zap.Int("documents", len(snap.Documents)), zap.Time("snapshot", snap.CreatedAt))
	return &domain.SnapshotInfo{
		Database:  name,
		Username:  owner,
		Documents: len(snap.Documents),
		CreatedAt: snap.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}
