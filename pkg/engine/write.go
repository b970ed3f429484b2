package engine

import (
	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/match"
	"github.com/sarychdb/sarychdb/pkg/metrics"
)

// Insert appends doc to the collection and returns what was stored. Objects are
// stamped with a fresh _id and _created_at, replacing any values the caller
// supplied under those names; other values are appended as given.
func (e *Engine) Insert(owner, name string, doc document.Value) (document.Value, error) {
	stored, err := e.insert(owner, name, doc)
	metrics.OperationsTotal.WithLabelValues("insert", metrics.Status(err)).Inc()
	return stored, err
}

func (e *Engine) insert(owner, name string, doc document.Value) (document.Value, error) {
	docs, err := e.store.Read(owner, name)
	if err != nil {
		return document.Value{}, err
	}

	stored := doc.Clone()
	if obj := stored.Object(); obj != nil {
		obj.Set(domain.FieldID, document.String(e.newID()))
		obj.Set(domain.FieldCreatedAt, document.String(e.timestamp()))
	}

	docs = append(docs, stored)
	if err := e.store.Write(owner, name, docs); err != nil {
		return document.Value{}, domain.WrapError(domain.KindPreconditionFailed, err, "insert into %s failed", name)
	}
	e.invalidate(owner, name)

	metrics.DocumentsWrittenTotal.WithLabelValues("insert").Inc()
	e.logger.Info("document inserted",
		zap.String("owner", owner), zap.String("collection", name), zap.Int("total", len(docs)))
	return stored.Clone(), nil
}

// Update merges patch into matching documents and stamps _updated_at on each.
// With id set, only the first document whose _id equals id is touched;
// otherwise every document matching query is. It returns the number of
// documents changed. When nothing matches the collection file is left alone.
// If the rewrite fails the count is reported as zero together with the error,
// since nothing was persisted.
func (e *Engine) Update(owner, name, query, id string, patch document.Value) (int, error) {
	n, err := e.update(owner, name, query, id, patch)
	metrics.OperationsTotal.WithLabelValues("update", metrics.Status(err)).Inc()
	return n, err
}

func (e *Engine) update(owner, name, query, id string, patch document.Value) (int, error) {
	if query == "" && id == "" {
		return 0, domain.NewError(domain.KindNotApplicable, "update requires a query or an idUpdate")
	}
	fields := patch.Object()
	if fields == nil {
		return 0, domain.NewError(domain.KindInvalidArgument, "update body must be a JSON object, got %s", patch.Kind())
	}

	docs, err := e.store.Read(owner, name)
	if err != nil {
		return 0, err
	}

	stamp := document.String(e.timestamp())
	updated := 0
	for _, doc := range docs {
		obj := doc.Object()
		if obj == nil {
			continue
		}
		if id != "" {
			if !hasID(obj, id) {
				continue
			}
		} else if !match.Contains(doc, query) {
			continue
		}

		fields.Range(func(k string, v document.Value) bool {
			obj.Set(k, v.Clone())
			return true
		})
		obj.Set(domain.FieldUpdatedAt, stamp)
		updated++

		if id != "" {
			break
		}
	}

	if updated == 0 {
		return 0, nil
	}
	if err := e.store.Write(owner, name, docs); err != nil {
		return 0, domain.WrapError(domain.KindPreconditionFailed, err, "update of %s failed", name)
	}
	e.invalidate(owner, name)

	metrics.DocumentsWrittenTotal.WithLabelValues("update").Add(float64(updated))
	e.logger.Info("documents updated",
		zap.String("owner", owner), zap.String("collection", name),
		zap.Bool("by_id", id != ""), zap.Int("count", updated))
	return updated, nil
}

// Delete removes every document matching query and returns how many went.
// When nothing matches the collection file is left alone.
func (e *Engine) Delete(owner, name, query string) (int, error) {
	n, err := e.delete(owner, name, query)
	metrics.OperationsTotal.WithLabelValues("delete", metrics.Status(err)).Inc()
	return n, err
}

func (e *Engine) delete(owner, name, query string) (int, error) {
	if query == "" {
		return 0, domain.NewError(domain.KindNotApplicable, "delete requires a query")
	}

	docs, err := e.store.Read(owner, name)
	if err != nil {
		return 0, err
	}

	kept := make([]document.Value, 0, len(docs))
	for _, doc := range docs {
		if !match.Contains(doc, query) {
			kept = append(kept, doc)
		}
	}

	removed := len(docs) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := e.store.Write(owner, name, kept); err != nil {
		return 0, domain.WrapError(domain.KindPreconditionFailed, err, "delete from %s failed", name)
	}
	e.invalidate(owner, name)

	metrics.DocumentsWrittenTotal.WithLabelValues("delete").Add(float64(removed))
	e.logger.Info("documents deleted",
		zap.String("owner", owner), zap.String("collection", name), zap.Int("count", removed))
	return removed, nil
}

// hasID compares the _id field by its text, so numeric ids written by hand still match.
func hasID(obj *document.Object, id string) bool {
	v, ok := obj.Get(domain.FieldID)
	if !ok {
		return false
	}
	text, ok := v.Text()
	return ok && text == id
}
