package filter

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tgienger/stash/internal/errs"
	"github.com/tgienger/stash/internal/models"
)

// Source runs compiled predicates against stored items. Implementations
// return matches in OrderBy order.
type Source interface {
	ListItemsMatching(preds []Predicate) ([]models.Item, error)
}

// Evaluator runs filters against a Source
type Evaluator struct {
	src Source
	log *zap.Logger
}

// NewEvaluator creates an evaluator reading from src
func NewEvaluator(src Source, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{src: src, log: log.Named("filter")}
}

// Evaluate returns the items matching f. No matches is an empty slice and a
// nil error; a failing store yields an error wrapping
// errs.ErrStorageUnavailable, never an empty result.
func (e *Evaluator) Evaluate(f models.Filter) ([]models.Item, error) {
	preds := Compile(f)
	log := e.log.With(zap.String("eval_id", uuid.NewString()))
	log.Debug("evaluating filter", zap.Strings("predicates", Fields(preds)))

	items, err := e.src.ListItemsMatching(preds)
	if err != nil {
		if !errors.Is(err, errs.ErrStorageUnavailable) {
			err = errs.Storage("evaluate filter", err)
		}
		log.Error("filter evaluation failed", zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []models.Item{}
	}

	log.Debug("filter evaluated", zap.Int("matches", len(items)))
	return items, nil
}

// Count returns the number of items Evaluate would return
func (e *Evaluator) Count(f models.Filter) (int, error) {
	items, err := e.Evaluate(f)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// MemorySource is a Source over an in-memory slice, for previews of unsaved
// drafts against a loaded corpus.
type MemorySource []models.Item

// ListItemsMatching implements Source
func (m MemorySource) ListItemsMatching(preds []Predicate) ([]models.Item, error) {
	var out []models.Item
	for _, it := range m {
		if Matches(preds, it) {
			out = append(out, it)
		}
	}
	Sort(out)
	return out, nil
}
