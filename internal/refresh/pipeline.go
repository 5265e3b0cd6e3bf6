// Package refresh orchestrates the daily answer rotation: pick the word,
// resolve its vector, rank its neighbors, publish in-process state, and rotate
// the durable cache.
package refresh

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ssamantle/ssamantle/internal/cache"
	"github.com/ssamantle/ssamantle/internal/models"
	"github.com/ssamantle/ssamantle/internal/picker"
	"github.com/ssamantle/ssamantle/internal/source"
	"github.com/ssamantle/ssamantle/internal/vectorsearch"
)

// widenBy is how many extra neighbors the retry query asks for when the first
// k+1 query under-fills after filtering. Search engines return a handful of
// low-quality or duplicate hits near the boundary; one widened retry refills
// the list.
const widenBy = 50

// StateStore is the single-slot holder the pipeline publishes to.
type StateStore interface {
	Get() (models.AnswerState, bool)
	Set(models.AnswerState)
}

// Result is the outcome of one pipeline run.
type Result struct {
	State models.AnswerState
	TopK  []models.Neighbor
}

// Pipeline runs the daily refresh. The vector store and cache are optional
// capabilities: when absent the pipeline degrades (no vector, no rotation)
// instead of failing. Runs are serialized by an internal mutex; running twice
// for the same date is safe and converges on the same observable state.
type Pipeline struct {
	source source.Source
	store  vectorsearch.Store
	state  StateStore
	cache  cache.DailyCache
	topK   int
	logger *zap.Logger
	mu     sync.Mutex
}

// NewPipeline creates a pipeline. store and dailyCache may be nil when those
// backends are unavailable; src, stateStore, and logger are required.
func NewPipeline(
	src source.Source,
	store vectorsearch.Store,
	stateStore StateStore,
	dailyCache cache.DailyCache,
	topK int,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		source: src,
		store:  store,
		state:  stateStore,
		cache:  dailyCache,
		topK:   topK,
		logger: logger,
	}
}

// Run refreshes the answer state for date. The state is published to the
// StateStore as soon as the answer and its vector are known, before neighbor
// search, so readers can serve "today's answer" even if the rest fails. On
// error the StateStore keeps whatever was last successfully published; a
// failed cache rotation is returned as an error but leaves in-process state
// correct, to be repaired by the next run.
func (p *Pipeline) Run(ctx context.Context, date string) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := uuid.New().String()[:8]
	log := p.logger.With(zap.String("run_id", runID), zap.String("date", date))

	candidates, err := p.source.ListAnswers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	answer, err := picker.Pick(date, candidates)
	if err != nil {
		return nil, fmt.Errorf("pick answer: %w", err)
	}

	var vector []float32
	if p.store != nil {
		vector, err = p.store.GetVector(ctx, answer)
		if err != nil {
			return nil, fmt.Errorf("get answer vector: %w", err)
		}
	} else {
		log.Warn("vector store unavailable, publishing answer without vector")
	}

	st := models.AnswerState{Date: date, Answer: answer, Vector: vector}
	p.state.Set(st)
	log.Info("answer state published",
		zap.Int("candidates", len(candidates)),
		zap.Bool("vector_ready", st.HasVector()),
	)

	var topK []models.Neighbor
	if vector != nil {
		topK, err = p.searchTopK(ctx, answer, vector, log)
		if err != nil {
			// State stays published: today's answer is more valuable to
			// readers than today's neighbor ranking.
			return nil, fmt.Errorf("neighbor search: %w", err)
		}
	} else {
		log.Warn("no vector for answer, neighbor ranking will be empty")
	}

	if err := p.rotate(ctx, date, answer, topK, log); err != nil {
		log.Warn("cache rotation failed, durable cache is stale until next run", zap.Error(err))
		return nil, fmt.Errorf("rotate cache: %w", err)
	}

	return &Result{State: st, TopK: topK}, nil
}

// searchTopK queries k+1 neighbors (the answer usually ranks first in its own
// neighborhood), filters, and retries once with a widened count when fewer
// than k survive. Ending up short after the retry is logged, not an error.
func (p *Pipeline) searchTopK(ctx context.Context, answer string, vector []float32, log *zap.Logger) ([]models.Neighbor, error) {
	raw, err := p.store.KNN(ctx, vector, p.topK+1)
	if err != nil {
		return nil, err
	}
	filtered := filterNeighbors(raw, answer)

	if len(filtered) < p.topK {
		widened, err := p.store.KNN(ctx, vector, p.topK+widenBy)
		if err != nil {
			return nil, err
		}
		filtered = filterNeighbors(widened, answer)
	}

	if len(filtered) > p.topK {
		filtered = filtered[:p.topK]
	}
	if len(filtered) < p.topK {
		log.Info("neighbor list under-filled after widened retry",
			zap.Int("got", len(filtered)),
			zap.Int("want", p.topK),
		)
	}
	return filtered, nil
}

// filterNeighbors trims words and drops blanks, the answer itself, and
// duplicates, preserving the engine's descending-score order.
func filterNeighbors(items []models.Neighbor, answer string) []models.Neighbor {
	seen := make(map[string]bool, len(items))
	out := make([]models.Neighbor, 0, len(items))
	for _, item := range items {
		word := strings.TrimSpace(item.Word)
		if word == "" || word == answer || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, models.Neighbor{Word: word, Score: item.Score})
	}
	return out
}

// rotate makes date's record authoritative: write the record, flip the active
// pointer, then delete the previously active date's record. The previous date
// is whatever the pointer named before the flip, so rotation is robust to
// skipped days. Deleting an already-deleted record is a no-op, which keeps
// repeated or concurrent rotations convergent.
func (p *Pipeline) rotate(ctx context.Context, date, answer string, topK []models.Neighbor, log *zap.Logger) error {
	if p.cache == nil {
		log.Warn("durable cache unavailable, skipping rotation")
		return nil
	}

	previous, err := p.cache.ActiveDate(ctx)
	if err != nil {
		return err
	}
	if err := p.cache.SaveAnswer(ctx, date, answer); err != nil {
		return err
	}
	if err := p.cache.SaveTopK(ctx, date, topK); err != nil {
		return err
	}
	if err := p.cache.SetActiveDate(ctx, date); err != nil {
		return err
	}
	if previous != "" && previous != date {
		if err := p.cache.DeleteDay(ctx, previous); err != nil {
			return err
		}
	}
	log.Info("cache rotated",
		zap.String("previous_active", previous),
		zap.Int("topk", len(topK)),
	)
	return nil
}
