package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
)

const defaultIndexBatchSize = 500

// SuggestionIndexWriter accepts facility documents for the suggestion index
type SuggestionIndexWriter interface {
	Index(ctx context.Context, facility *entities.Facility) error
}

// SuggestionIndexer copies active facilities into the suggestion index
type SuggestionIndexer struct {
	facilities repositories.FacilityRepository
	index      SuggestionIndexWriter
	batchSize  int
}

// NewSuggestionIndexer creates a new indexer. batchSize <= 0 uses the default.
func NewSuggestionIndexer(facilities repositories.FacilityRepository, index SuggestionIndexWriter, batchSize int) *SuggestionIndexer {
	if batchSize <= 0 {
		batchSize = defaultIndexBatchSize
	}
	return &SuggestionIndexer{
		facilities: facilities,
		index:      index,
		batchSize:  batchSize,
	}
}

// IndexStats summarizes one reindex pass
type IndexStats struct {
	Indexed int
	Failed  int
}

// Reindex pages through every active facility. Per-document failures are
// counted and skipped; a failed page read aborts the pass.
func (i *SuggestionIndexer) Reindex(ctx context.Context) (IndexStats, error) {
	var stats IndexStats
	var afterID int64

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		batch, err := i.facilities.ListForIndexing(ctx, afterID, i.batchSize)
		if err != nil {
			return stats, fmt.Errorf("failed to list facilities after id %d: %w", afterID, err)
		}

		for _, facility := range batch {
			if err := i.index.Index(ctx, facility); err != nil {
				stats.Failed++
				log.Warn().Err(err).Int64("facility_id", facility.ID).Msg("failed to index facility")
				continue
			}
			stats.Indexed++
		}

		if len(batch) < i.batchSize {
			return stats, nil
		}
		afterID = batch[len(batch)-1].ID
	}
}
