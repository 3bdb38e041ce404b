package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/providers"
)

// SuggestionCachePattern matches every cached autocomplete list
const SuggestionCachePattern = suggestionKeyPrefix + "*"

// CacheInvalidationService drops cached suggestions when facilities change
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for facility updates
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelFacilityUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to facility updates: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	log.Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops listening and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.FacilityEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent clears all suggestion lists. A renamed, rated or removed
// facility can appear under any keyword.
func (s *CacheInvalidationService) handleEvent(event *entities.FacilityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := log.With().
		Str("event_id", event.ID).
		Int64("facility_id", event.FacilityID).
		Str("event_type", string(event.EventType)).
		Logger()

	if err := s.InvalidateSuggestions(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate suggestion cache")
		return
	}
	logger.Debug().Msg("invalidated suggestion cache")
}

// InvalidateSuggestions removes every cached autocomplete list
func (s *CacheInvalidationService) InvalidateSuggestions(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, SuggestionCachePattern); err != nil {
		return fmt.Errorf("failed to invalidate pattern %s: %w", SuggestionCachePattern, err)
	}
	return nil
}

// InvalidateKeyword removes the cached list of a single keyword
func (s *CacheInvalidationService) InvalidateKeyword(ctx context.Context, keyword string) error {
	if err := s.cache.Delete(ctx, SuggestionCacheKey(keyword)); err != nil {
		return fmt.Errorf("failed to invalidate keyword %q: %w", keyword, err)
	}
	return nil
}
