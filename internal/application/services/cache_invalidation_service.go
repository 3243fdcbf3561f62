package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// CacheInvalidationService drops cached case insights once a case is closed
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for portal events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelQueue)
	if err != nil {
		return fmt.Errorf("failed to subscribe to portal events: %w", err)
	}

	go s.processEvents(eventChan)
	observability.GetLogger().Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	<-s.done
	observability.GetLogger().Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.PortalEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event != nil {
				s.handleEvent(event)
			}
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.PortalEvent) {
	if event.Type != entities.PortalEventDoctorNoteCreated {
		return
	}

	// Data is a *DoctorNote in process and a decoded JSON object over Redis.
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	var note struct {
		SymptomCheckID string `json:"symptomCheckId"`
	}
	if err := json.Unmarshal(raw, &note); err != nil || note.SymptomCheckID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	if err := s.InvalidateInsights(ctx, note.SymptomCheckID); err != nil {
		observability.GetLogger().Warn().Err(err).Str("symptom_check_id", note.SymptomCheckID).Msg("failed to invalidate case insights")
	}
}

// InvalidateInsights removes the cached insights for one symptom check
func (s *CacheInvalidationService) InvalidateInsights(ctx context.Context, symptomCheckID string) error {
	if err := s.cache.Delete(ctx, InsightsCacheKey(symptomCheckID)); err != nil {
		return fmt.Errorf("failed to invalidate insights cache: %w", err)
	}
	return nil
}
