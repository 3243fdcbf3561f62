package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/observability"
)

const defaultHeartbeatInterval = 30 * time.Second

// SSEHandler handles Server-Sent Events for real-time portal updates
type SSEHandler struct {
	eventBus  providers.EventBus
	clients   map[string]map[chan *entities.PortalEvent]bool // channel -> clients
	mu        sync.RWMutex
	heartbeat time.Duration
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		clients:   make(map[string]map[chan *entities.PortalEvent]bool),
		heartbeat: defaultHeartbeatInterval,
	}
}

// SetHeartbeatInterval overrides the keep-alive period
func (h *SSEHandler) SetHeartbeatInterval(interval time.Duration) {
	if interval > 0 {
		h.heartbeat = interval
	}
}

// StreamQueueUpdates handles GET /api/stream/queue
func (h *SSEHandler) StreamQueueUpdates(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, providers.EventChannelQueue, map[string]interface{}{
		"channel": "queue",
	})
}

// StreamPatientUpdates handles GET /api/stream/patients/{id}
func (h *SSEHandler) StreamPatientUpdates(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}
	h.stream(w, r, providers.GetPatientChannel(patientID), map[string]interface{}{
		"patient_id": patientID,
	})
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, channel string, hello map[string]interface{}) {
	logger := observability.LoggerFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventChan, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	clientChan := make(chan *entities.PortalEvent, 10)
	h.registerClient(channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	hello["timestamp"] = time.Now()
	h.sendEvent(w, "connected", hello)
	flusher.Flush()

	go h.forwardEvents(r.Context(), eventChan, clientChan)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Str("channel", channel).Msg("client disconnected from stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-clientChan:
			if !ok {
				// the event bus ended the subscription; closing lets the client reconnect
				logger.Info().Str("channel", channel).Msg("event stream closed by event bus")
				return
			}
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// forwardEvents forwards events from the event bus to a client channel and
// closes it once the subscription ends
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.PortalEvent, clientChan chan<- *entities.PortalEvent) {
	defer close(clientChan)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- event:
			default:
				// slow client, drop
			}
		}
	}
}

func (h *SSEHandler) registerClient(channel string, clientChan chan *entities.PortalEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.PortalEvent]bool)
	}
	h.clients[channel][clientChan] = true
	observability.GetLogger().Debug().
		Str("channel", channel).
		Int("clients", len(h.clients[channel])).
		Msg("client registered")
}

func (h *SSEHandler) unregisterClient(channel string, clientChan chan *entities.PortalEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[channel]; exists {
		delete(clients, clientChan)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
