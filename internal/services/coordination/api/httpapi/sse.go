package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/broadcast"
)

const sseKeepAliveInterval = 25 * time.Second

type sseEnvelope struct {
	Sequence       int64     `json:"sequence"`
	Type           string    `json:"type"`
	InstanceID     string    `json:"instance_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Payload        any       `json:"payload"`
}

// handleEvents streams an instance's broadcast channel as server-sent events.
// Only events published after the subscription attaches are delivered; a
// client reconciles its starting state through the status endpoint.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		WriteError(w, errors.New(errors.CodeUnknown, "event streaming is not enabled"))
		return
	}
	instanceID := r.PathValue("id")
	if _, err := h.coordinator.Status(RequestContext(r), instanceID); err != nil {
		WriteError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, errors.New(errors.CodeUnknown, "streaming is unsupported by this connection"))
		return
	}

	sub := h.broker.Subscribe(instanceID)
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event broadcast.SequencedEvent) error {
	body, err := json.Marshal(sseEnvelope{
		Sequence:       event.Sequence,
		Type:           string(event.Event.Type),
		InstanceID:     event.Event.InstanceID,
		OrganizationID: event.Event.OrganizationID,
		Timestamp:      event.Event.Timestamp,
		Payload:        event.Event.Payload(),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Sequence, event.Event.Type, body)
	return err
}
