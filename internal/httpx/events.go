package httpx

import (
	"fmt"
	"net/http"

	"github.com/duongph/go-order-fulfillment/internal/apperr"
	"github.com/duongph/go-order-fulfillment/internal/bus"
)

// events streams the caller's bus topics over SSE. Topic membership is fixed
// once per connection: a role change mid-session does not re-bind topics.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeErr(w, apperr.New(apperr.CodeInvalidInput, "user_id required"))
		return
	}
	topics := []string{bus.UserTopic(userID)}
	if q.Get("role") == "staff" {
		topics = append(topics, bus.GroupTopic(h.StaffGroupID))
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, apperr.New(apperr.CodeDependencyUnavailable, "streaming unsupported"))
		return
	}

	msgs, closeSub, err := h.Bus.Subscribe(r.Context(), topics...)
	if err != nil {
		writeErr(w, apperr.Wrap(apperr.CodeDependencyUnavailable, "event bus unavailable", err))
		return
	}
	defer func() { _ = closeSub() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Topic, m.Payload)
			flusher.Flush()
		}
	}
}
