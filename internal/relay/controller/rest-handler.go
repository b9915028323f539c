package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamhive/watchparty/internal/relay/service"
)

type postMessageInput struct {
	User string `json:"user" validate:"max=32"`
	Text string `json:"text" validate:"required,max=1000"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// postMessage is the development stand-in for the backend chat endpoint.
func (c controller) postMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")

	var input postMessageInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&input); err != nil {
		c.logger.InfoContext(r.Context(), "postMessage", "read json err", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.InfoContext(r.Context(), "postMessage", "validate err", validationErrors)
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": validationErrors})
		return
	}

	if input.User == "" {
		input.User = "anonymous"
	}

	b := c.relayService.PostMessage(r.Context(), &service.PostMessageParams{
		RoomID: roomID,
		User:   input.User,
		Text:   input.Text,
	})
	c.broadcast(r.Context(), b)

	writeJSON(w, http.StatusCreated, b.Message)
}
