package v1

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/critfumble/encounter-api/internal/auth"
	"github.com/critfumble/encounter-api/internal/errors"
	"github.com/critfumble/encounter-api/internal/orchestrators/encounter"
)

// StreamEncounter pushes encounter snapshots to the caller over
// server-sent events. Ownership is checked before the stream opens;
// the connection stays up until the client disconnects.
func (h *Handler) StreamEncounter(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}
	encounterID := c.Param("id")

	// The ownership guard runs before any stream state is allocated, so
	// a denied caller gets a plain JSON error, not a half-open stream.
	current, err := h.encounterService.GetEncounter(c.Request.Context(), &encounter.GetEncounterInput{
		EncounterID: encounterID,
		UserID:      userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respondError(c, errors.Internal("streaming unsupported"))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.streams.Subscribe(encounterID)
	defer sub.Close()

	// Seed the stream with the state as of the ownership check so the
	// client never starts blind.
	sub.Deliver(current.Encounter)

	slog.Info("Stream opened", "encounter_id", encounterID, "user_id", userID)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stream closed", "encounter_id", encounterID, "user_id", userID)
			return
		case <-sub.Done():
			return
		case payload, ok := <-sub.Events():
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
