// Package sessions serves the REST view of a user's conversation
// history, for client screens that list past chats without opening a
// WebSocket.
package sessions

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/identity"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
	identitymodel "github.com/ilam0602/glg-mobile-messages-ws/internal/model/identity"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/store"
	"github.com/ilam0602/glg-mobile-messages-ws/pkg/utils"
)

type Handler struct {
	verifier    identity.Verifier
	directory   identity.Directory
	transcripts store.TranscriptStore
	logger      zerolog.Logger
}

func New(verifier identity.Verifier, directory identity.Directory, transcripts store.TranscriptStore, logger zerolog.Logger) *Handler {
	return &Handler{
		verifier:    verifier,
		directory:   directory,
		transcripts: transcripts,
		logger:      logger.With().Str("component", "sessions").Logger(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/{sessionID}/messages", h.handleMessages)
}

type sessionSummary struct {
	SessionID    string      `json:"sessionId"`
	LastActivity int64       `json:"lastActivity,omitempty"`
	Status       chat.Status `json:"status"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	ids, err := h.directory.Sessions(r.Context(), ident.UID)
	if err != nil {
		h.logger.Error().Err(err).Str("uid", ident.UID).Msg("session list lookup failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not load sessions")
		return
	}

	summaries := make([]sessionSummary, 0, len(ids))
	for _, id := range ids {
		summary := sessionSummary{SessionID: id, Status: chat.StatusStale}
		latest, err := h.transcripts.Latest(r.Context(), id)
		if err != nil {
			h.logger.Warn().Err(err).Str("session_id", id).Msg("latest message lookup failed")
		} else if latest != nil {
			summary.LastActivity = latest.Timestamp
			summary.Status = chat.StatusAt(time.Unix(latest.Timestamp, 0), time.Now())
		}
		summaries = append(summaries, summary)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	history, err := h.transcripts.History(r.Context(), sessionID)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("transcript load failed")
		utils.RespondError(w, http.StatusInternalServerError, "could not load messages")
		return
	}

	// Someone else's session looks identical to a nonexistent one.
	if len(history) > 0 && history[0].OwnerUID != ident.UID {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  history,
	})
}

// authenticate resolves the bearer token to an identity, writing the
// error response itself on failure.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (identitymodel.Identity, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
		return identitymodel.Identity{}, false
	}

	ident, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "invalid token")
		return identitymodel.Identity{}, false
	}
	return ident, true
}
