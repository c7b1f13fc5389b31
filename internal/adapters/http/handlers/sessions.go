package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/http/dto"
	"github.com/longregen/promptloop/internal/ports"
)

type SessionsHandler struct {
	conversations ports.ConversationService
	historyLimit  int
	logger        *zap.Logger
}

func NewSessionsHandler(conversations ports.ConversationService, historyLimit int, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{conversations: conversations, historyLimit: historyLimit, logger: logger}
}

// Messages returns a session's recent messages, oldest first
func (h *SessionsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := validateURLParam(r, w, "id", "Session ID")
	if !ok {
		return
	}
	limit := parseIntQuery(r, "limit", h.historyLimit)

	messages, err := h.conversations.History(r.Context(), sessionID, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, dto.FromMessageModelList(messages), http.StatusOK)
}

// Reset deletes every conversation message. The prompt ledger is untouched.
func (h *SessionsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.conversations.ResetHistory(r.Context())
	if err != nil {
		h.logger.Error("history reset failed", zap.Error(err))
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, &dto.ResetResponse{Deleted: deleted}, http.StatusOK)
}
