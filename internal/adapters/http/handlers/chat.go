package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/adapters/http/dto"
	"github.com/longregen/promptloop/internal/ports"
)

type ChatHandler struct {
	generateReply ports.GenerateReplyUseCase
	logger        *zap.Logger
}

func NewChatHandler(generateReply ports.GenerateReplyUseCase, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{generateReply: generateReply, logger: logger}
}

// Send runs one chat turn under the active prompt
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[dto.ChatRequest](r, w)
	if !ok {
		return
	}

	out, err := h.generateReply.Execute(r.Context(), &ports.GenerateReplyInput{
		SessionID: req.SessionID,
		Content:   req.Message,
	})
	if err != nil {
		h.logger.Warn("chat turn failed", zap.String("session_id", req.SessionID), zap.Error(err))
		respondDomainError(w, r, err)
		return
	}

	respond(w, r, dto.FromGenerateReplyOutput(out), http.StatusOK)
}
