package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/RichardoC/textwriter/internal/chat"
	"github.com/RichardoC/textwriter/internal/models"
)

// ManagerFactory mounts a fresh conversation for a new screen session.
type ManagerFactory func() *chat.Manager

type Handler struct {
	newManager ManagerFactory
	logger     *zap.Logger

	mu      sync.RWMutex
	manager *chat.Manager
}

func NewHandler(newManager ManagerFactory, logger *zap.Logger) *Handler {
	return &Handler{
		newManager: newManager,
		logger:     logger,
		manager:    newManager(),
	}
}

type MessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	Message models.Message `json:"message"`
}

type CopyResponse struct {
	Text string `json:"text"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/message", h.HandleMessage)
	mux.HandleFunc("/api/messages", h.GetMessages)
	mux.HandleFunc("/api/messages/like", h.ToggleLike)
	mux.HandleFunc("/api/messages/copy", h.CopyText)
	mux.HandleFunc("/api/messages/regenerate", h.Regenerate)
	mux.HandleFunc("/api/conversation/reset", h.ResetConversation)
}

func (h *Handler) current() *chat.Manager {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.manager
}

func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// A generation already in flight runs to completion even if the client goes away.
	reply, err := h.current().Submit(context.WithoutCancel(r.Context()), req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: reply})
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conv := h.current().Snapshot()
	h.logger.Debug("Retrieved messages",
		zap.Int("count", len(conv.Messages)),
		zap.Bool("busy", conv.Busy))
	h.writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	msg, err := h.current().ToggleLike(r.URL.Query().Get("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (h *Handler) CopyText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, err := h.current().CopyText(r.URL.Query().Get("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, CopyResponse{Text: text})
}

func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reply, err := h.current().Regenerate(context.WithoutCancel(r.Context()), r.URL.Query().Get("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: reply})
}

// ResetConversation discards the current conversation and mounts a new
// one. A request still in flight resolves into the discarded manager.
func (h *Handler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	h.manager = h.newManager()
	conv := h.manager.Snapshot()
	h.mu.Unlock()

	h.logger.Info("Conversation reset")
	h.writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chat.ErrEmptyPrompt):
		status = http.StatusBadRequest
	case errors.Is(err, chat.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, chat.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chat.ErrNotLikeable), errors.Is(err, chat.ErrNotRegenerable):
		status = http.StatusBadRequest
	default:
		h.logger.Error("Request failed", zap.Error(err))
	}
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
