// Package handler содержит HTTP-обработчики сервиса контроля расходов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/spendcontrol-system/internal/middleware"
	"github.com/mmeshcher/spendcontrol-system/internal/model"
	"github.com/mmeshcher/spendcontrol-system/internal/repository"
	"github.com/mmeshcher/spendcontrol-system/internal/validation"
)

// Service определяет контракт оценки авторизаций, используемый HTTP-обработчиками.
type Service interface {
	Authorize(ctx context.Context, req model.AuthorizationRequest) (model.Verdict, error)
}

// DecisionRecorder определяет контракт журнала решений.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, req model.AuthorizationRequest, verdict model.Verdict) error
	GetDecisionsByCard(ctx context.Context, cardID string, limit int) ([]model.DecisionRecord, error)
}

// Handler реализует HTTP-обработчики API сервиса контроля расходов.
type Handler struct {
	service        Service
	audit          DecisionRecorder
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// audit может быть nil — журнал решений опционален.
func NewHandler(s Service, audit DecisionRecorder, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		audit:          audit,
		logger:         logger,
		authMiddleware: auth,
	}
}

type authorizationRequest struct {
	CardID string `json:"card_id"`
	Amount struct {
		Amount int64 `json:"amount"`
	} `json:"amount"`
	TransactionTime time.Time `json:"transaction_time"`
}

type authorizationResponse struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason,omitempty"`
}

// Authorize обрабатывает запрос на авторизацию транзакции по карте.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCardID(req.CardID) || req.Amount.Amount <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	authReq := model.AuthorizationRequest{
		ID:              uuid.New(),
		CardID:          req.CardID,
		AmountCents:     req.Amount.Amount,
		TransactionTime: req.TransactionTime,
	}

	verdict, err := h.service.Authorize(r.Context(), authReq)
	if err != nil {
		h.logger.Error("authorize error",
			zap.Error(err),
			zap.String("authorizationID", authReq.ID.String()),
			zap.String("cardID", authReq.CardID),
		)
	}

	h.recordDecision(r.Context(), authReq, verdict)

	status := http.StatusOK
	switch verdict.Decision {
	case model.DecisionDeclined:
		status = http.StatusPaymentRequired
	case model.DecisionError:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := authorizationResponse{
		Verdict: string(verdict.Decision),
		Reason:  verdict.Reason,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// Сбой журнала не влияет на вердикт: он журналируется и подавляется.
func (h *Handler) recordDecision(ctx context.Context, req model.AuthorizationRequest, verdict model.Verdict) {
	if h.audit == nil {
		return
	}

	err := h.audit.RecordDecision(ctx, req, verdict)
	if err != nil && !errors.Is(err, repository.ErrDuplicateDecision) {
		h.logger.Error("record decision error",
			zap.Error(err),
			zap.String("authorizationID", req.ID.String()),
		)
	}
}

type decisionResponse struct {
	AuthorizationID string `json:"authorization_id"`
	CardID          string `json:"card_id"`
	AmountCents     int64  `json:"amount_cents"`
	Verdict         string `json:"verdict"`
	Reason          string `json:"reason,omitempty"`
	DecidedAt       string `json:"decided_at"`
}

// GetDecisions возвращает последние решения по карте из журнала.
func (h *Handler) GetDecisions(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if !validation.IsValidCardID(cardID) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	decisions, err := h.audit.GetDecisionsByCard(r.Context(), cardID, 100)
	if err != nil {
		h.logger.Error("get decisions error", zap.Error(err), zap.String("cardID", cardID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(decisions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]decisionResponse, 0, len(decisions))
	for _, d := range decisions {
		resp = append(resp, decisionResponse{
			AuthorizationID: d.AuthorizationID.String(),
			CardID:          d.CardID,
			AmountCents:     d.AmountCents,
			Verdict:         string(d.Decision),
			Reason:          d.Reason,
			DecidedAt:       d.DecidedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// Ping отвечает на проверку живости сервиса.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
