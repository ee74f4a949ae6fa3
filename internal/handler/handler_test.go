package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/spendcontrol-system/internal/middleware"
	"github.com/mmeshcher/spendcontrol-system/internal/model"
)

type stubService struct {
	verdict model.Verdict
	err     error

	lastRequest model.AuthorizationRequest
}

func (s *stubService) Authorize(ctx context.Context, req model.AuthorizationRequest) (model.Verdict, error) {
	s.lastRequest = req
	return s.verdict, s.err
}

type stubRecorder struct {
	recorded []model.AuthorizationRequest
	verdicts []model.Verdict
	err      error

	decisions []model.DecisionRecord
}

func (s *stubRecorder) RecordDecision(ctx context.Context, req model.AuthorizationRequest, verdict model.Verdict) error {
	s.recorded = append(s.recorded, req)
	s.verdicts = append(s.verdicts, verdict)
	return s.err
}

func (s *stubRecorder) GetDecisionsByCard(ctx context.Context, cardID string, limit int) ([]model.DecisionRecord, error) {
	return s.decisions, nil
}

func newTestHandler(t *testing.T, svc Service, audit DecisionRecorder) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("")

	return NewHandler(svc, audit, logger, auth)
}

func authorizeBody(t *testing.T, cardID string, amountCents int64) *bytes.Reader {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"card_id":          cardID,
		"amount":           map[string]int64{"amount": amountCents},
		"transaction_time": time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(body)
}

func TestAuthorize_Approved(t *testing.T) {
	svc := &stubService{verdict: model.Approved()}
	h := newTestHandler(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/authorizations", authorizeBody(t, "card-1", 2999))
	rec := httptest.NewRecorder()

	h.Authorize(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var resp authorizationResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Verdict != string(model.DecisionApproved) {
		t.Fatalf("verdict = %q, want APPROVED", resp.Verdict)
	}

	if svc.lastRequest.CardID != "card-1" || svc.lastRequest.AmountCents != 2999 {
		t.Fatalf("unexpected request passed to service: %+v", svc.lastRequest)
	}
	if svc.lastRequest.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatalf("authorization id was not assigned")
	}
}

func TestAuthorize_DeclinedIsPaymentRequired(t *testing.T) {
	svc := &stubService{verdict: model.Declined("weekly spend limit reached: 100.00 of 100.00")}
	h := newTestHandler(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/authorizations", authorizeBody(t, "card-1", 4000))
	rec := httptest.NewRecorder()

	h.Authorize(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusPaymentRequired)
	}

	var resp authorizationResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Reason, "weekly spend limit reached") {
		t.Fatalf("reason = %q, want limit message", resp.Reason)
	}
}

func TestAuthorize_ErrorIsInternalServerError(t *testing.T) {
	svc := &stubService{
		verdict: model.Errored("transaction ledger unavailable"),
		err:     context.DeadlineExceeded,
	}
	h := newTestHandler(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/authorizations", authorizeBody(t, "card-1", 100))
	rec := httptest.NewRecorder()

	h.Authorize(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}
}

func TestAuthorize_MalformedBody(t *testing.T) {
	h := newTestHandler(t, &stubService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/authorizations", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Authorize(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestAuthorize_InvalidFieldsRejected(t *testing.T) {
	tests := []struct {
		name   string
		cardID string
		amount int64
	}{
		{"empty card id", "", 100},
		{"bad card id", "card 1", 100},
		{"zero amount", "card-1", 0},
		{"negative amount", "card-1", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{}, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/authorizations", authorizeBody(t, tt.cardID, tt.amount))
			rec := httptest.NewRecorder()

			h.Authorize(rec, req)

			res := rec.Result()
			if res.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestAuthorize_RecordsDecision(t *testing.T) {
	svc := &stubService{verdict: model.Declined("daily spend limit reached: 50.00 of 50.00")}
	audit := &stubRecorder{}
	h := newTestHandler(t, svc, audit)

	req := httptest.NewRequest(http.MethodPost, "/api/authorizations", authorizeBody(t, "card-1", 5000))
	rec := httptest.NewRecorder()

	h.Authorize(rec, req)

	if len(audit.recorded) != 1 {
		t.Fatalf("recorded = %d decisions, want 1", len(audit.recorded))
	}
	if audit.verdicts[0].Decision != model.DecisionDeclined {
		t.Fatalf("recorded decision = %s, want DECLINED", audit.verdicts[0].Decision)
	}
}

func TestAuthorize_AuditFailureDoesNotChangeVerdict(t *testing.T) {
	svc := &stubService{verdict: model.Approved()}
	audit := &stubRecorder{err: context.DeadlineExceeded}
	h := newTestHandler(t, svc, audit)

	req := httptest.NewRequest(http.MethodPost, "/api/authorizations", authorizeBody(t, "card-1", 100))
	rec := httptest.NewRecorder()

	h.Authorize(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestGetDecisions_NoContent(t *testing.T) {
	audit := &stubRecorder{}
	h := newTestHandler(t, &stubService{}, audit)

	r := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/cards/card-1/decisions", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
}

func TestPing(t *testing.T) {
	h := newTestHandler(t, &stubService{}, nil)

	r := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}
