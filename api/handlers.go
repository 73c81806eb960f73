package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"casino/models"
	"casino/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// HandlerProvider wraps the game services and exposes HTTP handlers
type HandlerProvider struct {
	coordinator    *service.RoundCoordinator
	tiles          *service.TileRegistry
	settlement     service.SettlementService
	deposits       service.DepositService
	reconciliation service.ReconciliationService
}

// NewHandler returns a new handler provider
func NewHandler(
	coordinator *service.RoundCoordinator,
	tiles *service.TileRegistry,
	settlement service.SettlementService,
	deposits service.DepositService,
	reconciliation service.ReconciliationService,
) *HandlerProvider {
	return &HandlerProvider{
		coordinator:    coordinator,
		tiles:          tiles,
		settlement:     settlement,
		deposits:       deposits,
		reconciliation: reconciliation,
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "error": msg})
}

// writeDomainError maps a service error onto an HTTP status. Validation
// rejections are 400, lookups 404, state conflicts 409, and retryable store
// failures 503 so clients know a retry may succeed.
func writeDomainError(w http.ResponseWriter, err error) {
	code := service.ErrorCode(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidMultiplier),
		errors.Is(err, service.ErrInvalidTileIndex):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrDepositNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrSessionAlreadyActive),
		errors.Is(err, service.ErrSessionAlreadyResolved),
		errors.Is(err, service.ErrTileAlreadyRevealed),
		errors.Is(err, service.ErrNothingRevealed),
		errors.Is(err, service.ErrMultiplierExceedsCurrent),
		errors.Is(err, service.ErrBettingClosed),
		errors.Is(err, service.ErrRoundNotRunning):
		status = http.StatusConflict
	case service.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Unmapped error on API surface")
	}
	writeError(w, status, code, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "empty body")
		} else {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON")
		}
		return false
	}
	return true
}

func sessionResponse(s *models.WagerSession) map[string]any {
	resp := map[string]any{
		"session_id": s.ID,
		"game_type":  s.GameType,
		"bet_amount": s.BetAmount,
		"status":     s.Status,
		"created_at": s.CreatedAt,
	}
	if s.OutcomeMultiplier != nil {
		resp["outcome_multiplier"] = *s.OutcomeMultiplier
	}
	if s.Payout != nil {
		resp["payout"] = *s.Payout
	}
	if s.ResolvedAt != nil {
		resp["resolved_at"] = *s.ResolvedAt
	}
	return resp
}

func settlementResponse(res *service.SettlementResult) map[string]any {
	return map[string]any{
		"session_id":  res.SessionID,
		"multiplier":  res.Multiplier,
		"payout":      res.Payout,
		"new_balance": res.NewBalance,
	}
}

// --- Multiplier game ---

type placeBetRequest struct {
	Amount int64 `json:"amount"`
}

// PlaceBetHandler handles POST /game/place-bet
func (h *HandlerProvider) PlaceBetHandler(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.coordinator.PlaceBet(r.Context(), userFrom(r), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(session))
}

type cashOutRequest struct {
	SessionID  uuid.UUID `json:"session_id"`
	Multiplier float64   `json:"multiplier"`
}

// CashOutHandler handles POST /game/cash-out
func (h *HandlerProvider) CashOutHandler(w http.ResponseWriter, r *http.Request) {
	var req cashOutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.coordinator.CashOut(r.Context(), userFrom(r), req.SessionID, req.Multiplier)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settlementResponse(result))
}

// RoundHandler handles GET /game/round
func (h *HandlerProvider) RoundHandler(w http.ResponseWriter, r *http.Request) {
	snap := h.coordinator.Snapshot()

	resp := map[string]any{
		"round_id":   snap.RoundID,
		"phase":      snap.Phase,
		"multiplier": snap.Multiplier,
	}
	if snap.Phase == service.RoundPhaseCrashed {
		resp["crash_point"] = snap.CrashPoint
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSessionHandler handles GET /game/session/{sessionId}
func (h *HandlerProvider) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_SESSION_ID", "invalid session id")
		return
	}

	session, err := h.settlement.GetSession(r.Context(), userFrom(r), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(session))
}

// --- Tiles game ---

type minesStartRequest struct {
	Amount int64 `json:"amount"`
}

// MinesStartHandler handles POST /mines/start
func (h *HandlerProvider) MinesStartHandler(w http.ResponseWriter, r *http.Request) {
	var req minesStartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.tiles.Start(r.Context(), userFrom(r), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(session))
}

type minesRevealRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	TileIndex int       `json:"tile_index"`
}

// MinesRevealHandler handles POST /mines/reveal
func (h *HandlerProvider) MinesRevealHandler(w http.ResponseWriter, r *http.Request) {
	var req minesRevealRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.tiles.Reveal(r.Context(), userFrom(r), req.SessionID, req.TileIndex)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{
		"mine": result.Mine,
	}
	if result.Mine {
		resp["mine_positions"] = result.MinePositions
		resp["amount_lost"] = result.AmountLost
	} else {
		resp["multiplier"] = result.Multiplier
		resp["revealed_count"] = result.RevealedCount
		resp["potential_win"] = result.PotentialWin
	}
	writeJSON(w, http.StatusOK, resp)
}

type minesCashOutRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}

// MinesCashOutHandler handles POST /mines/cashout
func (h *HandlerProvider) MinesCashOutHandler(w http.ResponseWriter, r *http.Request) {
	var req minesCashOutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.tiles.CashOut(r.Context(), userFrom(r), req.SessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settlementResponse(result))
}

// --- Money movement ---

type depositRequest struct {
	Amount      int64  `json:"amount"`
	ExternalRef string `json:"external_ref"`
}

// DepositHandler handles POST /deposit. It reserves a pending ledger entry;
// the balance only moves when the payment webhook confirms the reference.
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ExternalRef == "" {
		req.ExternalRef = uuid.NewString()
	}

	entry, err := h.deposits.ReserveDeposit(r.Context(), userFrom(r), req.Amount, req.ExternalRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"external_ref": req.ExternalRef,
		"amount":       entry.Amount,
		"status":       entry.Status,
	})
}

type withdrawRequest struct {
	Amount int64 `json:"amount"`
}

// WithdrawHandler handles POST /withdraw
func (h *HandlerProvider) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.deposits.Withdraw(r.Context(), userFrom(r), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"balance": account.Balance,
	})
}

// BalanceHandler handles GET /user/balance
func (h *HandlerProvider) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	account, err := h.deposits.GetBalance(r.Context(), userFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": account.UserID,
		"balance": account.Balance,
	})
}

// ReconcileHandler handles GET /user/reconcile
func (h *HandlerProvider) ReconcileHandler(w http.ResponseWriter, r *http.Request) {
	err := h.reconciliation.Verify(r.Context(), userFrom(r))
	if errors.Is(err, service.ErrLedgerDrift) {
		writeJSON(w, http.StatusOK, map[string]any{"consistent": false})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"consistent": true})
}

// --- Payment webhook ---

type paymentWebhookRequest struct {
	ExternalRef string `json:"external_ref"`
	Status      string `json:"status"`
}

// PaymentWebhookHandler handles POST /webhooks/payment. Confirmations are
// replayed by payment processors; the idempotent confirm makes every replay
// after the first a 200 no-op.
func (h *HandlerProvider) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var req paymentWebhookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ExternalRef == "" {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "external_ref required")
		return
	}
	if req.Status != "" && req.Status != "completed" {
		// Non-success notifications are acknowledged without moving money
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.deposits.ConfirmDeposit(r.Context(), req.ExternalRef); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
