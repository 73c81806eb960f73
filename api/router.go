package api

import (
	"net/http"

	"casino/service"

	"github.com/go-chi/chi/v5"
)

// NewRouter constructs the player-facing HTTP surface. Authentication is the
// gateway's job; the X-User-ID header is trusted as-is. The payment webhook
// is keyed by external reference and carries no player identity.
func NewRouter(
	coordinator *service.RoundCoordinator,
	tiles *service.TileRegistry,
	settlement service.SettlementService,
	deposits service.DepositService,
	reconciliation service.ReconciliationService,
) http.Handler {
	h := NewHandler(coordinator, tiles, settlement, deposits, reconciliation)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)

		r.Post("/game/place-bet", h.PlaceBetHandler)
		r.Post("/game/cash-out", h.CashOutHandler)
		r.Get("/game/round", h.RoundHandler)
		r.Get("/game/session/{sessionId}", h.GetSessionHandler)

		r.Post("/mines/start", h.MinesStartHandler)
		r.Post("/mines/reveal", h.MinesRevealHandler)
		r.Post("/mines/cashout", h.MinesCashOutHandler)

		r.Post("/deposit", h.DepositHandler)
		r.Post("/withdraw", h.WithdrawHandler)
		r.Get("/user/balance", h.BalanceHandler)
		r.Get("/user/reconcile", h.ReconcileHandler)
	})

	r.Post("/webhooks/payment", h.PaymentWebhookHandler)

	return r
}
