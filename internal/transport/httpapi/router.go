// Package httpapi exposes the ledger core over HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/harvestline/backend/internal/platform/user"
	"github.com/harvestline/backend/internal/transport/httpapi/handler"
	"github.com/harvestline/backend/internal/transport/httpapi/middleware"
	"github.com/harvestline/backend/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger            *logger.Logger
	AllowedOrigins    []string
	Users             middleware.UserLookup
	AuthHandler       *handler.AuthHandler
	WalletHandler     *handler.WalletHandler
	InvestmentHandler *handler.InvestmentHandler
	CommodityHandler  *handler.CommodityHandler
	AdminHandler      *handler.AdminHandler
	LedgerHandler     *handler.LedgerHandler
	HealthHandler     *handler.HealthHandler
	MetricsHandler    http.Handler
	JWTMiddleware     func(http.Handler) http.Handler
	RateLimit         func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	log := logger.OrDiscard(cfg.Logger)
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit)
	}

	// Health and metrics (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthHandler != nil {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		if cfg.JWTMiddleware == nil {
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(cfg.JWTMiddleware)

			if cfg.WalletHandler != nil {
				r.Get("/wallet", cfg.WalletHandler.GetBalance)
				r.Get("/wallet/transactions", cfg.WalletHandler.GetTransactions)
				r.Post("/wallet/deposits", cfg.WalletHandler.Deposit)
				r.Post("/wallet/withdrawals", cfg.WalletHandler.Withdraw)
			}

			if cfg.InvestmentHandler != nil {
				r.Get("/investments", cfg.InvestmentHandler.ListMine)
				r.Post("/investments", cfg.InvestmentHandler.Invest)
			}

			if cfg.CommodityHandler != nil {
				r.Get("/commodities", cfg.CommodityHandler.List)
				r.Get("/commodities/{id}", cfg.CommodityHandler.Get)
			}

			if cfg.Users == nil {
				return
			}

			// Administrator routes; the stored role is checked on every request
			r.Route("/admin", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(cfg.Users, user.RoleAdmin))

					if cfg.AdminHandler != nil {
						r.Put("/users/{id}/flags", cfg.AdminHandler.UpdateFlags)
						r.Post("/users/{id}/wallet-adjustments", cfg.AdminHandler.AdjustWallet)
						r.Post("/commodities/{id}/payouts", cfg.AdminHandler.DistributePayouts)
						r.Get("/approvals", cfg.AdminHandler.ListApprovals)
						r.Get("/approvals/{id}", cfg.AdminHandler.GetApproval)
						r.Post("/approvals/{id}/approve", cfg.AdminHandler.Approve)
						r.Post("/approvals/{id}/reject", cfg.AdminHandler.Reject)
					}
					if cfg.CommodityHandler != nil {
						r.Post("/commodities", cfg.CommodityHandler.Create)
						r.Post("/commodities/{id}/status", cfg.CommodityHandler.Transition)
					}
				})

				if cfg.LedgerHandler != nil {
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRole(cfg.Users, user.RoleAdmin, user.RoleAuditor))

						r.Get("/ledger/trial-balance", cfg.LedgerHandler.GetTrialBalance)
						r.Get("/ledger/entries", cfg.LedgerHandler.ListEntries)
						r.Get("/ledger/entries/{id}", cfg.LedgerHandler.GetEntry)
						r.Get("/ledger/reconcile/{id}", cfg.LedgerHandler.ReconcileWallet)
					})
				}
			})
		})
	})

	return r
}
