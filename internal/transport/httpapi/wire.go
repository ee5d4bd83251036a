package httpapi

import (
	"github.com/harvestline/backend/internal/app"
	"github.com/harvestline/backend/internal/transport/httpapi/handler"
	"github.com/harvestline/backend/internal/transport/httpapi/middleware"
	"github.com/harvestline/backend/pkg/logger"
)

// NewConfig builds the handlers for every route from the wired services.
// Health checks, CORS origins and rate limiting are left to the caller.
func NewConfig(a *app.Application, jwtSvc *middleware.JWTService, log *logger.Logger) Config {
	cfg := Config{
		Logger:            log,
		Users:             a.Users,
		AuthHandler:       handler.NewAuthHandler(a.Users, jwtSvc, log),
		WalletHandler:     handler.NewWalletHandler(a.Wallet, a.Users, a.Backend.Transactions(), log),
		InvestmentHandler: handler.NewInvestmentHandler(a.Investing, log),
		CommodityHandler:  handler.NewCommodityHandler(a.Commodities, log),
		AdminHandler:      handler.NewAdminHandler(a.Wallet, a.Settlement, a.Approvals, a.Users, log),
		LedgerHandler:     handler.NewLedgerHandler(a.Ledger, log),
		JWTMiddleware:     middleware.JWTMiddleware(jwtSvc),
	}
	if a.Metrics != nil {
		cfg.MetricsHandler = a.Metrics.Handler()
	}
	return cfg
}
