package handler

import (
	"go.uber.org/zap"

	"github.com/iliyamo/kinder-market/internal/service"
)

// MarketHandler serves the listing, search and negotiation endpoints.
// Every handler resolves the caller into a service.Actor first.
type MarketHandler struct {
	Svc   *service.Service
	Users UserLoader
	Log   *zap.Logger
}

// NewMarketHandler wires a MarketHandler.
func NewMarketHandler(svc *service.Service, users UserLoader, log *zap.Logger) *MarketHandler {
	if svc == nil || users == nil {
		panic("nil dependency passed to NewMarketHandler")
	}
	return &MarketHandler{Svc: svc, Users: users, Log: log}
}
