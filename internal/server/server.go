package server

import (
	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func New(
	cfg config.Config,
	log *zap.Logger,
	orderH *handler.OrderHandler,
	adminOrderH *handler.AdminOrderHandler,
	userRepo repository.UserRepository,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLogger(log))

	orderH.RegisterRoutes(e, cfg, userRepo)
	adminOrderH.RegisterRoutes(e, cfg, userRepo)

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}
