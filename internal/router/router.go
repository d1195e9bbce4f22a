// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-access-control/internal/handler"
	"github.com/iliyamo/parking-access-control/internal/middleware"
	"github.com/iliyamo/parking-access-control/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, used by gate devices and
// load balancers to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the login endpoint and the authenticated
// /v1/me endpoint.  Account creation lives in another service, so
// unlike a full auth stack there is nothing to register or refresh
// here: a token is minted at login and presented until it expires.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	e.POST("/v1/auth/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterAccess wires the five channel endpoints and the QR token
// surface.  GPS and QR-token routes require a DRIVER token (the user
// ID comes from the JWT subject); barrier and scanner routes require
// an OPERATOR or DEVICE token.  The operator session view sits with
// the barrier group.
func RegisterAccess(e *echo.Echo, ah *handler.AccessHandler, qh *handler.QrTokenHandler, sh *handler.SessionHandler, jwtSecret string) {
	driver := e.Group("/v1")
	driver.Use(middleware.JWTAuth(jwtSecret))
	driver.Use(middleware.RequireRole(model.RoleDriver))
	driver.POST("/gps/check-in", ah.GpsCheckIn)
	driver.POST("/gps/check-out", ah.GpsCheckOut)
	driver.POST("/reservations/:id/qr", qh.Issue)
	driver.GET("/reservations/:id/qr.png", qh.Render)

	gate := e.Group("/v1")
	gate.Use(middleware.JWTAuth(jwtSecret))
	gate.Use(middleware.RequireRole(model.RoleOperator, model.RoleDevice))
	gate.POST("/barrier/entry", ah.BarrierEntry)
	gate.POST("/barrier/exit", ah.BarrierExit)
	gate.POST("/qr/scan", ah.QrScan)
	gate.GET("/users/:id/session", sh.Get)
}
