package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/parking-access-control/internal/access"
	"github.com/iliyamo/parking-access-control/internal/repository"
)

// QrTokenHandler issues and renders the single-use QR tokens that the
// gate scanners consume.  Issuing replaces any previous token on the
// reservation (rotation); rendering encodes the current payload as a
// PNG for the driver app to display at the gate.
type QrTokenHandler struct {
	Coordinator  *access.Coordinator
	Reservations *repository.ReservationRepo
	TokenTTL     time.Duration
}

// NewQrTokenHandler constructs a QrTokenHandler.
func NewQrTokenHandler(coordinator *access.Coordinator, reservations *repository.ReservationRepo, tokenTTL time.Duration) *QrTokenHandler {
	if coordinator == nil || reservations == nil {
		panic("nil dependency passed to NewQrTokenHandler")
	}
	return &QrTokenHandler{Coordinator: coordinator, Reservations: reservations, TokenTTL: tokenTTL}
}

// Issue handles POST /v1/reservations/:id/qr.  The reservation must
// belong to the authenticated driver.  Returns the payload to embed
// in a QR image and its expiry.
func (h *QrTokenHandler) Issue(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || reservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	payload, expiry, err := h.Coordinator.IssueQrToken(c.Request().Context(), reservationID, userID, h.TokenTTL)
	if err != nil {
		return respondAccessError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"qr_data":    payload,
		"expires_at": expiry.UTC().Format(time.RFC3339),
	})
}

// Render handles GET /v1/reservations/:id/qr.png.  It encodes the
// reservation's current token payload as a 256x256 PNG.  404 when no
// token is active.
func (h *QrTokenHandler) Render(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || reservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Reservations.GetByID(c.Request().Context(), reservationID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	if res.UserID == nil || *res.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if res.ActiveQrToken == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active qr token"})
	}
	png, err := qrcode.Encode(access.BuildQrPayload(res.ID, *res.ActiveQrToken), qrcode.Medium, 256)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render qr code"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
