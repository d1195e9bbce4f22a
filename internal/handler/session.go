package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-access-control/internal/repository"
)

// SessionHandler is the operator support surface: a read-only view of
// a user's open parking session.
type SessionHandler struct {
	Sessions *repository.SessionRepo
}

func NewSessionHandler(s *repository.SessionRepo) *SessionHandler {
	return &SessionHandler{Sessions: s}
}

// Get handles GET /v1/users/:id/session.  200 with the open session,
// 404 when the user is not inside any lot.
func (h *SessionHandler) Get(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	s, err := h.Sessions.GetByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no open session"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":        s.UserID,
		"lot_id":         s.LotID,
		"reservation_id": s.ReservationID,
		"entered_at":     s.EnteredAt.UTC().Format(time.RFC3339),
	})
}
