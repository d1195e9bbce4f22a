package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-access-control/internal/access"
	"github.com/iliyamo/parking-access-control/internal/model"
)

// AccessHandler exposes the five coordinator operations over HTTP.
// GPS endpoints identify the driver from the JWT subject; barrier and
// QR endpoints are called by gate devices and operators and carry the
// vehicle identification in the body.  The handler owns no state
// machine logic: it binds, validates, calls the coordinator and maps
// typed failures to status codes.
type AccessHandler struct {
	Coordinator *access.Coordinator
}

// NewAccessHandler constructs an AccessHandler.  The coordinator must
// be non-nil.
func NewAccessHandler(coordinator *access.Coordinator) *AccessHandler {
	if coordinator == nil {
		panic("nil coordinator passed to NewAccessHandler")
	}
	return &AccessHandler{Coordinator: coordinator}
}

// ----- DTOs -----

type gpsReq struct {
	LotID uint64 `json:"lot_id" validate:"required"`
}
type barrierReq struct {
	Plate string `json:"plate" validate:"required"`
	LotID uint64 `json:"lot_id" validate:"required"`
}
type qrScanReq struct {
	QrData string `json:"qr_data" validate:"required"`
}

// reservationPart is the slice of reservation state echoed back after
// a successful gate decision.
type reservationPart struct {
	ID         uint64 `json:"id"`
	LotID      uint64 `json:"lot_id"`
	Plate      string `json:"plate"`
	Status     string `json:"status"`
	CheckedIn  bool   `json:"checked_in"`
	CheckedOut bool   `json:"checked_out"`
	Guest      bool   `json:"guest"`
}

func toReservationPart(r *model.Reservation) reservationPart {
	return reservationPart{
		ID:         r.ID,
		LotID:      r.LotID,
		Plate:      r.VehiclePlate,
		Status:     r.Status,
		CheckedIn:  r.HasCheckedIn,
		CheckedOut: r.HasCheckedOut,
		Guest:      r.IsGuest(),
	}
}

// GpsCheckIn handles POST /v1/gps/check-in.  The driver's geofence
// crossing at lot arrival.
func (h *AccessHandler) GpsCheckIn(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req gpsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.Coordinator.GpsCheckIn(c.Request().Context(), userID, req.LotID)
	if err != nil {
		return respondAccessError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": toReservationPart(res)})
}

// GpsCheckOut handles POST /v1/gps/check-out.
func (h *AccessHandler) GpsCheckOut(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req gpsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.Coordinator.GpsCheckOut(c.Request().Context(), userID, req.LotID)
	if err != nil {
		return respondAccessError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": toReservationPart(res)})
}

// BarrierEntry handles POST /v1/barrier/entry, called by the plate
// camera when a vehicle stops at the entry barrier.  A 200 means the
// barrier may open.
func (h *AccessHandler) BarrierEntry(c echo.Context) error {
	var req barrierReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.Coordinator.BarrierVerifyEntry(c.Request().Context(), req.Plate, req.LotID)
	if err != nil {
		return respondAccessError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": toReservationPart(res)})
}

// BarrierExit handles POST /v1/barrier/exit.
func (h *AccessHandler) BarrierExit(c echo.Context) error {
	var req barrierReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.Coordinator.BarrierVerifyExit(c.Request().Context(), req.Plate, req.LotID)
	if err != nil {
		return respondAccessError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": toReservationPart(res)})
}

// QrScan handles POST /v1/qr/scan.  Direction is inferred from the
// reservation's flags, not from the scanner, and is reported back so
// the gate knows which way to open.
func (h *AccessHandler) QrScan(c echo.Context) error {
	var req qrScanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, direction, err := h.Coordinator.HandleQrScan(c.Request().Context(), req.QrData)
	if err != nil {
		return respondAccessError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"direction":   direction,
		"reservation": toReservationPart(res),
	})
}
