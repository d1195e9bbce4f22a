// Package queue defines message payloads exchanged over the message broker.
package queue

// Channel and direction values carried on access events.
const (
	ChannelGps     = "GPS"
	ChannelBarrier = "BARRIER"
	ChannelQr      = "QR"

	DirectionEntry = "ENTRY"
	DirectionExit  = "EXIT"
)

// AccessEvent is published after every committed entry or exit, on any
// channel.  It is the audit trail: downstream consumers can log,
// notify or bill from it without querying the primary database.
// UserID is zero for guest reservations.
type AccessEvent struct {
	EventID       string `json:"event_id"`
	ReservationID uint64 `json:"reservation_id"`
	LotID         uint64 `json:"lot_id"`
	UserID        uint64 `json:"user_id,omitempty"`
	VehiclePlate  string `json:"vehicle_plate,omitempty"`
	Channel       string `json:"channel"`
	Direction     string `json:"direction"`
	OccurredAt    string `json:"occurred_at"`
}
