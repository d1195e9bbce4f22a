package model

import "time"

// Lot represents a parking lot as stored in the `lots` table.  The
// catalog itself (creation, geo-search, pricing) is owned by another
// service; this core only needs lots for existence checks and for
// reporting which lot a user is currently inside.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – human readable lot name.
//  Address   – street address of the lot.
//  Capacity  – total number of spots in the lot.
//  CreatedAt – timestamp of creation.
type Lot struct {
	ID        uint64    // lots.id
	Name      string    // lots.name
	Address   string    // lots.address
	Capacity  uint32    // lots.capacity
	CreatedAt time.Time // lots.created_at
}
