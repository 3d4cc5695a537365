package model

import "time"

// Room zones a seat can belong to.  GENERAL seats are claimable by any
// authenticated user; STAFF seats require an elevated role.
const (
	RoomGeneral = "GENERAL"
	RoomStaff   = "STAFF"
)

// Seat describes one exclusively-claimable physical seat.  Seats are
// uniquely identified by their human-readable seat number (e.g. "W01").
// A seat is either available, or held by exactly one user until the
// reserved_until instant; the holder and expiry columns are set and
// cleared together, never partially.
//
// Fields:
//  ID            – primary key identifier.
//  SeatNumber    – unique human-readable identifier.
//  Room          – zone the seat belongs to (GENERAL, STAFF).
//  IsAvailable   – true when no one holds the seat.
//  CurrentHolder – user holding the seat; nil iff IsAvailable.
//  ReservedUntil – expiry instant of the hold; nil iff IsAvailable.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Seat struct {
	ID            uint64     `json:"id"`             // seats.id
	SeatNumber    string     `json:"seat_number"`    // seats.seat_number
	Room          string     `json:"room"`           // seats.room
	IsAvailable   bool       `json:"is_available"`   // seats.is_available
	CurrentHolder *uint64    `json:"current_holder"` // seats.current_holder (nullable)
	ReservedUntil *time.Time `json:"reserved_until"` // seats.reserved_until (nullable)
	CreatedAt     time.Time  `json:"created_at"`     // seats.created_at
	UpdatedAt     time.Time  `json:"updated_at"`     // seats.updated_at
}

// ValidRoom reports whether s names a known seat zone.
func ValidRoom(s string) bool {
	return s == RoomGeneral || s == RoomStaff
}
