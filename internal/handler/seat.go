package handler

import (
	"errors"   // errors.Is comparisons against typed results
	"net/http" // HTTP status codes
	"strings"  // query parameter normalization

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/heewon-dev/community-hub/internal/model"
	"github.com/heewon-dev/community-hub/internal/repository"
	"github.com/heewon-dev/community-hub/internal/service"
)

// SeatHandler exposes the seat pool: listing, claiming, releasing and
// the administrative sweep/initialization endpoints.  All concurrency
// decisions live in the ReservationManager; the handler only validates
// input shape and maps typed errors onto status codes.
type SeatHandler struct {
	Reservations *service.ReservationManager
	Seats        *repository.SeatRepo // pool initialization only
}

// NewSeatHandler constructs a SeatHandler.  Both dependencies must be
// non-nil.
func NewSeatHandler(reservations *service.ReservationManager, seats *repository.SeatRepo) *SeatHandler {
	if reservations == nil || seats == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Reservations: reservations, Seats: seats}
}

// List handles GET /v1/seats?room=GENERAL|STAFF|all.  Seats come back
// ordered by seat number.
func (h *SeatHandler) List(c echo.Context) error {
	room := strings.ToUpper(strings.TrimSpace(c.QueryParam("room")))
	if room == "" || room == "ALL" {
		room = ""
	} else if !model.ValidRoom(room) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown room"})
	}
	seats, err := h.Reservations.ListSeats(c.Request().Context(), room)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": seats})
}

// Reserve handles POST /v1/seats/:seatNumber/reserve.  The body carries
// {"hours": 1..8}.  Conflicts (seat taken, duplicate reservation) come
// back as 409 so the client can tell a lost race from bad input.
func (h *SeatHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seatNumber := strings.TrimSpace(c.Param("seatNumber"))
	if seatNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat number required"})
	}
	var body struct {
		Hours int `json:"hours"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	seat, err := h.Reservations.Claim(c.Request().Context(), userID, getRole(c), seatNumber, body.Hours)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDuration):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		case errors.Is(err, service.ErrRestrictedRoom):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "restricted room"})
		case errors.Is(err, repository.ErrSeatTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat already taken"})
		case errors.Is(err, service.ErrDuplicateReservation):
			return c.JSON(http.StatusConflict, echo.Map{"error": "you already hold a reservation"})
		case errors.Is(err, service.ErrCompensationFailed):
			// The one failure the claim protocol cannot self-heal.
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation rollback failed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reserve failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"seat": seat})
}

// Release handles POST /v1/seats/:seatNumber/release.  ADMIN callers
// release any held seat; everyone else only their own.
func (h *SeatHandler) Release(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seatNumber := strings.TrimSpace(c.Param("seatNumber"))
	if seatNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat number required"})
	}
	privileged := getRole(c) == model.RoleAdmin
	seat, err := h.Reservations.Release(c.Request().Context(), userID, seatNumber, privileged)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "release failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"seat": seat})
}

// MyReservation handles GET /v1/seats/my-reservation and returns the
// caller's held seat, or null when they hold none.
func (h *SeatHandler) MyReservation(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seat, err := h.Reservations.MyReservation(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"seat": seat})
}

// CleanupExpired handles POST /v1/seats/cleanup-expired (ADMIN).  The
// same reclaim also runs on the background timer; triggering it twice
// is harmless.
func (h *SeatHandler) CleanupExpired(c echo.Context) error {
	n, err := h.Reservations.SweepExpired(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cleanup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reclaimed": n})
}

// InitializePool handles POST /v1/seats/pool (ADMIN).  The body maps
// each room to its seat numbers; the previous pool is replaced
// atomically.
func (h *SeatHandler) InitializePool(c echo.Context) error {
	var body struct {
		Rooms map[string][]string `json:"rooms"`
	}
	if err := c.Bind(&body); err != nil || len(body.Rooms) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rooms map required"})
	}
	for room := range body.Rooms {
		if !model.ValidRoom(room) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown room: " + room})
		}
	}
	if err := h.Seats.InitializePool(c.Request().Context(), body.Rooms); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "pool initialization failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
