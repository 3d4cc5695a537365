package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/heewon-dev/community-hub/internal/model"
	"github.com/heewon-dev/community-hub/internal/repository"
	"github.com/heewon-dev/community-hub/internal/service"
)

// RecruitHandler exposes recruit posts and their membership flow.  All
// membership decisions go through the MembershipGate so authorization
// is always evaluated against live state.
type RecruitHandler struct {
	Recruits *repository.RecruitRepo
	Members  *repository.RecruitMemberRepo
	Gate     *service.MembershipGate
}

// NewRecruitHandler constructs a RecruitHandler with its dependencies.
func NewRecruitHandler(recruits *repository.RecruitRepo, members *repository.RecruitMemberRepo, gate *service.MembershipGate) *RecruitHandler {
	if recruits == nil || members == nil || gate == nil {
		panic("nil dependency passed to NewRecruitHandler")
	}
	return &RecruitHandler{Recruits: recruits, Members: members, Gate: gate}
}

func recruitID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid recruit id")
	}
	return id, nil
}

// Create handles POST /v1/recruits.  Capacity counts the author, so the
// minimum useful value is 2.
func (h *RecruitHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Title    string `json:"title"`
		Capacity int    `json:"capacity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if body.Capacity < 2 || body.Capacity > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be between 2 and 100"})
	}
	rec := &model.Recruit{AuthorID: userID, Title: body.Title, Capacity: body.Capacity}
	if err := h.Recruits.Create(c.Request().Context(), rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create recruit failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"recruit": rec})
}

// Get handles GET /v1/recruits/:id and includes the member and pending
// lists when the caller is the author.
func (h *RecruitHandler) Get(c echo.Context) error {
	id, err := recruitID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	rec, err := h.Recruits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecruitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recruit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load recruit failed"})
	}
	resp := echo.Map{"recruit": rec}
	if userID, err := getUserID(c); err == nil && userID == rec.AuthorID {
		if pending, err := h.Members.ListPending(ctx, id); err == nil {
			resp["pending"] = pending
		}
		if members, err := h.Members.ListMembers(ctx, id); err == nil {
			resp["members"] = members
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /v1/recruits/:id (author only).
func (h *RecruitHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := recruitID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Recruits.DeleteByAuthor(c.Request().Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRecruitNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recruit not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete recruit failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Join handles POST /v1/recruits/:id/join.
func (h *RecruitHandler) Join(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := recruitID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Gate.RequestJoin(c.Request().Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRecruitNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recruit not found"})
		case errors.Is(err, repository.ErrRecruitClosed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "recruit is closed"})
		case errors.Is(err, repository.ErrRecruitFull):
			return c.JSON(http.StatusConflict, echo.Map{"error": "recruit is full"})
		case errors.Is(err, repository.ErrAlreadyMember):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already a member"})
		case errors.Is(err, repository.ErrAlreadyPending):
			return c.JSON(http.StatusConflict, echo.Map{"error": "join request already pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "join request failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "pending"})
}

// Withdraw handles DELETE /v1/recruits/:id/join.  Idempotent.
func (h *RecruitHandler) Withdraw(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := recruitID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Gate.WithdrawJoin(c.Request().Context(), id, userID); err != nil {
		if errors.Is(err, repository.ErrRecruitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recruit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "withdraw failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Decide handles POST /v1/recruits/:id/approve/:userId with body
// {"approve": bool}.  Author only.  A capacity failure still consumes
// the pending request, so the caller sees 409 and the queue moves on.
func (h *RecruitHandler) Decide(c echo.Context) error {
	authorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := recruitID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || targetID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var body struct {
		Approve bool `json:"approve"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Gate.Decide(c.Request().Context(), authorID, id, targetID, body.Approve); err != nil {
		switch {
		case errors.Is(err, repository.ErrRecruitNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recruit not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "only the author may decide"})
		case errors.Is(err, repository.ErrNotPending):
			return c.JSON(http.StatusConflict, echo.Map{"error": "no pending request for user"})
		case errors.Is(err, repository.ErrRecruitFull):
			return c.JSON(http.StatusConflict, echo.Map{"error": "recruit is full; request dropped"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "decision failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"approved": body.Approve})
}

// RemoveMember handles DELETE /v1/recruits/:id/members/:userId.  Author
// only; the author themself cannot be removed.
func (h *RecruitHandler) RemoveMember(c echo.Context) error {
	authorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := recruitID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || targetID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if err := h.Gate.RemoveMember(c.Request().Context(), authorID, id, targetID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRecruitNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recruit not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrNotMember):
			return c.JSON(http.StatusConflict, echo.Map{"error": "user is not a member"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove member failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
