package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/huddle/internal/auth"
	"github.com/victorivanov/huddle/internal/service"
)

type StandupHandler struct {
	standups *service.StandupService
}

func NewStandupHandler(standups *service.StandupService) *StandupHandler {
	return &StandupHandler{standups: standups}
}

type startStandupRequest struct {
	Length *int `json:"length"`
}

type startStandupResponse struct {
	Deadline int64 `json:"deadline"`
}

type standupMessageRequest struct {
	Body string `json:"body"`
}

// Start handles POST /api/v1/channels/:id/standup.
func (h *StandupHandler) Start(c echo.Context) error {
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid channel ID")
	}

	var req startStandupRequest
	if err := c.Bind(&req); err != nil || req.Length == nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "length is required")
	}

	deadline, err := h.standups.Start(c.Request().Context(), channelID, auth.GetUserID(c), *req.Length)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, startStandupResponse{Deadline: deadline.Unix()})
}

// Send handles POST /api/v1/channels/:id/standup/messages.
func (h *StandupHandler) Send(c echo.Context) error {
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid channel ID")
	}

	var req standupMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	if err := h.standups.Send(c.Request().Context(), channelID, auth.GetUserID(c), req.Body); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, empty)
}

// Active handles GET /api/v1/channels/:id/standup.
func (h *StandupHandler) Active(c echo.Context) error {
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid channel ID")
	}

	status, err := h.standups.Active(c.Request().Context(), channelID, auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}
