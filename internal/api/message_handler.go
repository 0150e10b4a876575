package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/huddle/internal/auth"
	"github.com/victorivanov/huddle/internal/models"
	"github.com/victorivanov/huddle/internal/service"
)

// MessageHandler serves message lifecycle endpoints for channels and DMs.
type MessageHandler struct {
	messages *service.MessageService
	deferred *service.DeferredService
}

func NewMessageHandler(messages *service.MessageService, deferred *service.DeferredService) *MessageHandler {
	return &MessageHandler{messages: messages, deferred: deferred}
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type sendLaterRequest struct {
	Body     string `json:"body"`
	TimeSent int64  `json:"time_sent"`
}

type editMessageRequest struct {
	Body string `json:"body"`
}

type shareMessageRequest struct {
	ExtraText string `json:"extra_text"`
	ChannelID *int64 `json:"channel_id"`
	DMID      *int64 `json:"dm_id"`
}

type messageIDResponse struct {
	MessageID int64 `json:"message_id,string"`
}

type shareResponse struct {
	SharedMessageID int64 `json:"shared_message_id,string"`
}

// container resolves the :id path parameter against the route's container kind.
func container(c echo.Context, kind models.ContainerKind) (models.Container, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return models.Container{}, false
	}
	return models.Container{Kind: kind, ID: id}, true
}

// SendChannelMessage handles POST /api/v1/channels/:id/messages.
func (h *MessageHandler) SendChannelMessage(c echo.Context) error {
	return h.send(c, models.ContainerChannel)
}

// SendDMMessage handles POST /api/v1/dms/:id/messages.
func (h *MessageHandler) SendDMMessage(c echo.Context) error {
	return h.send(c, models.ContainerDM)
}

func (h *MessageHandler) send(c echo.Context, kind models.ContainerKind) error {
	target, ok := container(c, kind)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid "+kind.String()+" ID")
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	id, err := h.messages.Send(c.Request().Context(), target, auth.GetUserID(c), req.Body)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, messageIDResponse{MessageID: id})
}

// GetChannelMessages handles GET /api/v1/channels/:id/messages?start=N.
func (h *MessageHandler) GetChannelMessages(c echo.Context) error {
	return h.page(c, models.ContainerChannel)
}

// GetDMMessages handles GET /api/v1/dms/:id/messages?start=N.
func (h *MessageHandler) GetDMMessages(c echo.Context) error {
	return h.page(c, models.ContainerDM)
}

func (h *MessageHandler) page(c echo.Context, kind models.ContainerKind) error {
	target, ok := container(c, kind)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid "+kind.String()+" ID")
	}

	start := 0
	if s := c.QueryParam("start"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return Error(c, http.StatusBadRequest, "INVALID_START", "start must be an integer")
		}
		start = parsed
	}

	page, err := h.messages.Page(c.Request().Context(), target, auth.GetUserID(c), start)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// SendChannelMessageLater handles POST /api/v1/channels/:id/messages/later.
func (h *MessageHandler) SendChannelMessageLater(c echo.Context) error {
	return h.sendLater(c, models.ContainerChannel)
}

// SendDMMessageLater handles POST /api/v1/dms/:id/messages/later.
func (h *MessageHandler) SendDMMessageLater(c echo.Context) error {
	return h.sendLater(c, models.ContainerDM)
}

func (h *MessageHandler) sendLater(c echo.Context, kind models.ContainerKind) error {
	target, ok := container(c, kind)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid "+kind.String()+" ID")
	}

	var req sendLaterRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	scheduled, err := h.deferred.SendLater(c.Request().Context(), target, auth.GetUserID(c), req.Body, time.Unix(req.TimeSent, 0))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusAccepted, scheduled)
}

// EditMessage handles PATCH /api/v1/messages/:message_id. An empty body deletes the message.
func (h *MessageHandler) EditMessage(c echo.Context) error {
	msgID, ok := parseIDParam(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	if err := h.messages.Edit(c.Request().Context(), msgID, req.Body, auth.GetUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, empty)
}

// DeleteMessage handles DELETE /api/v1/messages/:message_id.
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	msgID, ok := parseIDParam(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	if err := h.messages.Remove(c.Request().Context(), msgID, auth.GetUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, empty)
}

// PinMessage handles PUT /api/v1/messages/:message_id/pin.
func (h *MessageHandler) PinMessage(c echo.Context) error {
	msgID, ok := parseIDParam(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	if err := h.messages.Pin(c.Request().Context(), msgID, auth.GetUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, empty)
}

// UnpinMessage handles DELETE /api/v1/messages/:message_id/pin.
func (h *MessageHandler) UnpinMessage(c echo.Context) error {
	msgID, ok := parseIDParam(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	if err := h.messages.Unpin(c.Request().Context(), msgID, auth.GetUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, empty)
}

// AddReaction handles PUT /api/v1/messages/:message_id/reactions/:kind.
func (h *MessageHandler) AddReaction(c echo.Context) error {
	msgID, kind, ok := reactionParams(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID or reaction kind")
	}

	if err := h.messages.React(c.Request().Context(), msgID, auth.GetUserID(c), kind); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, empty)
}

// RemoveReaction handles DELETE /api/v1/messages/:message_id/reactions/:kind.
func (h *MessageHandler) RemoveReaction(c echo.Context) error {
	msgID, kind, ok := reactionParams(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID or reaction kind")
	}

	if err := h.messages.Unreact(c.Request().Context(), msgID, auth.GetUserID(c), kind); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, empty)
}

func reactionParams(c echo.Context) (int64, models.ReactionKind, bool) {
	msgID, ok := parseIDParam(c, "message_id")
	if !ok {
		return 0, 0, false
	}
	kind, err := strconv.Atoi(c.Param("kind"))
	if err != nil {
		return 0, 0, false
	}
	return msgID, models.ReactionKind(kind), true
}

// ShareMessage handles POST /api/v1/messages/:message_id/share. The target is
// given as a (channel_id, dm_id) pair with -1 on the unused side.
func (h *MessageHandler) ShareMessage(c echo.Context) error {
	msgID, ok := parseIDParam(c, "message_id")
	if !ok {
		return Error(c, http.StatusBadRequest, "INVALID_ID", "invalid message ID")
	}

	var req shareMessageRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}
	channelID, dmID := models.NoContainer, models.NoContainer
	if req.ChannelID != nil {
		channelID = *req.ChannelID
	}
	if req.DMID != nil {
		dmID = *req.DMID
	}
	target, err := models.ContainerFromIDs(channelID, dmID)
	if err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_TARGET", err.Error())
	}

	shared, err := h.messages.Share(c.Request().Context(), msgID, req.ExtraText, target, auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, shareResponse{SharedMessageID: shared})
}

// ListNotifications handles GET /api/v1/notifications.
func (h *MessageHandler) ListNotifications(c echo.Context) error {
	notes, err := h.messages.Notifications(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, notes)
}

// CancelJob handles DELETE /api/v1/jobs/:job_id.
func (h *MessageHandler) CancelJob(c echo.Context) error {
	if err := h.deferred.Cancel(c.Request().Context(), c.Param("job_id"), auth.GetUserID(c)); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, empty)
}
