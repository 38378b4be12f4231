package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	usecase "github.com/practice-sem-2/campus-chat-service/internal/usecases"
)

const maxPerPage = 100

type pageQuery struct {
	Page    uint64 `form:"page" binding:"omitempty,min=1"`
	PerPage uint64 `form:"per_page" binding:"omitempty,min=1"`
}

// toModel fills the defaults and clamps per_page to maxPerPage.
func (q pageQuery) toModel() models.PageRequest {
	req := models.PageRequest{Page: q.Page, PerPage: q.PerPage}.Normalize()
	if req.PerPage > maxPerPage {
		req.PerPage = maxPerPage
	}
	return req
}

type idsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type participantsRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
}

type editMessageRequest struct {
	Content *string `json:"content" binding:"required,min=1"`
}

type bulkNotificationRequest struct {
	UserIDs  []string                  `json:"user_ids" binding:"required,min=1"`
	Template models.NotificationCreate `json:"template"`
}

type chatsQuery struct {
	pageQuery
	Type *models.ChatType `form:"chat_type"`
}

type searchQuery struct {
	pageQuery
	Query string `form:"q"`
}

type eventsQuery struct {
	pageQuery
	Type     *models.EventType `form:"event_type"`
	AsTarget bool              `form:"as_target"`
}

type notificationsQuery struct {
	pageQuery
	UnreadOnly bool                     `form:"unread_only"`
	Type       *models.NotificationType `form:"notification_type"`
}

type statusError struct {
	from error
	code int
}

var errorMapper = []statusError{
	{from: usecase.ErrValidation, code: http.StatusBadRequest},
	{from: usecase.ErrNotFoundOrUnauthorized, code: http.StatusNotFound},
	{from: storage.ErrChatNotFound, code: http.StatusNotFound},
	{from: storage.ErrMessageNotFound, code: http.StatusNotFound},
	{from: storage.ErrUserNotFound, code: http.StatusNotFound},
	{from: storage.ErrRepliedMessageNotFound, code: http.StatusNotFound},
	{from: storage.ErrRetryable, code: http.StatusServiceUnavailable},
}

func statusOf(err error) int {
	for _, mapping := range errorMapper {
		if errors.Is(err, mapping.from) {
			return mapping.code
		}
	}
	return http.StatusInternalServerError
}

// abortWithError writes the mapped status. Internal failures never leak their message.
func abortWithError(c *gin.Context, err error) {
	code := statusOf(err)
	_ = c.Error(err)

	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusServiceUnavailable:
		msg = "temporarily unavailable, retry later"
	}
	c.AbortWithStatusJSON(code, gin.H{"message": msg})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}

// respondResult maps the boolean outcome of a membership or settings change.
func respondResult(c *gin.Context, ok bool, success, failure string) {
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": failure})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": success})
}
