package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
)

func (s *Server) CreateEvent(c *gin.Context) {
	var create models.GroupEventCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		badRequest(c, err)
		return
	}
	create.ChatID = c.Param("id")
	create.UserID = MustUserID(c)

	event, err := s.events.CreateEvent(c.Request.Context(), create)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (s *Server) GetChatEvents(c *gin.Context) {
	var q eventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	filter := models.GroupEventFilter{Type: q.Type}
	page, err := s.events.GetChatEvents(c.Request.Context(), c.Param("id"), MustUserID(c), filter, q.toModel())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) GetUserEvents(c *gin.Context) {
	var q eventsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	filter := models.GroupEventFilter{Type: q.Type}
	page, err := s.events.GetUserEvents(c.Request.Context(), MustUserID(c), q.AsTarget, filter, q.toModel())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) GetEventStats(c *gin.Context) {
	var chatID *string
	if id, ok := c.GetQuery("chat_id"); ok {
		chatID = &id
	}

	stats, err := s.events.GetEventStats(c.Request.Context(), chatID, MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
