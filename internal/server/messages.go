package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
)

func (s *Server) SendMessage(c *gin.Context) {
	var send models.MessageSend
	if err := c.ShouldBindJSON(&send); err != nil {
		badRequest(c, err)
		return
	}
	send.ChatID = c.Param("id")
	send.SenderID = MustUserID(c)

	msg, err := s.messages.SendMessage(c.Request.Context(), send)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) GetChatMessages(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := s.messages.GetChatMessages(c.Request.Context(), c.Param("id"), MustUserID(c), q.toModel())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) SearchChatMessages(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := s.messages.SearchChatMessages(c.Request.Context(), c.Param("id"), MustUserID(c), q.Query, q.toModel())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) GetChatUnreadCount(c *gin.Context) {
	chatID := c.Param("id")
	s.unreadMessages(c, &chatID)
}

func (s *Server) GetUnreadMessagesCount(c *gin.Context) {
	s.unreadMessages(c, nil)
}

func (s *Server) unreadMessages(c *gin.Context, chatID *string) {
	count, err := s.messages.GetUnreadCount(c.Request.Context(), MustUserID(c), chatID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (s *Server) EditMessage(c *gin.Context) {
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := s.messages.EditMessage(c.Request.Context(), c.Param("id"), MustUserID(c), req.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *Server) DeleteMessage(c *gin.Context) {
	if err := s.messages.DeleteMessage(c.Request.Context(), c.Param("id"), MustUserID(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetMessageReaders(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := s.messages.GetMessageReaders(c.Request.Context(), c.Param("id"), MustUserID(c), q.toModel())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) MarkMessagesDelivered(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	count, err := s.messages.MarkAsDelivered(c.Request.Context(), req.IDs, MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

func (s *Server) MarkMessagesRead(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	count, err := s.messages.MarkAsRead(c.Request.Context(), req.IDs, MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}
