package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
)

func (s *Server) CreateNotification(c *gin.Context) {
	var create models.NotificationCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		badRequest(c, err)
		return
	}

	n, err := s.notifications.Create(c.Request.Context(), create)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (s *Server) CreateNotifications(c *gin.Context) {
	var req bulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := s.notifications.CreateBulk(c.Request.Context(), req.UserIDs, req.Template)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": created, "total": len(created)})
}

func (s *Server) GetNotifications(c *gin.Context) {
	var q notificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	filter := models.NotificationFilter{UnreadOnly: q.UnreadOnly, Type: q.Type}
	page, err := s.notifications.GetUserNotifications(c.Request.Context(), MustUserID(c), filter, q.toModel())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) MarkNotificationsSeen(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	count, err := s.notifications.MarkAsSeen(c.Request.Context(), req.IDs, MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

func (s *Server) MarkNotificationsRead(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	count, err := s.notifications.MarkAsRead(c.Request.Context(), req.IDs, MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

func (s *Server) GetUnreadNotificationsCount(c *gin.Context) {
	var q notificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	count, err := s.notifications.GetUnreadCount(c.Request.Context(), MustUserID(c), q.Type)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (s *Server) GetNotificationStats(c *gin.Context) {
	stats, err := s.notifications.GetStats(c.Request.Context(), MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
