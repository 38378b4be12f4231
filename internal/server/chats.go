package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
)

func (s *Server) CreateChat(c *gin.Context) {
	var create models.ChatCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		badRequest(c, err)
		return
	}
	create.CreatorID = MustUserID(c)

	chat, err := s.chats.CreateChat(c.Request.Context(), create)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (s *Server) GetUserChats(c *gin.Context) {
	var q chatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := s.chats.GetUserChats(c.Request.Context(), MustUserID(c), q.Type, q.toModel())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) GetChat(c *gin.Context) {
	chat, err := s.chats.GetChatWithMembers(c.Request.Context(), c.Param("id"), MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (s *Server) DeleteChat(c *gin.Context) {
	if err := s.chats.DeleteChat(c.Request.Context(), c.Param("id"), MustUserID(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) AddParticipants(c *gin.Context) {
	var req participantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ok, err := s.chats.AddParticipants(c.Request.Context(), c.Param("id"), req.UserIDs, MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondResult(c, ok, "Participants added successfully", "Failed to add participants")
}

func (s *Server) RemoveParticipant(c *gin.Context) {
	ok, err := s.chats.RemoveParticipant(c.Request.Context(), c.Param("id"), c.Param("user_id"), MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondResult(c, ok, "Participant removed successfully", "Failed to remove participant")
}

func (s *Server) UpdateChatSettings(c *gin.Context) {
	var settings models.ChatSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, err)
		return
	}

	ok, err := s.chats.UpdateChatSettings(c.Request.Context(), c.Param("id"), settings, MustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respondResult(c, ok, "Chat settings updated successfully", "Failed to update chat settings")
}
