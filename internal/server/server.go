package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	"github.com/sirupsen/logrus"
)

type ChatService interface {
	CreateChat(ctx context.Context, create models.ChatCreate) (*models.Chat, error)
	AddParticipants(ctx context.Context, chatID string, userIDs []string, actorID string) (bool, error)
	RemoveParticipant(ctx context.Context, chatID, userID, actorID string) (bool, error)
	UpdateChatSettings(ctx context.Context, chatID string, settings models.ChatSettings, actorID string) (bool, error)
	GetChatWithMembers(ctx context.Context, chatID, userID string) (*models.ChatWithMembers, error)
	GetUserChats(ctx context.Context, userID string, chatType *models.ChatType, page models.PageRequest) (*models.Page[models.Chat], error)
	DeleteChat(ctx context.Context, chatID, userID string) error
}

type MessageService interface {
	SendMessage(ctx context.Context, send models.MessageSend) (*models.Message, error)
	EditMessage(ctx context.Context, messageID, userID string, content *string) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID, userID string) error
	MarkAsDelivered(ctx context.Context, messageIDs []string, userID string) (int64, error)
	MarkAsRead(ctx context.Context, messageIDs []string, userID string) (int64, error)
	GetUnreadCount(ctx context.Context, userID string, chatID *string) (uint64, error)
	GetChatMessages(ctx context.Context, chatID, userID string, page models.PageRequest) (*models.Page[models.Message], error)
	SearchChatMessages(ctx context.Context, chatID, userID, query string, page models.PageRequest) (*models.Page[models.Message], error)
	GetMessageReaders(ctx context.Context, messageID, userID string, page models.PageRequest) (*models.Page[models.MessageReadStatus], error)
}

type EventService interface {
	CreateEvent(ctx context.Context, create models.GroupEventCreate) (*models.GroupEvent, error)
	GetChatEvents(ctx context.Context, chatID, userID string, filter models.GroupEventFilter, page models.PageRequest) (*models.Page[models.GroupEvent], error)
	GetUserEvents(ctx context.Context, userID string, asTarget bool, filter models.GroupEventFilter, page models.PageRequest) (*models.Page[models.GroupEvent], error)
	GetEventStats(ctx context.Context, chatID *string, userID string) (map[models.EventType]models.EventStats, error)
}

type NotificationService interface {
	Create(ctx context.Context, create models.NotificationCreate) (*models.Notification, error)
	CreateBulk(ctx context.Context, userIDs []string, template models.NotificationCreate) ([]models.Notification, error)
	MarkAsSeen(ctx context.Context, ids []string, userID string) (int64, error)
	MarkAsRead(ctx context.Context, ids []string, userID string) (int64, error)
	GetUnreadCount(ctx context.Context, userID string, notificationType *models.NotificationType) (uint64, error)
	GetUserNotifications(ctx context.Context, userID string, filter models.NotificationFilter, page models.PageRequest) (*models.Page[models.Notification], error)
	GetStats(ctx context.Context, userID string) (map[models.NotificationType]models.NotificationStats, error)
}

type Pinger func(ctx context.Context) error

type Server struct {
	chats         ChatService
	messages      MessageService
	events        EventService
	notifications NotificationService
	ping          Pinger
	jwtSecret     []byte
	logger        *logrus.Logger
}

func NewServer(
	c ChatService,
	m MessageService,
	e EventService,
	n NotificationService,
	ping Pinger,
	jwtSecret string,
	logger *logrus.Logger,
) *Server {
	return &Server{
		chats:         c,
		messages:      m,
		events:        e,
		notifications: n,
		ping:          ping,
		jwtSecret:     []byte(jwtSecret),
		logger:        logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), AccessLog(s.logger))

	r.GET("/health", s.Health)

	api := r.Group("/api/v1", Auth(s.jwtSecret))

	chats := api.Group("/chats")
	chats.POST("", s.CreateChat)
	chats.GET("", s.GetUserChats)
	chats.GET("/:id", s.GetChat)
	chats.DELETE("/:id", s.DeleteChat)
	chats.POST("/:id/participants", s.AddParticipants)
	chats.DELETE("/:id/participants/:user_id", s.RemoveParticipant)
	chats.PATCH("/:id/settings", s.UpdateChatSettings)
	chats.GET("/:id/messages", s.GetChatMessages)
	chats.POST("/:id/messages", s.SendMessage)
	chats.GET("/:id/messages/search", s.SearchChatMessages)
	chats.GET("/:id/unread-count", s.GetChatUnreadCount)
	chats.POST("/:id/events", s.CreateEvent)
	chats.GET("/:id/events", s.GetChatEvents)

	messages := api.Group("/messages")
	messages.PATCH("/:id", s.EditMessage)
	messages.DELETE("/:id", s.DeleteMessage)
	messages.GET("/:id/readers", s.GetMessageReaders)
	messages.POST("/delivered", s.MarkMessagesDelivered)
	messages.POST("/read", s.MarkMessagesRead)
	messages.GET("/unread-count", s.GetUnreadMessagesCount)

	events := api.Group("/events")
	events.GET("", s.GetUserEvents)
	events.GET("/stats", s.GetEventStats)

	notifications := api.Group("/notifications")
	notifications.POST("", s.CreateNotification)
	notifications.POST("/bulk", s.CreateNotifications)
	notifications.GET("", s.GetNotifications)
	notifications.POST("/seen", s.MarkNotificationsSeen)
	notifications.POST("/read", s.MarkNotificationsRead)
	notifications.GET("/unread-count", s.GetUnreadNotificationsCount)
	notifications.GET("/stats", s.GetNotificationStats)

	return r
}

func (s *Server) Health(c *gin.Context) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
