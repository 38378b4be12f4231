package storage

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
)

type UpdatesStorage struct {
	cfg      *UpdatesStoreConfig
	producer sarama.SyncProducer
}

type UpdatesStoreConfig struct {
	UpdatesTopic string
}

// Envelope is the value of every message written to the updates topic.
type Envelope struct {
	Type      models.UpdateType `json:"type"`
	Timestamp int64             `json:"timestamp"`
	Audience  []string          `json:"audience"`
	Payload   json.RawMessage   `json:"payload"`
}

// NewUpdatesStore returns a store that publishes to p. With a nil producer
// every update is dropped.
func NewUpdatesStore(p sarama.SyncProducer, cfg *UpdatesStoreConfig) *UpdatesStorage {
	return &UpdatesStorage{
		producer: p,
		cfg:      cfg,
	}
}

func (s *UpdatesStorage) putUpdate(key string, kind models.UpdateType, meta models.UpdateMeta, payload interface{}) error {
	if s.producer == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	audience := meta.Audience
	if audience == nil {
		audience = []string{}
	}

	bytes, err := json.Marshal(Envelope{
		Type:      kind,
		Timestamp: meta.Timestamp.UTC().Unix(),
		Audience:  audience,
		Payload:   body,
	})
	if err != nil {
		return err
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     s.cfg.UpdatesTopic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(bytes),
		Timestamp: time.Time{},
	})

	return err
}

func (s *UpdatesStorage) ChatCreated(chat *models.ChatCreated) error {
	return s.putUpdate(chat.ChatID, models.UpdateChatCreated, chat.UpdateMeta, chat)
}

func (s *UpdatesStorage) MessageSent(msg *models.MessageSent) error {
	return s.putUpdate(msg.ChatID, models.UpdateMessageSent, msg.UpdateMeta, msg)
}

func (s *UpdatesStorage) MemberAdded(member *models.MemberAdded) error {
	return s.putUpdate(member.ChatID, models.UpdateMemberAdded, member.UpdateMeta, member)
}

func (s *UpdatesStorage) MemberRemoved(member *models.MemberRemoved) error {
	return s.putUpdate(member.ChatID, models.UpdateMemberRemoved, member.UpdateMeta, member)
}

func (s *UpdatesStorage) GroupEventCreated(event *models.GroupEventCreated) error {
	return s.putUpdate(event.Event.ChatID, models.UpdateGroupEventCreated, event.UpdateMeta, event)
}

// NotificationsCreated publishes one update per recipient keyed by the user id,
// so every user sees their notifications in order.
func (s *UpdatesStorage) NotificationsCreated(created *models.NotificationsCreated) error {
	byUser := make(map[string][]models.Notification)
	order := make([]string, 0)
	for _, n := range created.Notifications {
		if _, ok := byUser[n.UserID]; !ok {
			order = append(order, n.UserID)
		}
		byUser[n.UserID] = append(byUser[n.UserID], n)
	}

	for _, userID := range order {
		update := &models.NotificationsCreated{
			UpdateMeta: models.UpdateMeta{
				Timestamp: created.Timestamp,
				Audience:  []string{userID},
			},
			Notifications: byUser[userID],
		}
		if err := s.putUpdate(userID, models.UpdateNotificationsCreated, update.UpdateMeta, update); err != nil {
			return err
		}
	}
	return nil
}
