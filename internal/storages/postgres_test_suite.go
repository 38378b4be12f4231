package storage

import (
	"context"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// PostgresTestSuite runs against the database in DB_DSN with the schema
// migrated through MIGRATIONS_DSN. Suites are skipped when either is unset.
type PostgresTestSuite struct {
	suite.Suite
	db *sqlx.DB
	m  *migrate.Migrate
}

func (s *PostgresTestSuite) SetupSuite() {
	var err error
	viper.AutomaticEnv()
	dbDsn := viper.GetString("DB_DSN")
	migrationsDsn := viper.GetString("MIGRATIONS_DSN")

	if dbDsn == "" || migrationsDsn == "" {
		s.T().Skip("DB_DSN and MIGRATIONS_DSN must be set to run postgres tests")
	}

	s.db, err = sqlx.Connect("pgx", dbDsn)
	require.NoError(s.T(), err, "failed to connect to database")

	s.m, err = NewMigrate(migrationsDsn)
	require.NoError(s.T(), err, "failed to open migrations")

	err = s.m.Up()
	if !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(s.T(), err, "failed to migrate database")
	}
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.m != nil {
		_ = s.m.Down()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *PostgresTestSuite) TearDownTest() {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec("TRUNCATE group_events, notifications, message_read_status, messages, chat_participants, chats, users")
	require.NoError(s.T(), err, "can't teardown test")
}

func (s *PostgresTestSuite) DB() *sqlx.DB {
	return s.db
}

// CreateUsers inserts n active users and returns them in insertion order.
func (s *PostgresTestSuite) CreateUsers(n int) []models.User {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewUsersStorage(s.db, invalidator{cache: NopCache{}})
	users := make([]models.User, n)
	for i := range users {
		id := uuid.NewString()
		users[i] = models.User{
			UserID:    id,
			FirstName: "User",
			LastName:  id[:8],
			Email:     id + "@campus.test",
			Status:    models.UserStatusActive,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(s.T(), store.CreateUser(ctx, &users[i]), "can't create user")
	}
	return users
}

// CreateChat inserts a chat with the given active members. The first member is the admin.
func (s *PostgresTestSuite) CreateChat(chatType models.ChatType, name string, members ...string) *models.Chat {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	chat := &models.Chat{
		ChatID:    uuid.NewString(),
		Type:      chatType,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	store := NewChatsStorage(s.db, invalidator{cache: NopCache{}})
	require.NoError(s.T(), store.CreateChat(ctx, chat), "can't create chat")

	participants := make([]models.ChatParticipant, len(members))
	for i, m := range members {
		participants[i] = models.ChatParticipant{ChatID: chat.ChatID, UserID: m, JoinedAt: now, IsAdmin: i == 0}
	}
	if len(participants) > 0 {
		_, err := store.UpsertParticipants(ctx, participants)
		require.NoError(s.T(), err, "can't add participants")
	}
	return chat
}
