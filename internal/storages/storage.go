package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/jmoiron/sqlx"
)

const DefaultChunkSize = 1000

type AtomicFunc func(Registry) error

type Registry interface {
	Atomic(ctx context.Context, fn AtomicFunc) error
	GetChatsStore() *ChatsStorage
	GetMessagesStore() *MessagesStorage
	GetNotificationsStore() *NotificationsStorage
	GetGroupEventsStore() *GroupEventsStorage
	GetUsersStore() *UsersStorage
	GetUpdatesStore() *UpdatesStorage
}

type RegistryConfig struct {
	Updates *UpdatesStoreConfig
	// ChunkSize bounds the rows written by a single bulk statement.
	ChunkSize int
}

type DefaultRegistry struct {
	db       *sqlx.DB
	scope    Scope
	producer sarama.SyncProducer
	cache    Cache
	cfg      *RegistryConfig
	hooks    *commitHooks
	versions *invalidations
}

type Scope interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	sqlx.Execer
	sqlx.Queryer
	Get(dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExec(query string, arg interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	NamedQuery(query string, arg interface{}) (*sqlx.Rows, error)
}

// NewRegistry wires the stores over db. A nil producer disables updates and
// a nil cache disables caching.
func NewRegistry(db *sqlx.DB, p sarama.SyncProducer, c Cache, cfg *RegistryConfig) *DefaultRegistry {
	if c == nil {
		c = NopCache{}
	}
	if cfg == nil {
		cfg = &RegistryConfig{}
	}
	if cfg.Updates == nil {
		cfg.Updates = &UpdatesStoreConfig{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &DefaultRegistry{
		db:       db,
		scope:    db,
		producer: p,
		cache:    c,
		cfg:      cfg,
		versions: &invalidations{},
	}
}

// Atomic runs fn inside one transaction. Calling it on a registry that is
// already bound to a transaction runs fn in that same transaction.
func (r *DefaultRegistry) Atomic(ctx context.Context, fn AtomicFunc) (err error) {
	if r.hooks != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return classifyError(err)
	}

	hooks := &commitHooks{}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback caused by error: \"%w\" failed: %v", err, rbErr)
			}
			err = classifyError(err)
			return
		}
		if err = tx.Commit(); err != nil {
			err = classifyError(err)
			return
		}
		hooks.run(ctx)
	}()

	storage := DefaultRegistry{
		db:       r.db,
		scope:    tx,
		producer: r.producer,
		cache:    r.cache,
		cfg:      r.cfg,
		hooks:    hooks,
		versions: r.versions,
	}
	err = fn(&storage)
	return err
}

func (r *DefaultRegistry) invalidator() invalidator {
	return invalidator{cache: r.cache, hooks: r.hooks, versions: r.versions}
}

func (r *DefaultRegistry) GetChatsStore() *ChatsStorage {
	return NewChatsStorage(r.scope, r.invalidator())
}

func (r *DefaultRegistry) GetMessagesStore() *MessagesStorage {
	return NewMessagesStorage(r.scope, r.cfg.ChunkSize)
}

func (r *DefaultRegistry) GetNotificationsStore() *NotificationsStorage {
	return NewNotificationsStorage(r.scope, r.cfg.ChunkSize)
}

func (r *DefaultRegistry) GetGroupEventsStore() *GroupEventsStorage {
	return NewGroupEventsStorage(r.scope)
}

func (r *DefaultRegistry) GetUsersStore() *UsersStorage {
	return NewUsersStorage(r.scope, r.invalidator())
}

func (r *DefaultRegistry) GetUpdatesStore() *UpdatesStorage {
	return NewUpdatesStore(r.producer, r.cfg.Updates)
}

type commitHooks struct {
	fns []func(context.Context)
}

func (h *commitHooks) add(fn func(context.Context)) {
	h.fns = append(h.fns, fn)
}

func (h *commitHooks) run(ctx context.Context) {
	for _, fn := range h.fns {
		fn(ctx)
	}
}
