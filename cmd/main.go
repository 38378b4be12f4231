package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Shopify/sarama"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/practice-sem-2/campus-chat-service/internal/server"
	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	usecase "github.com/practice-sem-2/campus-chat-service/internal/usecases"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func initLogger(level string) *logrus.Logger {

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		logger.
			WithField("log_level", level).
			Warning("specified invalid log level")
	} else {
		logger.SetLevel(logLevel)
		logger.
			WithField("log_level", level).
			Infof("specified %s log level", logLevel.String())
	}

	return logger
}

func initConfig() {
	viper.SetDefault("UPDATES_TOPIC", "campus-chat-updates")
	viper.SetDefault("CACHE_TTL", 5*time.Minute)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SWEEP_INTERVAL", time.Hour)
	viper.SetDefault("BULK_CHUNK_SIZE", storage.DefaultChunkSize)
	viper.SetDefault("NOTIFICATION_TTL", 30*24*time.Hour)
	viper.SetDefault("MIGRATE_ON_START", false)
	viper.AutomaticEnv()
}

func initDB(dsn string, logger *logrus.Logger) *sqlx.DB {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		logger.Fatalf("can't connect to database: %s", err.Error())
	}

	err = db.Ping()

	if err != nil {
		logger.Fatalf("database ping failed: %s", err.Error())
	}

	logger.Info("successfully connected to database")
	return db
}

func runMigrations(dsn string, logger *logrus.Logger) {
	m, err := storage.NewMigrate(dsn)
	if err != nil {
		logger.Fatalf("can't prepare migrations: %s", err.Error())
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("database schema is up to date")
		return
	}
	if err != nil {
		logger.Fatalf("migrations failed: %s", err.Error())
	}
	logger.Info("migrations applied")
}

// initCache returns nil when caching is disabled.
func initCache(logger *logrus.Logger) storage.Cache {
	addr := viper.GetString("REDIS_ADDR")
	ttl := viper.GetDuration("CACHE_TTL")
	if addr == "" || ttl <= 0 {
		logger.Info("cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis is unreachable, cache reads will fall back to database")
	}

	return storage.NewRedisCache(client, ttl, logger)
}

// initProducer returns nil when no brokers are configured, which turns updates into no-ops.
func initProducer(logger *logrus.Logger) sarama.SyncProducer {
	brokers := viper.GetString("KAFKA_BROKERS")
	if len(brokers) == 0 {
		logger.Warn("KAFKA_BROKERS is not defined, updates will not be published")
		return nil
	}

	addrs := strings.Split(brokers, ",")
	config := sarama.NewConfig()
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Timeout = 10 * time.Second
	config.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(addrs, config)

	if err != nil {
		logger.WithError(err).Fatalf("can't create producer")
	}

	return producer
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "can't load .env: %s\n", err.Error())
	}
	initConfig()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	defer stop()

	var host string
	var port int
	var logLevel string

	flag.IntVar(&port, "port", 80, "port on which server will be started")
	flag.StringVar(&host, "host", "0.0.0.0", "host on which server will be started")
	flag.StringVar(&logLevel, "log", "info", "log level")

	flag.Parse()

	logger := initLogger(logLevel)

	dsn := viper.GetString("DB_DSN")
	if viper.GetBool("MIGRATE_ON_START") {
		migrationsDsn := viper.GetString("MIGRATIONS_DSN")
		if migrationsDsn == "" {
			migrationsDsn = dsn
		}
		runMigrations(migrationsDsn, logger)
	}

	db := initDB(dsn, logger)
	defer func(db *sqlx.DB) {
		err := db.Close()
		if err != nil {
			logger.Errorf("during db connection close an error occurred: %s", err.Error())
		}
	}(db)

	producer := initProducer(logger)
	if producer != nil {
		defer producer.Close()
	}

	store := storage.NewRegistry(db, producer, initCache(logger), &storage.RegistryConfig{
		Updates: &storage.UpdatesStoreConfig{
			UpdatesTopic: viper.GetString("UPDATES_TOPIC"),
		},
		ChunkSize: viper.GetInt("BULK_CHUNK_SIZE"),
	})

	validate := usecase.NewValidator()
	fanout := usecase.NewFanout(viper.GetDuration("NOTIFICATION_TTL"))

	chats := usecase.NewChatsUsecase(store, validate, fanout, logger)
	messages := usecase.NewMessagesUsecase(store, validate, fanout, logger)
	events := usecase.NewGroupEventsUsecase(store, validate, fanout, logger)
	notifications := usecase.NewNotificationsUsecase(store, validate, fanout, logger)

	secret := viper.GetString("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET environment variable must be defined")
	}

	srv := server.NewServer(chats, messages, events, notifications, db.PingContext, secret, logger)
	address := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go notifications.RunSweeper(ctx, viper.GetDuration("SWEEP_INTERVAL"))

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal caught. Gracefully shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("http server shutdown failed")
		}
	}()

	logger.Infof("start listening on %s", address)
	err := httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http serving error: %s", err.Error())
	}
}
