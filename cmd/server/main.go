package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"group-chat/auth"
	"group-chat/domain/event"
	"group-chat/moderation"
	"group-chat/repositories"
	"group-chat/runtime"
	"group-chat/runtime/workers"
	"group-chat/search"
	"group-chat/services"
	"group-chat/transport/httpapi"
	"group-chat/transport/ws"
)

// Exit codes to provide meaningful status to the operating system or a
// service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main is a thin wrapper: run() owns the lifecycle so that deferred
	// cleanup (database close, index flush) happens before the process
	// exits.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}
	logger := newLogger(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Durable stores (BadgerDB for the logs, Bluge for the projection)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	if err := os.MkdirAll(config.UploadsDir, 0o755); err != nil {
		return exitRuntime, fmt.Errorf("uploads dir: %w", err)
	}

	// 3. Moderation automaton
	words, err := moderation.LoadWords()
	if err != nil {
		return exitRuntime, err
	}
	moderator, err := moderation.NewModerator(words, charReplacement)
	if err != nil {
		return exitRuntime, err
	}
	logger.Info(fmt.Sprintf("%d censored words loaded", len(words)))

	// 4. Repositories, broker, services
	groupRepository := repositories.NewGroupRepository(db, logger)
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	profileRepository := repositories.NewProfileRepository(db)

	registry := runtime.NewRegistry(logger)
	index := search.NewIndex(blugeWriter, logger)
	events := make(chan event.DomainEvent, config.EventBufferSize)

	tokens := auth.NewTokenManager([]byte(config.JWTSecret), config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, tokens, logger)
	membershipService := services.NewMembershipService(groupRepository, registry, logger)
	chatService := services.NewChatService(
		groupRepository, messageRepository, registry, moderator, index, events, logger)

	// 5. Background workers under supervision
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(workers.NewIndexWorker(logger, events, index))
	supervisor.Add(workers.NewHeartbeatWorker(logger, config.HeartbeatInterval))
	go supervisor.Run(ctx)

	// 6. Transport
	gateway := ws.NewGateway(
		logger, registry, membershipService, chatService,
		config.SessionBufferSize, config.MaxMessageBytes)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Log:        logger,
		Auth:       authService,
		Membership: membershipService,
		Chat:       chatService,
		Profiles:   profileRepository,
		Tokens:     tokens,
		Gateway:    gateway,
		UploadsDir: config.UploadsDir,
	})

	server := &http.Server{Addr: config.HTTPAddr, Handler: router}
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Server listening", "addr", config.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		supervisor.Stop()
		return exitRuntime, err
	}

	supervisor.Stop()
	return exitOK, nil
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}
