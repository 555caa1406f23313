package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/fanout"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
	}

	var (
		loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
		users  interface {
			app.UserRepository
			transport.Users
		} = memory.NewUserStore(sampleUsers()...)
	)
	if pool != nil {
		loader = postgres.NewQuizStore(pool)
		users = postgres.NewUserStore(pool)
	} else {
		logger.Warn("postgres not configured, serving built-in sample quizzes")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	bus := fanout.NewBus(fanout.NewDeliverer(logger))
	var (
		rooms       app.RoomRepository = memory.NewRoomStore()
		redisRooms  *redisstore.RoomStore
		eventMirror *redisstore.EventMirror
	)
	if redisClient != nil {
		redisRooms = redisstore.NewRoomStore(redisClient, redisTTL, logger)
		rooms = redisRooms
		eventMirror = redisstore.NewEventMirror(redisClient, 1024, logger)
		bus.Subscribe(eventMirror)
	}

	resolver, err := newResolver(cfg, redisClient)
	if err != nil {
		return err
	}

	opts := app.DefaultOptions()
	opts.PreStartSeconds = cfg.Session.PreStartSeconds
	opts.ResultsSeconds = cfg.Session.ResultsSeconds
	opts.ComposeTimeout = config.TTLDuration(cfg.Session.ComposeTimeout, opts.ComposeTimeout)
	opts.SearchLimit = cfg.Session.SearchLimit
	opts.ChatMaxLength = cfg.Session.ChatMaxLength
	opts.Logger = logger
	service := app.NewSessionService(rooms, quizRepo, users, auth.NewBcryptHasher(bcrypt.DefaultCost), bus, opts)

	router := transport.NewRouter(
		transport.NewRoomsHandler(service, resolver, logger),
		transport.NewWSHandler(service, resolver, users, cfg.Server.AllowedOrigins, logger),
	)
	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		// hijacked websocket connections manage their own deadlines
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting quiz service", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	if eventMirror != nil {
		g.Go(func() error { return eventMirror.Run(gctx) })
	}
	if redisRooms != nil {
		g.Go(func() error { return redisRooms.Keepalive(gctx, redisTTL/2) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newResolver(cfg config.Config, client *redis.Client) (auth.Resolver, error) {
	switch cfg.Auth.Mode {
	case config.AuthSession:
		if client == nil {
			return nil, errors.New("auth mode session requires redis")
		}
		return auth.NewSessionResolver(client, cfg.Auth.CookieName, cfg.Auth.SessionPrefix), nil
	case config.AuthJWT:
		if cfg.Auth.JWTSecret == "" {
			return nil, errors.New("auth mode jwt requires a secret")
		}
		return auth.NewTokenResolver(cfg.Auth.JWTSecret), nil
	case config.AuthQuery:
		return auth.QueryResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}
