package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trickia-quiz/internal/app"
	"trickia-quiz/internal/config"
	"trickia-quiz/internal/infra/memory"
	"trickia-quiz/internal/infra/postgres"
	redisstore "trickia-quiz/internal/infra/redis"
	"trickia-quiz/internal/infra/trivia"
	transport "trickia-quiz/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
			return err
		}
		defer pool.Close()
	}

	sources, err := buildSources(cfg)
	if err != nil {
		return err
	}

	var profiles app.ProfileRepository = memory.NewProfileRepository()
	if pool != nil {
		profiles = postgres.NewProfileRepository(pool)
	}
	profileTTL := config.TTLDuration(cfg.Quiz.ProfileTTL, time.Minute)
	if redisClient != nil {
		profiles = redisstore.NewProfileCache(redisClient, profiles, profileTTL)
	} else {
		profiles = memory.NewProfileCache(profiles, profileTTL)
	}

	var seen app.SeenStore
	if cfg.Quiz.RememberSeen {
		switch {
		case pool != nil:
			seen = postgres.NewSeenStore(pool)
		case redisClient != nil:
			seen = redisstore.NewSeenStore(redisClient)
		default:
			seen = memory.NewSeenStore()
		}
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewQuizService(store, sources, seen, profiles, app.Options{
		Discount: cfg.Quiz.Discount,
		Attempts: cfg.Quiz.Attempts,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trickia server on :%s (sources: %v)", finalPort, cfg.Quiz.Sources)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildSources instantiates the question providers listed in quiz.sources,
// in order.
func buildSources(cfg config.Config) ([]app.QuestionSource, error) {
	httpClient := &http.Client{Timeout: config.TTLDuration(cfg.Quiz.FetchTimeout, 5*time.Second)}

	var sources []app.QuestionSource
	for _, name := range cfg.Quiz.Sources {
		switch name {
		case config.SourceBank:
			bank, err := loadBank(cfg.Quiz.BankPath)
			if err != nil {
				return nil, err
			}
			sources = append(sources, bank)
		case config.SourceOpenTDB:
			sources = append(sources, trivia.NewOpenTDB(cfg.Quiz.OpenTDBURL, httpClient))
		case config.SourceTriviaAPI:
			sources = append(sources, trivia.NewTriviaAPI(cfg.Quiz.TriviaAPIURL, httpClient))
		default:
			return nil, fmt.Errorf("unknown question source %q", name)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no question sources configured")
	}
	return sources, nil
}

func loadBank(path string) (*memory.QuestionBank, error) {
	if path == "" {
		return memory.NewBuiltinQuestionBank()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return memory.NewQuestionBank(raw)
}
