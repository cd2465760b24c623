package probax

import (
	"context"
	"crypto/tls"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultRequestTimeout = 10 * time.Second
	DefaultDebounceWindow = 180 * time.Millisecond
	DefaultSuggestLimit   = 10
	DefaultSearchLimit    = 10
	MinQueryLength        = 2
)

// Config is passed explicitly to the resolver, fetcher and enricher.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	DebounceWindow time.Duration
	SuggestLimit   int
	SearchLimit    int
	Routes         Routes
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		DebounceWindow: DefaultDebounceWindow,
		SuggestLimit:   DefaultSuggestLimit,
		SearchLimit:    DefaultSearchLimit,
		Routes:         DefaultRoutes(),
	}
}

// LoadConfig reads .env (if any) and PROBAX_API_BASE_URL. Everything else
// keeps its default.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := DefaultConfig()
	if base := strings.TrimSpace(os.Getenv("PROBAX_API_BASE_URL")); base != "" {
		cfg.BaseURL = base
	}
	return cfg
}

// NewLogger installs a text logger on stdout as the default logger. The
// level comes from LOG_LEVEL.
func NewLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetClientOptions builds the Temporal client options from the environment.
// It expects LoadConfig to have run so that .env is already applied. A nil
// logger means slog.Default().
func GetClientOptions(logger *slog.Logger) client.Options {
	if logger == nil {
		logger = slog.Default()
	}

	TemporalAddress := os.Getenv("TEMPORAL_HOST")
	if TemporalAddress == "" {
		logger.Error("TEMPORAL_HOST environment variable is not set")
		os.Exit(1)
	}

	TemporalNamespace := os.Getenv("TEMPORAL_NAMESPACE")
	if TemporalNamespace == "" {
		logger.Error("TEMPORAL_NAMESPACE environment variable is not set")
		os.Exit(1)
	}

	clientOptions := client.Options{
		HostPort:  TemporalAddress,
		Namespace: TemporalNamespace,
		Logger:    tlog.NewStructuredLogger(logger),
	}

	clientOptions.ConnectionOptions = client.ConnectionOptions{
		TLS: &tls.Config{},
		DialOptions: []grpc.DialOption{
			grpc.WithUnaryInterceptor(
				func(ctx context.Context, method string, req any, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
					return invoker(
						metadata.AppendToOutgoingContext(ctx, "temporal-namespace", TemporalNamespace),
						method,
						req,
						reply,
						cc,
						opts...,
					)
				},
			),
		},
	}

	if TemporalAddress != "localhost:7233" && TemporalAddress != "host.docker.internal:7233" {
		TemporalAPIKey := os.Getenv("TEMPORAL_API_KEY")
		if TemporalAPIKey == "" {
			logger.Error("TEMPORAL_API_KEY environment variable is not set")
			os.Exit(1)
		}

		clientOptions.Credentials = client.NewAPIKeyStaticCredentials(TemporalAPIKey)
	} else {
		clientOptions.ConnectionOptions.TLS = nil // Disable TLS for local development
	}

	return clientOptions
}

// TaskQueue returns TASK_QUEUE, falling back to the default queue name.
func TaskQueue() string {
	if q := os.Getenv("TASK_QUEUE"); q != "" {
		return q
	}
	return TaskQueueName
}
