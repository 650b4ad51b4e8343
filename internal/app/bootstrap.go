package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/api/option"

	"lectern/features/course"
	wstore "lectern/internal/adapter/weaviate"
	"lectern/internal/config"
	"lectern/internal/vector"
)

type Dependencies struct {
	Weaviate    *weaviate.Client
	VectorStore *wstore.Store
	Genai       *genai.Client
	NSQProducer *nsq.Producer
}

// Bootstrap connects external dependencies and prepares them for use: the
// Weaviate schema is ensured with retries, and the NSQ producer is optional
// (nil when NSQD_HOST is unset).
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Weaviate
	wCfg := weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme}
	wClient, err := weaviate.NewClient(wCfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	ensurer := &weaviateSchemaEnsurer{client: vector.NewSchemaAdapter(wClient)}
	if err := EnsureSchemaWithRetry(ctx, ensurer, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		return nil, fmt.Errorf("weaviate schema error: %w", err)
	}

	// Gemini
	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("genai client error: %w", err)
	}

	// NSQ Producer
	var producer *nsq.Producer
	if cfg.NSQDHost != "" {
		nsqCfg := nsq.NewConfig()
		producer, err = nsq.NewProducer(cfg.NSQDHost, nsqCfg)
		if err != nil {
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		if cfg.NSQDHTTP != "" {
			createTopics(cfg.NSQDHTTP)
		}
	} else {
		slog.Info("NSQD_HOST not set, ingestion events disabled")
	}

	return &Dependencies{
		Weaviate:    wClient,
		VectorStore: wstore.NewStore(wClient),
		Genai:       genaiClient,
		NSQProducer: producer,
	}, nil
}

// createTopics pre-creates topics over the nsqd http api. NSQ creates topics
// lazily on publish, but consumers querying lookupd fail 404 until then.
func createTopics(nsqdHTTP string) {
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		time.Sleep(2 * time.Second)
		create(course.TopicCourseIngested)
	}()
}

type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

type weaviateSchemaEnsurer struct {
	client vector.SchemaClient
}

func (e *weaviateSchemaEnsurer) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, e.client)
}

// EnsureSchemaWithRetry waits out slow Weaviate startups before giving up.
func EnsureSchemaWithRetry(ctx context.Context, s SchemaEnsurer, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = s.EnsureSchema(ctx); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
