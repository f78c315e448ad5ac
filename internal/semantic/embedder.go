// Package semantic provides the OpenAI-backed embedder used by the semantic
// matching strategy: rate-limited embedding calls with a cache of product
// vectors keyed by product identity and name hash, so a product is
// re-embedded only when its name changes.
package semantic

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kervanis/order-engine/internal/domain/catalog"
)

// VectorCache stores embedding vectors. Implementations must be safe for
// concurrent use.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error
}

// NoopCache satisfies VectorCache without storing anything.
type NoopCache struct{}

// Get implements VectorCache.
func (NoopCache) Get(context.Context, string) ([]float32, bool, error) { return nil, false, nil }

// Set implements VectorCache.
func (NoopCache) Set(context.Context, string, []float32, time.Duration) error { return nil }

// EmbeddingClient is the slice of the OpenAI client used here.
// *openai.Client satisfies it.
type EmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Config tunes the embedder.
type Config struct {
	// Model is the embedding model name. Defaults to text-embedding-3-small.
	Model string
	// Timeout bounds each remote call. Defaults to 5s.
	Timeout time.Duration
	// RequestsPerSecond limits the call rate. Defaults to 5.
	RequestsPerSecond float64
	// CacheTTL is how long product vectors stay cached. Defaults to 24h.
	CacheTTL time.Duration
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = string(openai.SmallEmbedding3)
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
}

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	client  EmbeddingClient
	cache   VectorCache
	limiter *rate.Limiter
	cfg     Config
}

// NewOpenAI creates an embedder. A nil cache falls back to NoopCache.
func NewOpenAI(client EmbeddingClient, cache VectorCache, cfg Config) *OpenAI {
	cfg.defaults()
	if cache == nil {
		cache = NoopCache{}
	}
	burst := max(1, int(cfg.RequestsPerSecond))
	return &OpenAI{
		client:  client,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		cfg:     cfg,
	}
}

// EmbedText embeds a single text, waiting on the rate limiter first.
func (o *OpenAI) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(o.cfg.Model),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embedding")
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response is empty")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedProduct returns the product-name embedding, serving from cache when
// the name has not changed since it was last embedded.
func (o *OpenAI) EmbedProduct(ctx context.Context, p catalog.Product) ([]float32, error) {
	key := productKey(p)

	if vec, ok, err := o.cache.Get(ctx, key); err == nil && ok {
		return vec, nil
	}

	vec, err := o.EmbedText(ctx, p.Name)
	if err != nil {
		return nil, err
	}

	// A cache write failure only costs a recompute later.
	_ = o.cache.Set(ctx, key, vec, o.cfg.CacheTTL)
	return vec, nil
}

// productKey derives the cache key from product identity plus a hash of the
// name, so renames invalidate naturally.
func productKey(p catalog.Product) string {
	sum := sha1.Sum([]byte(p.Name))
	return "emb:" + p.ID + ":" + hex.EncodeToString(sum[:4])
}
