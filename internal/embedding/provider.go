// Package embedding computes and caches sentence-embedding vectors for
// semantic search.
package embedding

import (
	"context"
	"log/slog"
	"os"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when the search config names no embedding model.
const DefaultModel = "text-embedding-3-small"

// Provider computes embedding vectors. Implementations never panic on empty
// input; they return nil.
type Provider interface {
	// Available reports whether the embedding model loaded successfully.
	// Once loading has failed it stays false for the life of the process.
	Available(ctx context.Context) bool

	// Embed returns the vector for a text, or nil when the model is
	// unavailable, the text is empty, or the computation fails.
	Embed(ctx context.Context, text string) []float32
}

// embedder is the single go-openai call the provider depends on, split out
// so tests can substitute it.
type embedder interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAI is a Provider backed by the OpenAI embeddings API. The client is
// built lazily on first use; a missing API key marks the provider
// unavailable forever.
type OpenAI struct {
	model  string
	cache  *vectorCache
	apiKey string

	mu     sync.Mutex
	client embedder // set by load, or pre-set in tests
	failed bool
	loaded bool
}

// NewOpenAI creates a provider for the named model with the given cache
// capacity. The API key comes from OPENAI_API_KEY.
func NewOpenAI(model string, cacheSize int) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		model:  model,
		cache:  newVectorCache(cacheSize),
		apiKey: os.Getenv("OPENAI_API_KEY"),
	}
}

func (p *OpenAI) load() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return !p.failed
	}
	p.loaded = true
	if p.client != nil {
		return true
	}
	if p.apiKey == "" {
		slog.Warn("embedding model unavailable: OPENAI_API_KEY not set", "model", p.model)
		p.failed = true
		return false
	}
	p.client = openai.NewClient(p.apiKey)
	return true
}

// Available reports whether the embedding client could be constructed.
func (p *OpenAI) Available(_ context.Context) bool {
	return p.load()
}

// Embed computes (or serves from cache) the vector for text.
func (p *OpenAI) Embed(ctx context.Context, text string) []float32 {
	if text == "" || !p.load() {
		return nil
	}

	vec, err := p.cache.getOrLoad(text, func() ([]float32, error) {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(p.model),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, nil
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		slog.Warn("embedding failed", "model", p.model, "error", err)
		return nil
	}
	return vec
}

// CacheLen reports the number of cached vectors.
func (p *OpenAI) CacheLen() int { return p.cache.len() }
