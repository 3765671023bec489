package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestSimilarity_Cosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.5},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"mismatched dims", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, []float32{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b, MetricCosine)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarity_DotAndEuclidean(t *testing.T) {
	a := []float32{3, 4}
	b := []float32{3, 4}

	if got := Similarity(a, b, MetricDot); math.Abs(got-25) > 1e-9 {
		t.Errorf("dot = %v, want 25", got)
	}
	if got := Similarity(a, b, MetricEuclidean); math.Abs(got-1) > 1e-9 {
		t.Errorf("euclidean identical = %v, want 1", got)
	}
	// Distance 5 maps to 1/(1+5).
	if got := Similarity(a, []float32{0, 0}, MetricEuclidean); math.Abs(got-1.0/6) > 1e-9 {
		t.Errorf("euclidean = %v, want %v", got, 1.0/6)
	}
}

func TestSimilarity_UnknownMetricFallsBackToCosine(t *testing.T) {
	a := []float32{1, 0}
	if got := Similarity(a, a, "mystery"); math.Abs(got-1) > 1e-9 {
		t.Errorf("unknown metric = %v, want cosine 1", got)
	}
}

func TestVectorCache_EvictsOldestInserted(t *testing.T) {
	c := newVectorCache(3)
	c.set("a", []float32{1})
	c.set("b", []float32{2})
	c.set("c", []float32{3})

	// A lookup must not refresh the entry's position.
	c.get("a")
	c.set("d", []float32{4})

	if _, ok := c.get("a"); ok {
		t.Error("expected oldest-inserted 'a' to be evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if _, ok := c.get(k); !ok {
			t.Errorf("expected %q to survive", k)
		}
	}
}

func TestVectorCache_Singleflight(t *testing.T) {
	c := newVectorCache(10)

	var mu sync.Mutex
	loads := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.getOrLoad("key", func() ([]float32, error) {
				mu.Lock()
				loads++
				mu.Unlock()
				return []float32{42}, nil
			})
			if err != nil || len(v) != 1 || v[0] != 42 {
				t.Errorf("getOrLoad = %v, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	req := conv.Convert()
	texts, _ := req.Input.([]string)
	resp := openai.EmbeddingResponse{}
	for i, text := range texts {
		resp.Data = append(resp.Data, openai.Embedding{
			Index:     i,
			Embedding: f.vectors[text],
		})
	}
	return resp, nil
}

func newFakeProvider(vectors map[string][]float32, err error) (*OpenAI, *fakeEmbedder) {
	fake := &fakeEmbedder{vectors: vectors, err: err}
	p := NewOpenAI("test-model", 10)
	p.client = fake
	return p, fake
}

func TestOpenAI_EmbedCachesPerText(t *testing.T) {
	p, fake := newFakeProvider(map[string][]float32{"hello": {1, 2, 3}}, nil)
	ctx := context.Background()

	if !p.Available(ctx) {
		t.Fatal("provider with client should be available")
	}
	v := p.Embed(ctx, "hello")
	if len(v) != 3 {
		t.Fatalf("Embed = %v, want 3-dim vector", v)
	}
	p.Embed(ctx, "hello")
	if fake.calls != 1 {
		t.Errorf("backend calls = %d, want 1 (cached)", fake.calls)
	}
	if p.CacheLen() != 1 {
		t.Errorf("CacheLen = %d, want 1", p.CacheLen())
	}
}

func TestOpenAI_EmptyInputReturnsNil(t *testing.T) {
	p, fake := newFakeProvider(nil, nil)
	if v := p.Embed(context.Background(), ""); v != nil {
		t.Errorf("Embed(\"\") = %v, want nil", v)
	}
	if fake.calls != 0 {
		t.Errorf("backend calls = %d, want 0", fake.calls)
	}
}

func TestOpenAI_BackendErrorReturnsNil(t *testing.T) {
	p, _ := newFakeProvider(nil, errors.New("quota exceeded"))
	if v := p.Embed(context.Background(), "text"); v != nil {
		t.Errorf("Embed = %v, want nil on backend error", v)
	}
}

func TestOpenAI_UnavailableWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p := NewOpenAI("", 10)
	ctx := context.Background()
	if p.Available(ctx) {
		t.Error("provider without key should be unavailable")
	}
	// Unavailable stays unavailable.
	if p.Available(ctx) || p.Embed(ctx, "x") != nil {
		t.Error("availability must not flip after a failed load")
	}
}
