package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/docdex/embed"
	"github.com/veldtlabs/docdex/embed/mock"
)

func newTestCoordinator(t *testing.T, embedder *mock.MockEmbedder) *EmbeddingCoordinator {
	t.Helper()

	coordinator, err := NewEmbeddingCoordinator(embedder, 2, time.Millisecond, nil)
	require.NoError(t, err)
	return coordinator
}

func TestEmbeddingCoordinator_RequiresEmbedder(t *testing.T) {
	_, err := NewEmbeddingCoordinator(nil, 3, time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestEmbeddingCoordinator_HappyPath(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	coordinator := newTestCoordinator(t, embedder)

	texts := []string{"alpha", "beta", "gamma"}
	vectors, itemErrs, err := coordinator.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	require.Len(t, itemErrs, 3)
	for i := range texts {
		assert.NoError(t, itemErrs[i])
		assert.NotEmpty(t, vectors[i])
	}

	// One batch call, no per-item fallback.
	assert.Equal(t, 1, embedder.CallCount())
}

func TestEmbeddingCoordinator_EmptyBatch(t *testing.T) {
	coordinator := newTestCoordinator(t, mock.NewMockEmbedder())

	vectors, itemErrs, err := coordinator.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, embed.ErrEmptyBatch)
	assert.Nil(t, vectors)
	assert.Nil(t, itemErrs)
}

func TestEmbeddingCoordinator_NormalizesVectors(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{3, 4}}, nil
	}
	coordinator := newTestCoordinator(t, embedder)

	vectors, _, err := coordinator.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vectors[0][0], 1e-6)
	assert.InDelta(t, 0.8, vectors[0][1], 1e-6)
}

// One malformed item must not sink its batchmates: the coordinator falls
// back to per-item embedding and reports exactly one failure.
func TestEmbeddingCoordinator_IsolatesPoisonItem(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if strings.Contains(text, "poison") {
				return nil, errors.New("embedder rejected batch")
			}
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "poison") {
			return nil, errors.New("embedder rejected text")
		}
		return mock.DeterministicVector(text, 8), nil
	}
	coordinator := newTestCoordinator(t, embedder)

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("document %d", i)
	}
	texts[5] = "poison document"

	vectors, itemErrs, err := coordinator.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	failed := 0
	for i := range texts {
		if itemErrs[i] != nil {
			failed++
			assert.Equal(t, 5, i, "only the poison item should fail")
			assert.Nil(t, vectors[i])
			continue
		}
		assert.NotEmpty(t, vectors[i])
	}
	assert.Equal(t, 1, failed)
}

func TestEmbeddingCoordinator_HalvingAvoidsItemFallback(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	singleCalls := 0
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		// The embedder chokes on batches above 2 but handles halves fine.
		if len(texts) > 2 {
			return nil, errors.New("batch too large")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		singleCalls++
		return mock.DeterministicVector(text, 8), nil
	}
	coordinator := newTestCoordinator(t, embedder)

	vectors, itemErrs, err := coordinator.EmbedBatch(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)

	for i := range vectors {
		assert.NoError(t, itemErrs[i])
		assert.NotEmpty(t, vectors[i])
	}
	assert.Zero(t, singleCalls, "halving should succeed without per-item fallback")
}

func TestEmbeddingCoordinator_AllItemsFailAbortsRun(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("model unavailable")
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model unavailable")
	}
	coordinator := newTestCoordinator(t, embedder)

	_, _, err := coordinator.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrEmbeddingAborted)
}

func TestEmbeddingCoordinator_CancelledContext(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	coordinator := newTestCoordinator(t, embedder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := coordinator.EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}
