package knowledge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"content-forge/app/config"
	"content-forge/app/knowledge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRetrieverWithoutURLReturnsEmpty(t *testing.T) {
	t.Parallel()
	retriever := knowledge.NewHTTPRetriever(config.KnowledgeConfig{})

	snippets, err := retriever.RetrieveContext(context.Background(), "交通建设")
	require.NoError(t, err)
	assert.Nil(t, snippets)
}

func TestHTTPRetrieverRequestsService(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/retrieve", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "交通建设", payload["topic"])
		assert.Equal(t, float64(3), payload["top_k"])

		json.NewEncoder(w).Encode(map[string]any{"snippets": []map[string]any{
			{"content": "已新增三条公交线路", "source": "年度报告", "score": 0.92},
		}})
	}))
	defer server.Close()

	retriever := knowledge.NewHTTPRetriever(config.KnowledgeConfig{URL: server.URL, TopK: 3})

	snippets, err := retriever.RetrieveContext(context.Background(), "交通建设")
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "已新增三条公交线路", snippets[0].Content)
	assert.Equal(t, "年度报告", snippets[0].Source)
}

func TestHTTPRetrieverServiceError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	retriever := knowledge.NewHTTPRetriever(config.KnowledgeConfig{URL: server.URL, TopK: 3})

	_, err := retriever.RetrieveContext(context.Background(), "交通建设")
	assert.Error(t, err)
}

type countingRetriever struct {
	calls atomic.Int32
}

func (c *countingRetriever) RetrieveContext(ctx context.Context, topic string) ([]knowledge.Snippet, error) {
	c.calls.Add(1)
	return []knowledge.Snippet{{Content: "片段: " + topic}}, nil
}

func TestCachedRetrieverHitsCache(t *testing.T) {
	t.Parallel()
	inner := &countingRetriever{}
	cached := knowledge.NewCachedRetriever(inner, time.Minute)

	for i := 0; i < 3; i++ {
		snippets, err := cached.RetrieveContext(context.Background(), "交通建设")
		require.NoError(t, err)
		require.Len(t, snippets, 1)
	}
	// 重复主题只访问一次内层检索器
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err := cached.RetrieveContext(context.Background(), "垃圾分类")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}
