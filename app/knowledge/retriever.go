package knowledge

import (
	"context"
	"fmt"
	"time"

	"content-forge/app/config"

	gocache "github.com/patrickmn/go-cache"
	"resty.dev/v3"
)

// Snippet 知识库检索出的一条片段
type Snippet struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// Retriever 知识库检索接口
// 文档的切分、向量化和索引由独立的检索服务负责，这里只消费检索结果
type Retriever interface {
	RetrieveContext(ctx context.Context, topic string) ([]Snippet, error)
}

// HTTPRetriever 访问远程检索服务的实现
type HTTPRetriever struct {
	cfg    config.KnowledgeConfig
	client *resty.Client
}

// NewHTTPRetriever 创建远程检索客户端
func NewHTTPRetriever(cfg config.KnowledgeConfig) *HTTPRetriever {
	client := resty.New()
	client.SetBaseURL(cfg.URL)

	return &HTTPRetriever{
		cfg:    cfg,
		client: client,
	}
}

type retrieveResponse struct {
	Snippets []Snippet `json:"snippets"`
}

// RetrieveContext 按主题检索参考片段
// 未配置检索服务时返回空结果，文案生成会退化为纯模板
func (r *HTTPRetriever) RetrieveContext(ctx context.Context, topic string) ([]Snippet, error) {
	if r.cfg.URL == "" {
		return nil, nil
	}

	var result retrieveResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"topic": topic,
			"top_k": r.cfg.TopK,
		}).
		SetResult(&result).
		Post("/retrieve")
	if err != nil {
		return nil, fmt.Errorf("请求检索服务失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("检索服务返回错误: %d %s", resp.StatusCode(), resp.String())
	}
	return result.Snippets, nil
}

// CachedRetriever 带缓存的检索装饰器
// 同一主题短时间内重复生成时避免反复请求检索服务
type CachedRetriever struct {
	inner Retriever
	cache *gocache.Cache
}

// NewCachedRetriever 创建带缓存的检索器
func NewCachedRetriever(inner Retriever, ttl time.Duration) *CachedRetriever {
	return &CachedRetriever{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// RetrieveContext 优先命中缓存，未命中时透传给内层检索器
func (c *CachedRetriever) RetrieveContext(ctx context.Context, topic string) ([]Snippet, error) {
	if cached, found := c.cache.Get(topic); found {
		return cached.([]Snippet), nil
	}

	snippets, err := c.inner.RetrieveContext(ctx, topic)
	if err != nil {
		return nil, err
	}
	c.cache.Set(topic, snippets, gocache.DefaultExpiration)
	return snippets, nil
}
