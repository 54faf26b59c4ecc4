package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"content-forge/app/knowledge"
	"content-forge/app/logger"
	"content-forge/app/model"
	"content-forge/app/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRetriever 返回预置片段或预置错误
type fakeRetriever struct {
	snippets []knowledge.Snippet
	err      error
	calls    int
}

func (f *fakeRetriever) RetrieveContext(ctx context.Context, topic string) ([]knowledge.Snippet, error) {
	f.calls++
	return f.snippets, f.err
}

func TestGenerateCreatesReviewingTaskWithFirstVersion(t *testing.T) {
	t.Parallel()
	flow, _ := newTestFlow(t)

	retriever := &fakeRetriever{snippets: []knowledge.Snippet{
		{Content: "已完成三条自行车道建设", Source: "市政报告", Score: 0.9},
		{Content: "明年预算增加两成", Source: "预算书", Score: 0.8},
	}}
	generator := service.NewContentGenerator(retriever, flow, logger.NewNop())

	task, content, err := generator.Generate(context.Background(), "自行车道", string(model.StyleSpeech), string(model.LengthShort))
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusReviewing, task.Status)
	assert.Contains(t, content, "自行车道")
	assert.Contains(t, content, "已完成三条自行车道建设")
	assert.Equal(t, 1, retriever.calls)

	// 生成的文案被记录为第一个版本，来源是系统
	versions, err := flow.Versions(task.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, "system", versions[0].CreatedBy)
	assert.Equal(t, content, versions[0].Content)
}

func TestGenerateToleratesRetrieverFailure(t *testing.T) {
	t.Parallel()
	flow, _ := newTestFlow(t)

	retriever := &fakeRetriever{err: errors.New("检索服务不可用")}
	generator := service.NewContentGenerator(retriever, flow, logger.NewNop())

	task, content, err := generator.Generate(context.Background(), "垃圾分类", string(model.StylePress), string(model.LengthShort))
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusReviewing, task.Status)
	assert.Contains(t, content, "垃圾分类")
}

func TestGenerateSnippetLimitByLength(t *testing.T) {
	t.Parallel()

	snippets := make([]knowledge.Snippet, 6)
	for i := range snippets {
		snippets[i] = knowledge.Snippet{Content: "片段" + strings.Repeat("一", i+1)}
	}

	cases := []struct {
		length string
		want   int
	}{
		{string(model.LengthShort), 2},
		{string(model.LengthMedium), 3},
		{string(model.LengthLong), 5},
	}
	for _, tc := range cases {
		flow, _ := newTestFlow(t)
		generator := service.NewContentGenerator(&fakeRetriever{snippets: snippets}, flow, logger.NewNop())

		_, content, err := generator.Generate(context.Background(), "测试主题", string(model.StylePress), tc.length)
		require.NoError(t, err)

		used := 0
		for _, s := range snippets {
			if strings.Contains(content, s.Content) {
				used++
			}
		}
		assert.Equal(t, tc.want, used, "长度 %s 应使用 %d 个片段", tc.length, tc.want)
	}
}
