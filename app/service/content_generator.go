package service

import (
	"context"
	"fmt"
	"strings"

	"content-forge/app/knowledge"
	"content-forge/app/logger"
	"content-forge/app/model"
)

// ContentGenerator 文案生成器
// 从知识库检索参考片段，按风格和长度组装文案草稿，
// 记录为第一个版本后把任务送入审核
type ContentGenerator struct {
	retriever knowledge.Retriever
	flow      *TaskFlowService
	log       *logger.Logger
}

// NewContentGenerator 创建文案生成器
func NewContentGenerator(retriever knowledge.Retriever, flow *TaskFlowService, log *logger.Logger) *ContentGenerator {
	return &ContentGenerator{
		retriever: retriever,
		flow:      flow,
		log:       log,
	}
}

// Generate 建立任务并生成一版文案草稿
func (g *ContentGenerator) Generate(ctx context.Context, topic, style, length string) (*model.ContentTask, string, error) {
	task, err := g.flow.CreateTask(topic, style, length)
	if err != nil {
		return nil, "", err
	}

	snippets, err := g.retriever.RetrieveContext(ctx, topic)
	if err != nil {
		// 检索失败不阻断生成，退化为无参考资料的草稿
		g.log.Warnf("⚠️ 知识库检索失败，继续生成: %v", err)
		snippets = nil
	}

	content := g.compose(topic, style, length, snippets)

	if _, err := g.flow.RecordGeneratedContent(task.ID, content); err != nil {
		return nil, "", err
	}

	g.log.Infof("📝 文案生成完成: %s (%d 个参考片段)", task.ID, len(snippets))
	task.Status = model.TaskStatusReviewing
	task.Content = &content
	return task, content, nil
}

// compose 组装文案草稿
func (g *ContentGenerator) compose(topic, style, length string, snippets []knowledge.Snippet) string {
	var b strings.Builder

	switch model.ContentStyle(style) {
	case model.StylePress:
		b.WriteString(fmt.Sprintf("【市政新闻稿】%s\n\n", topic))
	case model.StyleSpeech:
		b.WriteString(fmt.Sprintf("各位市民朋友大家好，今天我想跟大家谈谈%s。\n\n", topic))
	case model.StyleFacebook, model.StyleInstagram:
		b.WriteString(fmt.Sprintf("📢 关于%s，想跟大家分享几件事。\n\n", topic))
	case model.StylePoster:
		b.WriteString(fmt.Sprintf("%s——与每一位市民息息相关。\n\n", topic))
	default:
		b.WriteString(fmt.Sprintf("关于%s：\n\n", topic))
	}

	// 参考片段数量随长度要求递增
	limit := 2
	switch model.ContentLength(length) {
	case model.LengthMedium:
		limit = 3
	case model.LengthLong:
		limit = 5
	}
	for i, s := range snippets {
		if i >= limit {
			break
		}
		b.WriteString(strings.TrimSpace(s.Content))
		b.WriteString("\n\n")
	}

	b.WriteString("市政府会持续努力，为市民创造更美好的生活。")
	return b.String()
}
