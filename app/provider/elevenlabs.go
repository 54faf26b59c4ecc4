package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"content-forge/app/config"

	"resty.dev/v3"
)

const elevenLabsProviderName = "elevenlabs"

// ElevenLabsClient 语音合成客户端
// 合成是同步快速的，不需要轮询
type ElevenLabsClient struct {
	cfg    config.VoiceConfig
	client *resty.Client
}

// NewElevenLabsClient 创建语音合成客户端
func NewElevenLabsClient(cfg config.VoiceConfig) *ElevenLabsClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("xi-api-key", cfg.APIKey)

	return &ElevenLabsClient{
		cfg:    cfg,
		client: client,
	}
}

// Close 释放底层连接
func (e *ElevenLabsClient) Close() {
	e.client.Close()
}

// Synthesize 将文案合成为语音并写入 outputPath
func (e *ElevenLabsClient) Synthesize(ctx context.Context, text, outputPath string) error {
	if e.cfg.APIKey == "" || e.cfg.VoiceID == "" {
		return fmt.Errorf("ElevenLabs API Key 或 Voice ID: %w", ErrNotConfigured)
	}

	payload := map[string]any{
		"text":     text,
		"model_id": e.cfg.ModelID,
		"voice_settings": map[string]any{
			"stability":         0.5,
			"similarity_boost":  0.75,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/text-to-speech/" + e.cfg.VoiceID)
	if err != nil {
		return Transient(elevenLabsProviderName, err)
	}
	if resp.StatusCode() != 200 {
		return Classify(elevenLabsProviderName, resp.StatusCode(), resp.String())
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outputPath, resp.Bytes(), 0644); err != nil {
		return fmt.Errorf("写入语音文件失败: %w", err)
	}
	return nil
}
