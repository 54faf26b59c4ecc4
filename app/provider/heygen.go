package provider

import (
	"context"
	"fmt"
	"time"

	"content-forge/app/config"

	"resty.dev/v3"
)

const heygenProviderName = "heygen"

// HeyGenClient HeyGen 数字人影片服务客户端
// 资产上传和业务 API 使用不同的域名
type HeyGenClient struct {
	cfg    config.AvatarConfig
	api    *resty.Client
	upload *resty.Client
}

// NewHeyGenClient 创建 HeyGen 客户端
func NewHeyGenClient(cfg config.AvatarConfig) *HeyGenClient {
	api := resty.New()
	api.SetBaseURL(cfg.BaseURL)
	api.SetHeader("X-Api-Key", cfg.APIKey)

	upload := resty.New()
	upload.SetBaseURL(cfg.UploadURL)
	upload.SetHeader("X-Api-Key", cfg.APIKey)

	return &HeyGenClient{
		cfg:    cfg,
		api:    api,
		upload: upload,
	}
}

// Close 释放底层连接
func (h *HeyGenClient) Close() {
	h.api.Close()
	h.upload.Close()
}

func (h *HeyGenClient) checkConfigured() error {
	if h.cfg.APIKey == "" {
		return fmt.Errorf("HeyGen API Key: %w", ErrNotConfigured)
	}
	return nil
}

type assetData struct {
	AssetID string `json:"asset_id"`
}

type assetResponse struct {
	Data assetData `json:"data"`
}

// UploadAsset 上传二进制资产（音频或图片）
func (h *HeyGenClient) UploadAsset(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := h.checkConfigured(); err != nil {
		return "", err
	}

	var result assetResponse
	resp, err := h.upload.R().
		SetContext(ctx).
		SetHeader("Content-Type", mimeType).
		SetBody(data).
		SetResult(&result).
		Post("/asset")
	if err != nil {
		return "", Transient(heygenProviderName, err)
	}
	if resp.StatusCode() != 200 {
		return "", Classify(heygenProviderName, resp.StatusCode(), resp.String())
	}

	if result.Data.AssetID == "" {
		return "", fmt.Errorf("上游响应缺少 asset_id: %s", resp.String())
	}
	return result.Data.AssetID, nil
}

type identityData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

type identityResponse struct {
	Data identityData `json:"data"`
}

type identityListResponse struct {
	Data struct {
		Avatars []identityData `json:"avatars"`
	} `json:"data"`
}

// CreateIdentity 注册数字人形象
func (h *HeyGenClient) CreateIdentity(ctx context.Context, imageAssetID, name string) (string, error) {
	if err := h.checkConfigured(); err != nil {
		return "", err
	}

	var result identityResponse
	resp, err := h.api.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"image_asset_id": imageAssetID,
			"name":           name,
		}).
		SetResult(&result).
		Post("/photo_avatar")
	if err != nil {
		return "", Transient(heygenProviderName, err)
	}
	if resp.StatusCode() != 200 {
		return "", Classify(heygenProviderName, resp.StatusCode(), resp.String())
	}

	if result.Data.ID == "" {
		return "", fmt.Errorf("上游响应缺少形象 ID: %s", resp.String())
	}
	return result.Data.ID, nil
}

// ListIdentities 列出已注册的形象
func (h *HeyGenClient) ListIdentities(ctx context.Context) ([]Identity, error) {
	if err := h.checkConfigured(); err != nil {
		return nil, err
	}

	var result identityListResponse
	resp, err := h.api.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/photo_avatar/list")
	if err != nil {
		return nil, Transient(heygenProviderName, err)
	}
	if resp.StatusCode() != 200 {
		return nil, Classify(heygenProviderName, resp.StatusCode(), resp.String())
	}

	identities := make([]Identity, 0, len(result.Data.Avatars))
	for _, a := range result.Data.Avatars {
		identities = append(identities, Identity{
			ID:        a.ID,
			Name:      a.Name,
			CreatedAt: time.Unix(a.CreatedAt, 0),
		})
	}
	return identities, nil
}

// DeleteIdentity 删除指定形象
func (h *HeyGenClient) DeleteIdentity(ctx context.Context, identityID string) error {
	if err := h.checkConfigured(); err != nil {
		return err
	}

	resp, err := h.api.R().
		SetContext(ctx).
		Delete("/photo_avatar/" + identityID)
	if err != nil {
		return Transient(heygenProviderName, err)
	}
	if resp.StatusCode() != 200 {
		return Classify(heygenProviderName, resp.StatusCode(), resp.String())
	}
	return nil
}

type videoData struct {
	VideoID  string `json:"video_id"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

type videoResponse struct {
	Data videoData `json:"data"`
}

// SubmitJob 创建数字人影片渲染任务
func (h *HeyGenClient) SubmitJob(ctx context.Context, voiceAssetID, identityID string) (string, error) {
	if err := h.checkConfigured(); err != nil {
		return "", err
	}

	payload := map[string]any{
		"video_inputs": []map[string]any{
			{
				"character": map[string]any{
					"type":            "photo_avatar",
					"photo_avatar_id": identityID,
				},
				"voice": map[string]any{
					"type":           "audio",
					"audio_asset_id": voiceAssetID,
				},
				"background": map[string]any{
					"type":  "color",
					"value": "#FFFFFF",
				},
			},
		},
		"dimension": map[string]any{
			"width":  h.cfg.Width,
			"height": h.cfg.Height,
		},
		"test": false,
	}

	var result videoResponse
	resp, err := h.api.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/video/generate")
	if err != nil {
		return "", Transient(heygenProviderName, err)
	}
	if resp.StatusCode() != 200 {
		return "", Classify(heygenProviderName, resp.StatusCode(), resp.String())
	}

	if result.Data.VideoID == "" {
		return "", fmt.Errorf("上游响应缺少 video_id: %s", resp.String())
	}
	return result.Data.VideoID, nil
}

// PollJob 查询远程渲染任务状态
func (h *HeyGenClient) PollJob(ctx context.Context, jobID string) (*JobStatus, error) {
	if err := h.checkConfigured(); err != nil {
		return nil, err
	}

	var result videoResponse
	resp, err := h.api.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/video/" + jobID)
	if err != nil {
		return nil, Transient(heygenProviderName, err)
	}
	if resp.StatusCode() != 200 {
		return nil, Classify(heygenProviderName, resp.StatusCode(), resp.String())
	}

	status := &JobStatus{}
	switch result.Data.Status {
	case "completed":
		status.State = JobCompleted
		status.ResultURL = result.Data.VideoURL
		if status.ResultURL == "" {
			return nil, fmt.Errorf("任务已完成但上游未返回下载地址: %s", resp.String())
		}
	case "failed":
		status.State = JobFailed
		// 上游给出的失败原因原样保留，便于排查
		status.FailReason = result.Data.Error
	case "processing", "pending", "waiting":
		status.State = JobProcessing
	default:
		status.State = JobQueued
	}
	return status, nil
}
