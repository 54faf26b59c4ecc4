package provider

import (
	"context"
	"time"
)

// JobState 远程渲染任务状态
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// JobStatus 一次轮询得到的远程任务状态
type JobStatus struct {
	State      JobState
	ResultURL  string // 完成时的产物下载地址
	FailReason string // 失败时上游提供的原因，原样保留
}

// Identity 已注册的数字人形象
type Identity struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// VoiceSynthesizer 同步语音合成，生成结果直接写入本地文件
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

// AvatarClient 数字人影片服务的统一适配接口
// 各上游服务商实现同一组操作，便于替换和测试替身
type AvatarClient interface {
	// UploadAsset 上传二进制资产，返回上游的资产句柄
	UploadAsset(ctx context.Context, data []byte, mimeType string) (string, error)
	// CreateIdentity 用已上传的图片注册数字人形象，不处理配额
	CreateIdentity(ctx context.Context, imageAssetID, name string) (string, error)
	// ListIdentities 列出当前已注册的形象
	ListIdentities(ctx context.Context) ([]Identity, error)
	// DeleteIdentity 删除指定形象
	DeleteIdentity(ctx context.Context, identityID string) error
	// SubmitJob 用语音资产和形象创建远程渲染任务
	SubmitJob(ctx context.Context, voiceAssetID, identityID string) (string, error)
	// PollJob 查询远程任务状态
	PollJob(ctx context.Context, jobID string) (*JobStatus, error)
}
