package service_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"content-forge/app/config"
	"content-forge/app/logger"
	"content-forge/app/model"
	"content-forge/app/provider"
	"content-forge/app/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVoice 记录调用并按需写出占位文件
type fakeVoice struct {
	err   error
	calls int
}

func (f *fakeVoice) Synthesize(ctx context.Context, text, outputPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("audio"), 0644)
}

// fakeAvatar 按预置脚本响应的数字人服务替身
type fakeAvatar struct {
	uploadCalls int
	submitCalls int
	pollStates  []*provider.JobStatus
	pollCalls   int
}

func (f *fakeAvatar) UploadAsset(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.uploadCalls++
	return fmt.Sprintf("asset_%d", f.uploadCalls), nil
}

func (f *fakeAvatar) CreateIdentity(ctx context.Context, imageAssetID, name string) (string, error) {
	return "identity_1", nil
}

func (f *fakeAvatar) ListIdentities(ctx context.Context) ([]provider.Identity, error) {
	return nil, nil
}

func (f *fakeAvatar) DeleteIdentity(ctx context.Context, identityID string) error {
	return nil
}

func (f *fakeAvatar) SubmitJob(ctx context.Context, voiceAssetID, identityID string) (string, error) {
	f.submitCalls++
	return "job_1", nil
}

func (f *fakeAvatar) PollJob(ctx context.Context, jobID string) (*provider.JobStatus, error) {
	if f.pollCalls >= len(f.pollStates) {
		return &provider.JobStatus{State: provider.JobProcessing}, nil
	}
	status := f.pollStates[f.pollCalls]
	f.pollCalls++
	return status, nil
}

func newTestPipeline(t *testing.T, voice *fakeVoice, avatar *fakeAvatar) (*service.MediaPipeline, *service.TaskFlowService) {
	t.Helper()
	flow, _ := newTestFlow(t)

	cfg := config.MediaConfig{
		OutputDir:       t.TempDir(),
		PollIntervalSec: 0, // 测试不等待
		PollMaxAttempts: 3,
		MaxImageEdge:    2048,
	}
	log := logger.NewNop()
	registry := provider.NewIdentityRegistry(avatar, 0, log)
	return service.NewMediaPipeline(flow, voice, avatar, registry, cfg, log), flow
}

// writeTestPortrait 生成一张可解码的肖像图
func writeTestPortrait(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portrait.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	return path
}

func TestGenerateVoiceSuccess(t *testing.T) {
	t.Parallel()
	voice := &fakeVoice{}
	pipeline, flow := newTestPipeline(t, voice, &fakeAvatar{})
	task := approvedTask(t, flow)

	record, err := pipeline.GenerateVoice(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MediaStatusCompleted, record.Status)
	require.NotNil(t, record.FilePath)
	assert.FileExists(t, *record.FilePath)
	assert.Equal(t, 1, voice.calls)

	// 语音完成后任务停留在 generating_voice，等待影片阶段
	status, _, err := flow.MediaStatus(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusGeneratingVoice, status)
}

func TestGenerateVoiceFailureMarksTask(t *testing.T) {
	t.Parallel()
	voice := &fakeVoice{err: errors.New("上游合成失败")}
	pipeline, flow := newTestPipeline(t, voice, &fakeAvatar{})
	task := approvedTask(t, flow)

	_, err := pipeline.GenerateVoice(context.Background(), task.ID)
	require.Error(t, err)

	status, records, err := flow.MediaStatus(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, status)
	require.Len(t, records, 1)
	assert.Equal(t, model.MediaStatusFailed, records[0].Status)
}

// videoJob 准备好语音产物并建立影片任务
func videoJob(t *testing.T, pipeline *service.MediaPipeline, flow *service.TaskFlowService) *model.MediaJob {
	t.Helper()
	task := approvedTask(t, flow)

	_, err := pipeline.GenerateVoice(context.Background(), task.ID)
	require.NoError(t, err)

	record, err := flow.BeginVideo(task.ID)
	require.NoError(t, err)

	return &model.MediaJob{
		ID:        1,
		RecordID:  record.ID,
		TaskID:    task.ID,
		ImagePath: writeTestPortrait(t),
		Status:    model.JobStatusProcessing,
	}
}

func TestExecuteVideoJobSuccess(t *testing.T) {
	t.Parallel()

	// 渲染产物由本地测试服务器提供
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer server.Close()

	avatar := &fakeAvatar{pollStates: []*provider.JobStatus{
		{State: provider.JobQueued},
		{State: provider.JobProcessing},
		{State: provider.JobCompleted, ResultURL: server.URL + "/video.mp4"},
	}}
	pipeline, flow := newTestPipeline(t, &fakeVoice{}, avatar)
	job := videoJob(t, pipeline, flow)

	require.NoError(t, pipeline.ExecuteVideoJob(context.Background(), job))

	// 语音和图片各上传一次
	assert.Equal(t, 2, avatar.uploadCalls)
	assert.Equal(t, 1, avatar.submitCalls)
	assert.Equal(t, 3, avatar.pollCalls)

	status, records, err := flow.MediaStatus(job.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, status)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, model.MediaStatusCompleted, r.Status)
	}

	data, err := os.ReadFile(pipeline.VideoPath(job.TaskID))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestExecuteVideoJobRemoteFailure(t *testing.T) {
	t.Parallel()

	avatar := &fakeAvatar{pollStates: []*provider.JobStatus{
		{State: provider.JobProcessing},
		{State: provider.JobFailed, FailReason: "render engine crashed"},
	}}
	pipeline, flow := newTestPipeline(t, &fakeVoice{}, avatar)
	job := videoJob(t, pipeline, flow)

	err := pipeline.ExecuteVideoJob(context.Background(), job)
	require.Error(t, err)
	// 上游给出的失败原因原样保留
	assert.Contains(t, err.Error(), "render engine crashed")

	status, _, err := flow.MediaStatus(job.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, status)
}

func TestExecuteVideoJobPollTimeout(t *testing.T) {
	t.Parallel()

	// 永远停留在 processing，轮询达到上限后放弃
	avatar := &fakeAvatar{}
	pipeline, flow := newTestPipeline(t, &fakeVoice{}, avatar)
	job := videoJob(t, pipeline, flow)

	err := pipeline.ExecuteVideoJob(context.Background(), job)
	require.Error(t, err)
	assert.True(t, service.IsTimeout(err))

	var te *service.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.Attempts)

	status, _, err := flow.MediaStatus(job.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, status)
}
