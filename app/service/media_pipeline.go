package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"content-forge/app/config"
	"content-forge/app/logger"
	"content-forge/app/model"
	"content-forge/app/provider"
	"content-forge/app/utils/downloader"
	"content-forge/app/utils/imagehelper"

	"golang.org/x/sync/errgroup"
)

// MediaPipeline 媒体生成编排器
// 把上传、形象注册、任务提交、轮询和下载组合成
// "生成语音"和"生成数字人影片"两个操作，并同步维护任务状态
type MediaPipeline struct {
	flow     *TaskFlowService
	voice    provider.VoiceSynthesizer
	avatar   provider.AvatarClient
	registry *provider.IdentityRegistry
	cfg      config.MediaConfig
	log      *logger.Logger
}

// NewMediaPipeline 创建媒体生成编排器
func NewMediaPipeline(
	flow *TaskFlowService,
	voice provider.VoiceSynthesizer,
	avatar provider.AvatarClient,
	registry *provider.IdentityRegistry,
	cfg config.MediaConfig,
	log *logger.Logger,
) *MediaPipeline {
	return &MediaPipeline{
		flow:     flow,
		voice:    voice,
		avatar:   avatar,
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

// VoicePath 语音文件的确定性本地路径
func (p *MediaPipeline) VoicePath(taskID string) string {
	return filepath.Join(p.cfg.OutputDir, "voices", taskID+".mp3")
}

// VideoPath 影片文件的确定性本地路径
func (p *MediaPipeline) VideoPath(taskID string) string {
	return filepath.Join(p.cfg.OutputDir, "videos", taskID+".mp4")
}

// GenerateVoice 语音生成
// 合成是同步快速的，在请求内直接完成，不走后台队列
func (p *MediaPipeline) GenerateVoice(ctx context.Context, taskID string) (*model.MediaRecord, error) {
	task, err := p.flow.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	record, err := p.flow.BeginVoice(taskID)
	if err != nil {
		return nil, err
	}

	outputPath := p.VoicePath(taskID)
	if err := p.voice.Synthesize(ctx, *task.Content, outputPath); err != nil {
		p.log.Errorf("❌ 语音生成失败: %s, 错误: %v", taskID, err)
		if failErr := p.flow.FailVoice(taskID, record.ID); failErr != nil {
			p.log.Errorf("标记语音失败状态出错: %v", failErr)
		}
		return nil, err
	}

	if err := p.flow.CompleteVoice(record.ID, outputPath); err != nil {
		return nil, err
	}
	p.log.Infof("✅ 语音生成成功: %s -> %s", taskID, outputPath)

	record.Status = model.MediaStatusCompleted
	record.FilePath = &outputPath
	return record, nil
}

// ExecuteVideoJob 执行一个后台影片生成任务
// 由后台队列调用，任一步骤失败都会把媒体记录和任务标记为失败
func (p *MediaPipeline) ExecuteVideoJob(ctx context.Context, job *model.MediaJob) error {
	if err := p.runVideoStages(ctx, job); err != nil {
		p.log.Errorf("❌ 影片生成失败: 任务 %s, 错误: %v", job.TaskID, err)
		if failErr := p.flow.FailVideo(job.TaskID, job.RecordID); failErr != nil {
			p.log.Errorf("标记影片失败状态出错: %v", failErr)
		}
		return err
	}
	return nil
}

// runVideoStages 上传 → 注册形象 → 提交任务 → 轮询 → 下载
func (p *MediaPipeline) runVideoStages(ctx context.Context, job *model.MediaJob) error {
	taskID := job.TaskID

	// 前置检查在入队前已做过，这里重新定位语音产物
	voiceRecord, err := p.flow.CompletedVoiceRecord(taskID)
	if err != nil {
		return err
	}
	if voiceRecord == nil || voiceRecord.FilePath == nil {
		return &InvalidStateError{Reason: "voice asset missing"}
	}

	voiceData, err := os.ReadFile(*voiceRecord.FilePath)
	if err != nil {
		return fmt.Errorf("读取语音文件失败: %w", err)
	}

	imageData, imageMime, err := imagehelper.LoadPortrait(job.ImagePath, p.cfg.MaxImageEdge)
	if err != nil {
		return err
	}

	// 语音和图片的上传互不依赖，并行执行
	var voiceAssetID, imageAssetID string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var uploadErr error
		voiceAssetID, uploadErr = p.avatar.UploadAsset(gctx, voiceData, "audio/mpeg")
		return uploadErr
	})
	g.Go(func() error {
		var uploadErr error
		imageAssetID, uploadErr = p.avatar.UploadAsset(gctx, imageData, imageMime)
		return uploadErr
	})
	if err := g.Wait(); err != nil {
		return err
	}
	p.log.Infof("📤 资产上传完成: 任务 %s (语音 %s, 图片 %s)", taskID, voiceAssetID, imageAssetID)

	identityID, err := p.registry.Register(ctx, imageAssetID, taskID)
	if err != nil {
		return err
	}

	jobID, err := p.avatar.SubmitJob(ctx, voiceAssetID, identityID)
	if err != nil {
		return err
	}
	p.log.Infof("🎬 远程渲染任务已创建: %s (任务 %s)", jobID, taskID)

	resultURL, err := p.pollUntilDone(ctx, jobID)
	if err != nil {
		return err
	}

	outputPath := p.VideoPath(taskID)
	if err := downloader.DownloadToFile(ctx, resultURL, outputPath, nil); err != nil {
		return err
	}
	p.log.Infof("📥 影片下载完成: %s", outputPath)

	if err := p.flow.CompleteVideo(taskID, job.RecordID, outputPath); err != nil {
		return err
	}
	p.log.Infof("✅ 影片生成完成: 任务 %s", taskID)
	return nil
}

// pollUntilDone 固定间隔轮询，次数有硬上限
// 超时只放弃本地跟踪，远程任务不会被取消
func (p *MediaPipeline) pollUntilDone(ctx context.Context, jobID string) (string, error) {
	maxAttempts := p.cfg.PollMaxAttempts
	interval := p.cfg.PollInterval()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := p.avatar.PollJob(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch status.State {
		case provider.JobCompleted:
			return status.ResultURL, nil
		case provider.JobFailed:
			// 上游给出的失败原因原样保留
			return "", fmt.Errorf("远程渲染任务失败: %s", status.FailReason)
		}

		if attempt < maxAttempts {
			p.log.Debugf("⏳ 影片生成中... (%s, 第 %d/%d 次轮询)", status.State, attempt, maxAttempts)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(interval):
			}
		}
	}

	return "", &TimeoutError{JobID: jobID, Attempts: maxAttempts}
}
