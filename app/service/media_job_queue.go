package service

import (
	"context"
	"sync"
	"time"

	"content-forge/app/logger"
	"content-forge/app/model"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// VideoJobCallback 影片任务的执行回调
type VideoJobCallback func(ctx context.Context, job *model.MediaJob) error

// MediaJobQueue 持久化的后台影片任务队列
// 影片生成需要 5-10 分钟，触发请求只做快速的本地部分，
// 剩余阶段由这里的工作协程独立执行；任务落库，
// 进程重启后执行中的任务会被重置为待处理重新拾起
type MediaJobQueue struct {
	db       *gorm.DB
	log      *logger.Logger
	callback VideoJobCallback

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	cron      *cron.Cron
	mu        sync.Mutex
	running   bool
	executing bool // 标记是否正在执行任务（同一时刻只执行一个）
}

// NewMediaJobQueue 创建后台任务队列
func NewMediaJobQueue(db *gorm.DB, log *logger.Logger, callback VideoJobCallback) *MediaJobQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &MediaJobQueue{
		db:       db,
		log:      log,
		callback: callback,
		ctx:      ctx,
		cancel:   cancel,
		cron:     cron.New(),
	}
}

// Enqueue 添加后台影片任务，立即返回
func (q *MediaJobQueue) Enqueue(record *model.MediaRecord, imagePath string) (*model.MediaJob, error) {
	job := &model.MediaJob{
		RecordID:  record.ID,
		TaskID:    record.TaskID,
		ImagePath: imagePath,
		Status:    model.JobStatusPending,
	}
	if err := q.db.Create(job).Error; err != nil {
		q.log.Errorf("添加影片任务失败: %v", err)
		return nil, err
	}
	q.log.Infof("影片任务已入队: JobID=%d, TaskID=%s", job.ID, job.TaskID)
	return job, nil
}

// Start 启动任务处理器和定时清理
func (q *MediaJobQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true

	// 启动时把上次进程退出时仍在执行的任务重置为待处理
	result := q.db.Model(&model.MediaJob{}).
		Where("status = ?", model.JobStatusProcessing).
		Update("status", model.JobStatusPending)
	if result.RowsAffected > 0 {
		q.log.Warnf("🔄 重置 %d 个中断的影片任务为待处理", result.RowsAffected)
	}

	q.wg.Add(1)
	go q.worker()

	// 每天凌晨 3 点清理旧的已结束任务
	q.cron.AddFunc("0 3 * * *", q.cleanupOldJobs)
	q.cron.Start()

	q.log.Info("影片任务队列已启动")
}

// Stop 停止任务处理器
func (q *MediaJobQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	q.cancel()
	q.cron.Stop()
	q.wg.Wait()
	q.log.Info("影片任务队列已停止")
}

// worker 任务处理器，空闲时每秒检查一次队列
func (q *MediaJobQueue) worker() {
	defer q.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.mu.Lock()
			busy := q.executing
			q.mu.Unlock()
			if !busy {
				q.processNextJob()
			}
		}
	}
}

// processNextJob 用事务取出最早的待处理任务并标记为执行中
func (q *MediaJobQueue) processNextJob() {
	var job model.MediaJob

	err := q.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ?", model.JobStatusPending).
			Order("created_at ASC").First(&job).Error; err != nil {
			return err // 没有待处理任务
		}

		now := time.Now()
		return tx.Model(&job).Updates(model.MediaJob{
			Status:    model.JobStatusProcessing,
			StartedAt: &now,
		}).Error
	})
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			q.log.Errorf("获取影片任务失败: %v", err)
		}
		return
	}

	q.mu.Lock()
	q.executing = true
	q.mu.Unlock()

	go q.executeJob(&job)
}

// executeJob 执行任务并持久化结果
// 任务不做自动重试，失败后需要调用方重新发起生成
func (q *MediaJobQueue) executeJob(job *model.MediaJob) {
	defer func() {
		q.mu.Lock()
		q.executing = false
		q.mu.Unlock()
	}()

	q.log.Infof("🔄 开始执行影片任务: JobID=%d, TaskID=%s", job.ID, job.TaskID)
	startTime := time.Now()

	err := q.callback(q.ctx, job)

	now := time.Now()
	if err != nil {
		q.db.Model(job).Updates(model.MediaJob{
			Status:      model.JobStatusFailed,
			CompletedAt: &now,
			ErrorMsg:    err.Error(),
		})
		q.log.Errorf("💀 影片任务失败: JobID=%d, TaskID=%s, 耗时: %v, 错误: %v",
			job.ID, job.TaskID, time.Since(startTime), err)
		return
	}

	q.db.Model(job).Updates(model.MediaJob{
		Status:      model.JobStatusCompleted,
		CompletedAt: &now,
	})
	q.log.Infof("✅ 影片任务完成: JobID=%d, TaskID=%s, 耗时: %v",
		job.ID, job.TaskID, time.Since(startTime))
}

// QueueStatus 统计各状态的任务数量
func (q *MediaJobQueue) QueueStatus() (map[string]int64, error) {
	status := make(map[string]int64)
	for _, s := range []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing, model.JobStatusCompleted, model.JobStatusFailed} {
		var count int64
		if err := q.db.Model(&model.MediaJob{}).Where("status = ?", s).Count(&count).Error; err != nil {
			return nil, err
		}
		status[string(s)] = count
	}
	return status, nil
}

// cleanupOldJobs 清理旧的已结束任务
func (q *MediaJobQueue) cleanupOldJobs() {
	// 删除7天前已完成的任务
	cutoff := time.Now().AddDate(0, 0, -7)
	result := q.db.Where("status = ? AND completed_at < ?", model.JobStatusCompleted, cutoff).Delete(&model.MediaJob{})
	if result.Error != nil {
		q.log.Errorf("清理已完成任务失败: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		q.log.Infof("清理了 %d 个已完成的影片任务（超过7天）", result.RowsAffected)
	}

	// 失败任务保留30天便于排查
	failedCutoff := time.Now().AddDate(0, 0, -30)
	result = q.db.Where("status = ? AND completed_at < ?", model.JobStatusFailed, failedCutoff).Delete(&model.MediaJob{})
	if result.Error != nil {
		q.log.Errorf("清理失败任务失败: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		q.log.Infof("清理了 %d 个失败的影片任务（超过30天）", result.RowsAffected)
	}
}
