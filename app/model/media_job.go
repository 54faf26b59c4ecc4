package model

import "time"

// JobStatus 后台任务状态
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// MediaJob 后台影片生成任务
// 持久化在数据库中，进程重启后未完成的任务会被重新拾起
type MediaJob struct {
	ID          uint      `gorm:"primaryKey"`
	RecordID    string    `gorm:"not null;index"` // 对应的 MediaRecord
	TaskID      string    `gorm:"not null;index"`
	ImagePath   string    `gorm:"not null"` // 肖像图片的本地路径
	Status      JobStatus `gorm:"default:'pending';index"`
	ErrorMsg    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// TableName 指定表名
func (MediaJob) TableName() string {
	return "media_jobs"
}
