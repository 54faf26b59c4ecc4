package model

import "time"

// MediaType 多媒体类型
type MediaType string

const (
	MediaTypeVoice       MediaType = "voice"
	MediaTypeAvatarVideo MediaType = "avatar_video"
)

// MediaStatus 多媒体记录状态
type MediaStatus string

const (
	MediaStatusProcessing MediaStatus = "processing"
	MediaStatusCompleted  MediaStatus = "completed"
	MediaStatusFailed     MediaStatus = "failed"
)

// MediaRecord 一次多媒体生成尝试的记录
// 同一个任务的同一种类型，任何时刻最多只允许一条 processing 记录
type MediaRecord struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	TaskID    string      `json:"task_id" gorm:"not null;index"`
	MediaType MediaType   `json:"media_type" gorm:"not null"`
	FilePath  *string     `json:"file_path"`
	Status    MediaStatus `json:"status" gorm:"not null;index"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName 指定表名
func (MediaRecord) TableName() string {
	return "media_records"
}
