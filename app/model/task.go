package model

import (
	"time"
)

// TaskStatus 文案任务状态
type TaskStatus string

const (
	TaskStatusDraft           TaskStatus = "draft"            // 草稿
	TaskStatusReviewing       TaskStatus = "reviewing"        // 审核中
	TaskStatusApproved        TaskStatus = "approved"         // 已审核
	TaskStatusGeneratingVoice TaskStatus = "generating_voice" // 生成语音中
	TaskStatusGeneratingVideo TaskStatus = "generating_video" // 生成影片中
	TaskStatusCompleted       TaskStatus = "completed"        // 完成
	TaskStatusFailed          TaskStatus = "failed"           // 失败
)

// ContentStyle 文案风格
type ContentStyle string

const (
	StylePress     ContentStyle = "press"     // 新闻稿
	StyleSpeech    ContentStyle = "speech"    // 演讲稿
	StyleFacebook  ContentStyle = "facebook"  // Facebook 贴文
	StyleInstagram ContentStyle = "instagram" // Instagram 贴文
	StylePoster    ContentStyle = "poster"    // 宣传海报文案
)

// ContentLength 文案长度
type ContentLength string

const (
	LengthShort  ContentLength = "short"  // 50-100字
	LengthMedium ContentLength = "medium" // 150-300字
	LengthLong   ContentLength = "long"   // 400-600字
)

// ContentTask 文案任务模型
type ContentTask struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Topic     string     `json:"topic" gorm:"not null"`
	Style     string     `json:"style" gorm:"not null"`
	Length    string     `json:"length" gorm:"not null"`
	Status    TaskStatus `json:"status" gorm:"not null;index"`
	Content   *string    `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ContentTask) TableName() string {
	return "content_tasks"
}
