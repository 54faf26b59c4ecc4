package model

import "time"

// ContentVersion 文案版本快照，只追加不修改
type ContentVersion struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TaskID    string    `json:"task_id" gorm:"not null;uniqueIndex:idx_task_version"`
	Version   int       `json:"version" gorm:"not null;uniqueIndex:idx_task_version"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedBy string    `json:"created_by" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (ContentVersion) TableName() string {
	return "content_versions"
}
