package store

import (
	"errors"
	"fmt"

	"content-forge/app/model"

	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("任务不存在")
	// ErrGenerationInProgress 同一任务同一类型已有生成中的记录
	ErrGenerationInProgress = errors.New("generation already in progress")
)

// TaskStore 任务持久化仓库
// 编排器消费的唯一持久化接口，所有共享状态都经由这里
type TaskStore interface {
	CreateTask(task *model.ContentTask) error
	GetTask(id string) (*model.ContentTask, error)
	ListTasks(limit int) ([]model.ContentTask, error)
	UpdateTask(id string, updates map[string]any) error

	CreateVersion(version *model.ContentVersion) error
	LatestVersionNumber(taskID string) (int, error)
	ListVersions(taskID string) ([]model.ContentVersion, error)

	// ReserveMediaRecord 原子地检查并插入 processing 记录
	// 同一任务同一类型已有 processing 记录时返回 ErrGenerationInProgress
	ReserveMediaRecord(record *model.MediaRecord) error
	UpdateMediaRecord(id string, updates map[string]any) error
	MediaRecords(taskID string) ([]model.MediaRecord, error)
}

// GormStore 基于 gorm 的 TaskStore 实现
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 gorm 仓库
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateTask(task *model.ContentTask) error {
	if err := s.db.Create(task).Error; err != nil {
		return fmt.Errorf("创建任务失败: %w", err)
	}
	return nil
}

func (s *GormStore) GetTask(id string) (*model.ContentTask, error) {
	var task model.ContentTask
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	return &task, nil
}

func (s *GormStore) ListTasks(limit int) ([]model.ContentTask, error) {
	var tasks []model.ContentTask
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("查询任务列表失败: %w", err)
	}
	return tasks, nil
}

func (s *GormStore) UpdateTask(id string, updates map[string]any) error {
	result := s.db.Model(&model.ContentTask{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新任务失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *GormStore) CreateVersion(version *model.ContentVersion) error {
	if err := s.db.Create(version).Error; err != nil {
		return fmt.Errorf("创建文案版本失败: %w", err)
	}
	return nil
}

func (s *GormStore) LatestVersionNumber(taskID string) (int, error) {
	var latest *int
	err := s.db.Model(&model.ContentVersion{}).
		Where("task_id = ?", taskID).
		Select("MAX(version)").Scan(&latest).Error
	if err != nil {
		return 0, fmt.Errorf("查询最新版本号失败: %w", err)
	}
	if latest == nil {
		return 0, nil
	}
	return *latest, nil
}

func (s *GormStore) ListVersions(taskID string) ([]model.ContentVersion, error) {
	var versions []model.ContentVersion
	if err := s.db.Where("task_id = ?", taskID).Order("version DESC").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("查询文案版本失败: %w", err)
	}
	return versions, nil
}

// ReserveMediaRecord 在事务内检查并插入，保证同一任务同一类型的单飞预约
func (s *GormStore) ReserveMediaRecord(record *model.MediaRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.MediaRecord{}).
			Where("task_id = ? AND media_type = ? AND status = ?",
				record.TaskID, record.MediaType, model.MediaStatusProcessing).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("检查生成中记录失败: %w", err)
		}
		if count > 0 {
			return ErrGenerationInProgress
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("创建媒体记录失败: %w", err)
		}
		return nil
	})
}

func (s *GormStore) UpdateMediaRecord(id string, updates map[string]any) error {
	result := s.db.Model(&model.MediaRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新媒体记录失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("媒体记录不存在: %s", id)
	}
	return nil
}

func (s *GormStore) MediaRecords(taskID string) ([]model.MediaRecord, error) {
	var records []model.MediaRecord
	if err := s.db.Where("task_id = ?", taskID).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询媒体记录失败: %w", err)
	}
	return records, nil
}
