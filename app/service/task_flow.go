package service

import (
	"strings"

	"content-forge/app/logger"
	"content-forge/app/model"
	"content-forge/app/store"

	"github.com/google/uuid"
)

// TaskFlowService 任务状态机
// 独占 ContentTask 的状态流转，每个生成阶段都在这里做前置检查：
// draft → reviewing → approved → generating_voice → generating_video → completed
// 任一 generating_* 状态都可能进入 failed，失败后重新发起会再次进入对应的 generating_* 状态
type TaskFlowService struct {
	store store.TaskStore
	log   *logger.Logger
}

// NewTaskFlowService 创建任务状态机
func NewTaskFlowService(s store.TaskStore, log *logger.Logger) *TaskFlowService {
	return &TaskFlowService{
		store: s,
		log:   log,
	}
}

// newID 生成带前缀的短 ID
func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateTask 建立新任务，初始状态为 draft，此时还没有任何文案版本
func (s *TaskFlowService) CreateTask(topic, style, length string) (*model.ContentTask, error) {
	task := &model.ContentTask{
		ID:     newID("task"),
		Topic:  topic,
		Style:  style,
		Length: length,
		Status: model.TaskStatusDraft,
	}
	if err := s.store.CreateTask(task); err != nil {
		return nil, err
	}
	s.log.Infof("✅ 建立任务: %s - %s", task.ID, topic)
	return task, nil
}

// GetTask 取得任务详情
func (s *TaskFlowService) GetTask(taskID string) (*model.ContentTask, error) {
	return s.store.GetTask(taskID)
}

// ListTasks 列出任务
func (s *TaskFlowService) ListTasks(limit int) ([]model.ContentTask, error) {
	return s.store.ListTasks(limit)
}

// Versions 取得任务的全部文案版本
func (s *TaskFlowService) Versions(taskID string) ([]model.ContentVersion, error) {
	if _, err := s.store.GetTask(taskID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(taskID)
}

// RecordContent 记录一个新的文案版本并覆盖任务的当前内容
// 版本号严格递增无空洞，任务完成后内容不再允许修改
func (s *TaskFlowService) RecordContent(taskID, content, editor string) (int, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return 0, err
	}
	if task.Status == model.TaskStatusCompleted {
		return 0, &InvalidStateError{Reason: "任务已完成，文案不可修改"}
	}

	latest, err := s.store.LatestVersionNumber(taskID)
	if err != nil {
		return 0, err
	}
	version := latest + 1

	if err := s.store.CreateVersion(&model.ContentVersion{
		ID:        newID("ver"),
		TaskID:    taskID,
		Version:   version,
		Content:   content,
		CreatedBy: editor,
	}); err != nil {
		return 0, err
	}

	if err := s.store.UpdateTask(taskID, map[string]any{"content": content}); err != nil {
		return 0, err
	}

	s.log.Infof("📝 更新文案: %s v%d (编辑者: %s)", taskID, version, editor)
	return version, nil
}

// RecordGeneratedContent 记录一版新生成的文案并将任务送入审核
func (s *TaskFlowService) RecordGeneratedContent(taskID, content string) (int, error) {
	version, err := s.RecordContent(taskID, content, "system")
	if err != nil {
		return 0, err
	}
	if err := s.store.UpdateTask(taskID, map[string]any{"status": model.TaskStatusReviewing}); err != nil {
		return 0, err
	}
	return version, nil
}

// Approve 审核通过，只允许从 reviewing 进入 approved
func (s *TaskFlowService) Approve(taskID string) error {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if task.Status != model.TaskStatusReviewing {
		return &InvalidStateError{Reason: "任务尚未进入审核阶段"}
	}

	if err := s.store.UpdateTask(taskID, map[string]any{"status": model.TaskStatusApproved}); err != nil {
		return err
	}
	s.log.Infof("✅ 任务审核通过: %s", taskID)
	return nil
}

// BeginVoice 开始语音生成阶段
// 只允许从 approved 进入，失败后的重新尝试也从这里进入
func (s *TaskFlowService) BeginVoice(taskID string) (*model.MediaRecord, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != model.TaskStatusApproved && task.Status != model.TaskStatusFailed {
		return nil, &InvalidStateError{Reason: "voice requires approval"}
	}
	if task.Content == nil || *task.Content == "" {
		return nil, &InvalidStateError{Reason: "任务没有文案内容"}
	}

	record := &model.MediaRecord{
		ID:        newID("media"),
		TaskID:    taskID,
		MediaType: model.MediaTypeVoice,
		Status:    model.MediaStatusProcessing,
	}
	if err := s.store.ReserveMediaRecord(record); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTask(taskID, map[string]any{"status": model.TaskStatusGeneratingVoice}); err != nil {
		return nil, err
	}
	s.log.Infof("🎤 建立语音媒体记录: %s (任务 %s)", record.ID, taskID)
	return record, nil
}

// CompleteVoice 语音生成成功，任务停留在 generating_voice 等待下一阶段
func (s *TaskFlowService) CompleteVoice(recordID, filePath string) error {
	return s.store.UpdateMediaRecord(recordID, map[string]any{
		"file_path": filePath,
		"status":    model.MediaStatusCompleted,
	})
}

// FailVoice 语音生成失败，媒体记录和任务都标记为失败
func (s *TaskFlowService) FailVoice(taskID, recordID string) error {
	if err := s.store.UpdateMediaRecord(recordID, map[string]any{
		"status": model.MediaStatusFailed,
	}); err != nil {
		return err
	}
	return s.store.UpdateTask(taskID, map[string]any{"status": model.TaskStatusFailed})
}

// BeginVideo 开始影片生成阶段
// 前置条件是存在一条已完成的语音记录，而不是依赖某个标志位
func (s *TaskFlowService) BeginVideo(taskID string) (*model.MediaRecord, error) {
	if _, err := s.store.GetTask(taskID); err != nil {
		return nil, err
	}

	voice, err := s.CompletedVoiceRecord(taskID)
	if err != nil {
		return nil, err
	}
	if voice == nil {
		return nil, &InvalidStateError{Reason: "voice asset missing"}
	}

	record := &model.MediaRecord{
		ID:        newID("media"),
		TaskID:    taskID,
		MediaType: model.MediaTypeAvatarVideo,
		Status:    model.MediaStatusProcessing,
	}
	if err := s.store.ReserveMediaRecord(record); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTask(taskID, map[string]any{"status": model.TaskStatusGeneratingVideo}); err != nil {
		return nil, err
	}
	s.log.Infof("🎬 建立影片媒体记录: %s (任务 %s)", record.ID, taskID)
	return record, nil
}

// CompleteVideo 影片生成成功，整个流程结束
func (s *TaskFlowService) CompleteVideo(taskID, recordID, filePath string) error {
	if err := s.store.UpdateMediaRecord(recordID, map[string]any{
		"file_path": filePath,
		"status":    model.MediaStatusCompleted,
	}); err != nil {
		return err
	}
	return s.store.UpdateTask(taskID, map[string]any{"status": model.TaskStatusCompleted})
}

// FailVideo 影片生成失败
func (s *TaskFlowService) FailVideo(taskID, recordID string) error {
	if err := s.store.UpdateMediaRecord(recordID, map[string]any{
		"status": model.MediaStatusFailed,
	}); err != nil {
		return err
	}
	return s.store.UpdateTask(taskID, map[string]any{"status": model.TaskStatusFailed})
}

// CompletedVoiceRecord 扫描任务的媒体记录，找出已完成的语音记录
// 同类型有多条时取最新的一条
func (s *TaskFlowService) CompletedVoiceRecord(taskID string) (*model.MediaRecord, error) {
	records, err := s.store.MediaRecords(taskID)
	if err != nil {
		return nil, err
	}
	var found *model.MediaRecord
	for i := range records {
		r := records[i]
		if r.MediaType == model.MediaTypeVoice && r.Status == model.MediaStatusCompleted {
			found = &r
		}
	}
	return found, nil
}

// MediaStatus 查询任务状态和全部媒体记录
func (s *TaskFlowService) MediaStatus(taskID string) (model.TaskStatus, []model.MediaRecord, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return "", nil, err
	}
	records, err := s.store.MediaRecords(taskID)
	if err != nil {
		return "", nil, err
	}
	return task.Status, records, nil
}
