package handler

import (
	"errors"
	"net/http"

	"content-forge/app/logger"
	"content-forge/app/provider"
	"content-forge/app/service"
	"content-forge/app/store"

	"github.com/gin-gonic/gin"
)

// MediaHandler 多媒体生成处理器
type MediaHandler struct {
	pipeline *service.MediaPipeline
	flow     *service.TaskFlowService
	queue    *service.MediaJobQueue
	logger   *logger.Logger
}

// NewMediaHandler 创建多媒体处理器
func NewMediaHandler(pipeline *service.MediaPipeline, flow *service.TaskFlowService, queue *service.MediaJobQueue, log *logger.Logger) *MediaHandler {
	return &MediaHandler{
		pipeline: pipeline,
		flow:     flow,
		queue:    queue,
		logger:   log,
	}
}

// GenerateVideoRequest 影片生成请求
type GenerateVideoRequest struct {
	ImagePath string `json:"image_path" binding:"required"`
}

func (h *MediaHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

func (h *MediaHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// handleMediaError 按错误分类映射 HTTP 状态码
// 调用方据此判断重试是否有意义：配额要等待，状态错误要修正请求
func (h *MediaHandler) handleMediaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		h.error(c, http.StatusNotFound, 404, "任务不存在")
	case errors.Is(err, store.ErrGenerationInProgress):
		h.error(c, http.StatusConflict, 409, err.Error())
	case service.IsInvalidState(err):
		h.error(c, http.StatusBadRequest, 400, err.Error())
	case errors.Is(err, provider.ErrNotConfigured):
		h.error(c, http.StatusInternalServerError, 500, err.Error())
	case provider.IsAuth(err):
		h.error(c, http.StatusBadGateway, 502, err.Error())
	case provider.IsQuota(err):
		h.error(c, http.StatusTooManyRequests, 429, err.Error())
	case service.IsTimeout(err):
		h.error(c, http.StatusGatewayTimeout, 504, err.Error())
	default:
		h.logger.Errorf("❌ 多媒体生成失败: %v", err)
		h.error(c, http.StatusInternalServerError, 500, err.Error())
	}
}

// GenerateVoice 语音生成
// 合成是同步快速的，在请求内执行完成
func (h *MediaHandler) GenerateVoice(c *gin.Context) {
	taskID := c.Param("id")

	record, err := h.pipeline.GenerateVoice(c.Request.Context(), taskID)
	if err != nil {
		h.handleMediaError(c, err)
		return
	}

	h.success(c, record, "语音生成完成")
}

// GenerateVideo 影片生成
// 只同步执行前置检查和记录创建，远程流水线交给后台队列，
// 立即返回 processing 状态的媒体记录，客户端轮询状态接口获知结果
func (h *MediaHandler) GenerateVideo(c *gin.Context) {
	taskID := c.Param("id")

	var req GenerateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	record, err := h.flow.BeginVideo(taskID)
	if err != nil {
		h.handleMediaError(c, err)
		return
	}

	if _, err := h.queue.Enqueue(record, req.ImagePath); err != nil {
		// 入队失败时不能留下悬空的 processing 记录
		if failErr := h.flow.FailVideo(taskID, record.ID); failErr != nil {
			h.logger.Errorf("回滚媒体记录失败: %v", failErr)
		}
		h.handleMediaError(c, err)
		return
	}

	h.success(c, record, "影片生成已开始，请轮询状态接口")
}

// GetMediaStatus 查询任务状态和全部媒体记录
func (h *MediaHandler) GetMediaStatus(c *gin.Context) {
	taskID := c.Param("id")

	status, records, err := h.flow.MediaStatus(taskID)
	if err != nil {
		h.handleMediaError(c, err)
		return
	}

	h.success(c, gin.H{
		"task_status":   status,
		"media_records": records,
	}, "ok")
}

// GetQueueStatus 查询后台队列状态
func (h *MediaHandler) GetQueueStatus(c *gin.Context) {
	status, err := h.queue.QueueStatus()
	if err != nil {
		h.error(c, http.StatusInternalServerError, 500, err.Error())
		return
	}
	h.success(c, status, "ok")
}
