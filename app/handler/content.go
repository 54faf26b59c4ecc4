package handler

import (
	"errors"
	"net/http"
	"strconv"

	"content-forge/app/logger"
	"content-forge/app/service"
	"content-forge/app/store"

	"github.com/gin-gonic/gin"
)

// ContentHandler 文案相关处理器
type ContentHandler struct {
	generator *service.ContentGenerator
	flow      *service.TaskFlowService
	logger    *logger.Logger
}

// NewContentHandler 创建文案处理器
func NewContentHandler(generator *service.ContentGenerator, flow *service.TaskFlowService, log *logger.Logger) *ContentHandler {
	return &ContentHandler{
		generator: generator,
		flow:      flow,
		logger:    log,
	}
}

// GenerateRequest 文案生成请求
type GenerateRequest struct {
	Topic  string `json:"topic" binding:"required"`
	Style  string `json:"style" binding:"required"`
	Length string `json:"length" binding:"required"`
}

// UpdateContentRequest 文案更新请求
type UpdateContentRequest struct {
	Content string `json:"content" binding:"required"`
	Editor  string `json:"editor"`
}

func (h *ContentHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

func (h *ContentHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// handleFlowError 将服务层错误映射为 HTTP 响应
func (h *ContentHandler) handleFlowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		h.error(c, http.StatusNotFound, 404, "任务不存在")
	case service.IsInvalidState(err):
		h.error(c, http.StatusBadRequest, 400, err.Error())
	default:
		h.logger.Errorf("❌ 处理请求失败: %v", err)
		h.error(c, http.StatusInternalServerError, 500, err.Error())
	}
}

// Generate 生成文案
// 建立任务 → 检索知识库 → 生成草稿 → 进入审核
func (h *ContentHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	h.logger.Infof("📝 收到文案生成请求: %s", req.Topic)

	task, content, err := h.generator.Generate(c.Request.Context(), req.Topic, req.Style, req.Length)
	if err != nil {
		h.handleFlowError(c, err)
		return
	}

	h.success(c, gin.H{
		"task_id": task.ID,
		"content": content,
	}, "文案生成完成，请审核")
}

// ListTasks 取得任务列表
func (h *ContentHandler) ListTasks(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	tasks, err := h.flow.ListTasks(limit)
	if err != nil {
		h.handleFlowError(c, err)
		return
	}

	h.success(c, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	}, "ok")
}

// GetTask 取得单一任务详情
func (h *ContentHandler) GetTask(c *gin.Context) {
	task, err := h.flow.GetTask(c.Param("id"))
	if err != nil {
		h.handleFlowError(c, err)
		return
	}
	h.success(c, task, "ok")
}

// GetVersions 取得任务的文案版本历史
func (h *ContentHandler) GetVersions(c *gin.Context) {
	versions, err := h.flow.Versions(c.Param("id"))
	if err != nil {
		h.handleFlowError(c, err)
		return
	}
	h.success(c, gin.H{
		"versions": versions,
		"total":    len(versions),
	}, "ok")
}

// UpdateContent 人工修改文案，记录为新版本
func (h *ContentHandler) UpdateContent(c *gin.Context) {
	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	editor := req.Editor
	if editor == "" {
		if username, exists := c.Get("username"); exists {
			editor = username.(string)
		} else {
			editor = "admin"
		}
	}

	version, err := h.flow.RecordContent(c.Param("id"), req.Content, editor)
	if err != nil {
		h.handleFlowError(c, err)
		return
	}

	h.success(c, gin.H{"version": version}, "文案已更新")
}

// Approve 审核通过，任务可进入多媒体生成阶段
func (h *ContentHandler) Approve(c *gin.Context) {
	if err := h.flow.Approve(c.Param("id")); err != nil {
		h.handleFlowError(c, err)
		return
	}
	h.success(c, nil, "审核通过，可进行多媒体生成")
}
