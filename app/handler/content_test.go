package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"content-forge/app/handler"
	"content-forge/app/knowledge"
	"content-forge/app/logger"
	"content-forge/app/model"
	"content-forge/app/service"
	"content-forge/app/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stubRetriever struct{}

func (stubRetriever) RetrieveContext(ctx context.Context, topic string) ([]knowledge.Snippet, error) {
	return []knowledge.Snippet{{Content: "参考资料: " + topic}}, nil
}

func newContentRouter(t *testing.T) (*gin.Engine, *service.TaskFlowService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ContentTask{}, &model.ContentVersion{}, &model.MediaRecord{}))

	log := logger.NewNop()
	flow := service.NewTaskFlowService(store.NewGormStore(db), log)
	generator := service.NewContentGenerator(stubRetriever{}, flow, log)
	h := handler.NewContentHandler(generator, flow, log)

	router := gin.New()
	router.POST("/generate", h.Generate)
	router.GET("/tasks", h.ListTasks)
	router.GET("/tasks/:id", h.GetTask)
	router.GET("/tasks/:id/versions", h.GetVersions)
	router.PUT("/tasks/:id/content", h.UpdateContent)
	router.POST("/tasks/:id/approve", h.Approve)
	return router, flow
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) handler.ApiResponse {
	t.Helper()
	var resp handler.ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGenerateEndpoint(t *testing.T) {
	t.Parallel()
	router, flow := newContentRouter(t)

	w := doJSON(t, router, http.MethodPost, "/generate", gin.H{
		"topic":  "公园改造",
		"style":  "speech",
		"length": "short",
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	taskID := data["task_id"].(string)
	assert.Contains(t, data["content"].(string), "公园改造")

	task, err := flow.GetTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusReviewing, task.Status)
}

func TestGenerateEndpointValidation(t *testing.T) {
	t.Parallel()
	router, _ := newContentRouter(t)

	// 缺少必填字段
	w := doJSON(t, router, http.MethodPost, "/generate", gin.H{"topic": "公园改造"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTaskNotFoundEndpoint(t *testing.T) {
	t.Parallel()
	router, _ := newContentRouter(t)

	w := doJSON(t, router, http.MethodGet, "/tasks/task_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAndApproveFlow(t *testing.T) {
	t.Parallel()
	router, flow := newContentRouter(t)

	w := doJSON(t, router, http.MethodPost, "/generate", gin.H{
		"topic":  "垃圾分类",
		"style":  "press",
		"length": "short",
	})
	require.Equal(t, http.StatusOK, w.Code)
	taskID := decodeResponse(t, w).Data.(map[string]any)["task_id"].(string)

	// 人工修订为第二版
	w = doJSON(t, router, http.MethodPut, "/tasks/"+taskID+"/content", gin.H{
		"content": "人工修订后的文案",
		"editor":  "staff01",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeResponse(t, w).Data.(map[string]any)["version"])

	w = doJSON(t, router, http.MethodPost, "/tasks/"+taskID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	task, err := flow.GetTask(taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusApproved, task.Status)

	// 版本历史完整保留
	w = doJSON(t, router, http.MethodGet, "/tasks/"+taskID+"/versions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	versions := decodeResponse(t, w).Data.(map[string]any)["versions"].([]any)
	assert.Len(t, versions, 2)
}

func TestApproveInvalidStateEndpoint(t *testing.T) {
	t.Parallel()
	router, flow := newContentRouter(t)

	task, err := flow.CreateTask("河川整治", "press", "short")
	require.NoError(t, err)

	// draft 状态直接审核被拒绝
	w := doJSON(t, router, http.MethodPost, "/tasks/"+task.ID+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
