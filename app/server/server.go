package server

import (
	"context"
	"net/http"

	"content-forge/app/config"
	"content-forge/app/database"
	"content-forge/app/handler"
	"content-forge/app/knowledge"
	"content-forge/app/logger"
	"content-forge/app/middleware"
	"content-forge/app/provider"
	"content-forge/app/service"
	"content-forge/app/store"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server
	queue  *service.MediaJobQueue
}

// New 创建一个新的 Server 实例，并完成全部服务装配
func New(cfg *config.Config, log *logger.Logger) *Server {
	router := gin.Default()

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config: cfg,
		Logger: log,
	}

	// 存储层和任务流程
	taskStore := store.NewGormStore(database.GetDB())
	flow := service.NewTaskFlowService(taskStore, log)

	// 知识库检索，带缓存
	var retriever knowledge.Retriever = knowledge.NewHTTPRetriever(cfg.Knowledge)
	if ttl := cfg.Knowledge.CacheTTL(); ttl > 0 {
		retriever = knowledge.NewCachedRetriever(retriever, ttl)
	}
	generator := service.NewContentGenerator(retriever, flow, log)

	// 上游供应商客户端
	voice := provider.NewElevenLabsClient(cfg.Voice)
	avatar := provider.NewHeyGenClient(cfg.Avatar)
	registry := provider.NewIdentityRegistry(avatar, cfg.Media.QuotaWait(), log)

	pipeline := service.NewMediaPipeline(flow, voice, avatar, registry, cfg.Media, log)

	// 影片生成走持久化后台队列，重启后可恢复中断的任务
	s.queue = service.NewMediaJobQueue(database.GetDB(), log, pipeline.ExecuteVideoJob)

	// 设置路由
	s.setupRoutes(flow, generator, pipeline)

	return s
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 启动影片生成队列
	s.queue.Start()

	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// 停止后台队列，等待执行中的任务收尾
	s.queue.Stop()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes(flow *service.TaskFlowService, generator *service.ContentGenerator, pipeline *service.MediaPipeline) {
	// 创建处理器实例
	authHandler := handler.NewAuthHandler(s.Config)
	contentHandler := handler.NewContentHandler(generator, flow, s.Logger)
	mediaHandler := handler.NewMediaHandler(pipeline, flow, s.queue, s.Logger)

	// API路由组
	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		// 用户相关
		protected.GET("/me", authHandler.Me)

		// 内容任务相关路由
		content := protected.Group("/staff/content")
		{
			content.POST("/generate", contentHandler.Generate)
			content.GET("/tasks", contentHandler.ListTasks)
			content.GET("/tasks/:id", contentHandler.GetTask)
			content.GET("/tasks/:id/versions", contentHandler.GetVersions)
			content.PUT("/tasks/:id/content", contentHandler.UpdateContent)
			content.POST("/tasks/:id/approve", contentHandler.Approve)
		}

		// 多媒体生成相关路由
		media := protected.Group("/staff/media")
		{
			media.POST("/tasks/:id/voice", mediaHandler.GenerateVoice)
			media.POST("/tasks/:id/video", mediaHandler.GenerateVideo)
			media.GET("/tasks/:id/status", mediaHandler.GetMediaStatus)
			media.GET("/queue/status", mediaHandler.GetQueueStatus)
		}
	}
}
