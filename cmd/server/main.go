package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nexchat/config"
	"nexchat/internal/handler"
	"nexchat/internal/model"
	"nexchat/internal/repository"
	"nexchat/internal/service"
	dbPkg "nexchat/pkg/db"
	"nexchat/pkg/jwt"
	"nexchat/pkg/logger"
	redisPkg "nexchat/pkg/redis"
	"nexchat/pkg/response"
	"nexchat/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== NexChat启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	gormDB, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Membership{},
		&model.Message{},
		&model.Block{},
		&model.Reaction{},
		&model.PinnedMessage{},
		&model.Setting{},
	); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 3.2 初始化Redis连接（在线状态和未读计数依赖）
	if err := redisPkg.InitRedis(cfg.Redis); err != nil {
		log.Fatal("Redis连接失败", zap.Error(err))
	}
	defer func() {
		if err := redisPkg.Close(); err != nil {
			log.Error("关闭Redis连接失败", zap.Error(err))
		}
	}()
	log.Info("Redis连接成功")

	// 3.3 初始化业务服务
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	userRepo := repository.NewUserRepository(gormDB)
	convRepo := repository.NewConversationRepository(gormDB)
	msgRepo := repository.NewMessageRepository(gormDB)
	blockRepo := repository.NewBlockRepository(gormDB)
	settingRepo := repository.NewSettingRepository(gormDB)

	hub := websocket.NewHub()
	// 活动状态回退后通知房间内其他成员
	tracker := websocket.NewTracker(cfg.WebSocket.TypingRevert, cfg.WebSocket.MediaRevert,
		func(userID, conversationID uint) {
			hub.Broadcast(conversationID, websocket.Event(websocket.EventUserBackOnline, map[string]interface{}{
				"user_id":         userID,
				"conversation_id": conversationID,
			}))
		})

	// 3.4 定期清理过期的在线状态记录（TTL已失效但仍留在在线集合中的用户）
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := redisPkg.CleanExpiredPresence(); err != nil {
					log.Warn("清理过期在线状态失败", zap.Error(err))
				}
			case <-sweepDone:
				return
			}
		}
	}()
	defer close(sweepDone)

	userSvc := service.NewUserService(userRepo, jwtSvc)
	convSvc := service.NewConversationService(convRepo, userRepo, msgRepo, hub)
	msgSvc := service.NewMessageService(msgRepo, convRepo, userRepo, blockRepo, convSvc, hub)
	blockSvc := service.NewBlockService(blockRepo, convRepo, userRepo, msgRepo, hub)

	userHandler := handler.NewUserHandler(userSvc)
	convHandler := handler.NewConversationHandler(convSvc)
	msgHandler := handler.NewMessageHandler(msgSvc)
	uploadHandler := handler.NewUploadHandler(msgSvc, cfg.Upload)
	blockHandler := handler.NewBlockHandler(blockSvc)
	adminHandler := handler.NewAdminHandler(userRepo, convRepo, msgRepo, settingRepo, hub)
	wsHandler := websocket.NewHandler(hub, tracker, jwtSvc, convSvc, userRepo, cfg.WebSocket)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()
	router.Use(logger.LoggerMiddleware())
	router.Use(logger.ErrorLoggerMiddleware())

	// 6. 基础路由
	setupBasicRoutes(router)

	// 6.1 业务路由
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口（无需认证）
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			authUsers := users.Group("")
			authUsers.Use(jwtSvc.AuthMiddleware())
			{
				authUsers.GET("/profile", userHandler.GetProfile)
				authUsers.PUT("/profile", userHandler.UpdateProfile)
				authUsers.DELETE("/profile", userHandler.DeleteAccount)
				authUsers.POST("/logout", userHandler.Logout)
				authUsers.GET("/online", userHandler.GetOnlineUsers)
				authUsers.GET("/:user_id/online", userHandler.CheckUserOnline)
			}
		}

		// 私聊会话
		chats := v1.Group("/chats")
		chats.Use(jwtSvc.AuthMiddleware())
		{
			chats.GET("", convHandler.ListDirect)
			chats.POST("", convHandler.NewDirect)
			chats.POST("/with/:user_id", convHandler.GetOrCreateDirect)
			chats.DELETE("/:id", convHandler.DeleteDirect)
		}

		// 消息（三种会话类型共用）
		conversations := v1.Group("/conversations")
		conversations.Use(jwtSvc.AuthMiddleware())
		{
			conversations.GET("/:id/messages", msgHandler.List)
			conversations.POST("/:id/messages", msgHandler.Send)
			conversations.POST("/:id/attachments", uploadHandler.Upload)
			conversations.GET("/:id/pinned", msgHandler.ListPinned)
		}

		messages := v1.Group("/messages")
		messages.Use(jwtSvc.AuthMiddleware())
		{
			messages.PUT("/:message_id", msgHandler.Edit)
			messages.DELETE("/:message_id", msgHandler.Delete)
			messages.POST("/:message_id/pin", msgHandler.TogglePin)
			messages.POST("/:message_id/reactions", msgHandler.ToggleReaction)
		}

		// 广播频道与群组频道共用一套handler，由中间件注入类型
		registerChannelRoutes(v1.Group("/nexus"), model.KindNexus, jwtSvc, convHandler)
		registerChannelRoutes(v1.Group("/nexpheres"), model.KindNexphere, jwtSvc, convHandler)

		// 拉黑
		blocks := v1.Group("/blocks")
		blocks.Use(jwtSvc.AuthMiddleware())
		{
			blocks.GET("", blockHandler.List)
			blocks.POST("/:user_id", blockHandler.Block)
			blocks.DELETE("/:user_id", blockHandler.Unblock)
			blocks.GET("/:user_id", blockHandler.Status)
		}
	}

	// 6.2 管理面板路由
	admin := router.Group("/admin")
	admin.Use(handler.AdminAuthMiddleware(cfg.Admin.Secret))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/users", adminHandler.ListUsers)
		admin.DELETE("/users/:user_id", adminHandler.DeleteUser)
		admin.DELETE("/messages/:message_id", adminHandler.DeleteMessage)
		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.SetSetting)
	}

	// WebSocket路由
	router.GET("/ws", wsHandler.Serve)

	// 附件静态目录
	router.Static("/uploads", cfg.Upload.Dir)

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// registerChannelRoutes 同一套频道接口分别挂到 /nexus 和 /nexpheres
func registerChannelRoutes(group *gin.RouterGroup, kind string, jwtSvc *jwt.JWTService, h *handler.ConversationHandler) {
	group.Use(jwtSvc.AuthMiddleware())
	group.Use(handler.ChannelKindMiddleware(kind))
	{
		group.GET("", h.ListChannels)
		group.POST("", h.CreateChannel)
		group.GET("/joined", h.ListJoined)
		group.GET("/by-handle/:handle", h.GetChannelByHandle)
		group.GET("/:id", h.GetChannel)
		group.PUT("/:id", h.UpdateChannel)
		group.DELETE("/:id", h.DeleteChannel)
		group.POST("/:id/join", h.Join)
		group.POST("/:id/leave", h.Leave)
		group.GET("/:id/members", h.Members)
		group.DELETE("/:id/members/:user_id", h.RemoveMember)
	}
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		} else if err := redisPkg.HealthCheck(); err != nil {
			status = "redis-down"
		}
		response.Success(c, gin.H{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "欢迎使用NexChat",
			"version": "1.0.0",
		})
	})
}
