package router

import (
	"log"
	"time"

	"chatline/config"
	"chatline/internal/handler"
	"chatline/internal/middleware"
	"chatline/internal/realtime"
	"chatline/internal/repository"
	"chatline/internal/scheduler"
	"chatline/internal/service"
	"chatline/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps exposes the long-lived pieces the server manages beyond HTTP routing.
type Deps struct {
	Calls     *service.CallService
	Statuses  *service.StatusService
	Hub       *realtime.Hub
	Scheduler *scheduler.Scheduler
}

func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client) (*gin.Engine, *Deps) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)
	chatRepo := repository.NewChatRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	callRepo := repository.NewCallRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	hub := realtime.NewHub()
	tracker := realtime.NewPresenceTracker(hub, chatRepo)
	directory := service.NewDirectory(userRepo, presenceRepo)
	authorizer := realtime.NewAuthorizer(chatRepo, directory)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	fcmSvc := service.NewFCMService(cfg.Firebase.ServiceAccountPath)
	if fcmSvc != nil {
		log.Printf("[FCM] Push notifications enabled")
	} else if cfg.Firebase.ServiceAccountPath != "" {
		log.Printf("[FCM] Push notifications disabled: failed to init (check service account file)")
	} else {
		log.Printf("[FCM] Push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	}
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, fcmSvc)
	fanout := realtime.NewFanout(hub, notifSvc)
	deliverySvc := service.NewDeliveryService(msgRepo)
	callSvc := service.NewCallService(callRepo, fanout, chatRepo, cfg.Call.RingWindow, cfg.Call.LockTimeout)
	statusSvc := service.NewStatusService(statusRepo, cfg.Status.TTL)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, userRepo)
	broadcastHandler := handler.NewBroadcastHandler(&cfg.Broadcast, authorizer)
	chatHandler := handler.NewChatHandler(chatRepo, msgRepo, deliverySvc, fanout)
	callHandler := handler.NewCallHandler(callSvc, chatRepo)
	statusHandler := handler.NewStatusHandler(statusSvc, chatRepo, fanout, cloud)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/profile", authMw, authHandler.GetProfile)
			authGroup.POST("/fcm-token", authMw, authHandler.UpdateFCMToken)
		}

		api.POST("/broadcasting/auth", authMw, broadcastHandler.Auth)

		chats := api.Group("/chats")
		chats.Use(authMw)
		{
			chats.POST("", chatHandler.Create)
			chats.GET("", chatHandler.List)
			chats.POST("/:id/leave", chatHandler.Leave)
			chats.POST("/:id/participants", chatHandler.AddParticipant)
			chats.POST("/:id/messages", chatHandler.SendMessage)
			chats.GET("/:id/messages", chatHandler.ListMessages)
		}

		messages := api.Group("/messages")
		messages.Use(authMw)
		{
			messages.POST("/:mid/delivered", chatHandler.MarkDelivered)
			messages.POST("/:mid/read", chatHandler.MarkRead)
			messages.GET("/:mid/info", chatHandler.MessageInfo)
		}

		calls := api.Group("/calls")
		calls.Use(authMw)
		{
			calls.POST("", callHandler.Initiate)
			calls.POST("/:id/answer", callHandler.Answer)
			calls.POST("/:id/decline", callHandler.Decline)
			calls.POST("/:id/end", callHandler.End)
			calls.POST("/:id/join", callHandler.Join)
			calls.POST("/:id/leave", callHandler.Leave)
			calls.GET("/:id", callHandler.Get)
		}

		statuses := api.Group("/statuses")
		statuses.Use(authMw)
		{
			statuses.POST("", statusHandler.Create)
			statuses.GET("/feed", statusHandler.Feed)
			statuses.POST("/:id/view", statusHandler.MarkViewed)
			statuses.GET("/:id/viewers", statusHandler.Viewers)
		}

		notifications := api.Group("/notifications")
		notifications.Use(authMw)
		{
			notifications.GET("", notificationHandler.List)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}
	}

	r.GET("/ws", handler.RealtimeWS(&cfg.JWT, hub, tracker, authorizer, presenceRepo))

	sched := scheduler.New(callSvc, statusSvc, notifSvc, userRepo, cfg.Status.PurgeInterval)

	return r, &Deps{Calls: callSvc, Statuses: statusSvc, Hub: hub, Scheduler: sched}
}
