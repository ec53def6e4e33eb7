package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/yuzuhara/tomosanpo/internal/handlers"
	"github.com/yuzuhara/tomosanpo/internal/middleware"
	"github.com/yuzuhara/tomosanpo/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	jwtMgr *auth.JWTManager,
	rdb *redis.Client,
	authH *handlers.AuthHandler,
	requestH *handlers.RequestHandler,
	chatH *handlers.ChatHandler,
	notificationH *handlers.NotificationHandler,
	userH *handlers.UserHandler,
	wsH *handlers.WebSocketHandler,
) {
	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/logout", authH.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtMgr, rdb))
	{
		requests := api.Group("/requests")
		{
			requests.POST("", requestH.CreateRequest)
			requests.GET("", requestH.ListOpenRequests)
			requests.GET("/mine", requestH.ListMyRequests)
			requests.GET("/matched", requestH.ListMatchedRequests)
			requests.GET("/:id", requestH.GetRequest)
			requests.DELETE("/:id", requestH.DeleteRequest)

			requests.POST("/:id/apply", requestH.Apply)
			requests.POST("/:id/withdraw", requestH.Withdraw)
			requests.POST("/:id/applicants/:userID/approve", requestH.Approve)
			requests.POST("/:id/applicants/:userID/reject", requestH.Reject)
			requests.DELETE("/:id/participants/:userID", requestH.RemoveParticipant)
		}

		chats := api.Group("/chats")
		{
			chats.POST("/resolve", chatH.ResolveChat)
			chats.GET("", chatH.GetMyChats)
			chats.GET("/:id/messages", chatH.GetMessages)
			chats.POST("/:id/messages", chatH.SendMessage)
			chats.POST("/:id/read", chatH.MarkRead)
		}

		notifs := api.Group("/notifications")
		{
			notifs.GET("", notificationH.GetUnread)
			notifs.GET("/badge", notificationH.Badge)
			notifs.POST("/:id/read", notificationH.MarkRead)
			notifs.POST("/read-all", notificationH.MarkAllRead)
		}

		users := api.Group("/users")
		{
			users.GET("/me", userH.GetMe)
			users.PATCH("/me", userH.UpdateMe)
			users.GET("/online", userH.GetOnlineUsers)
			users.GET("/search", userH.SearchUsers)
			users.GET("/:id", userH.GetUser)
		}
	}

	// WebSocket с токеном в query
	r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), wsH.HandleWebSocket)
}
