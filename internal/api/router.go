package api

import (
	"parking_reservation/internal/api/handler"
	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(as *service.AuthService, bs *service.BookingService,
	authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint (không cần auth cho real-time connection)
	wsHandler := handler.NewWebSocketHandler(wsManager, bs)
	r.GET("/ws", wsHandler.HandleWebSocket)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		v1.POST("/profile", authHandler.RegisterProfile)
		v1.GET("/profile", authHandler.GetProfile)
		v1.PUT("/users/:id/profile-status", authMw.AuthorizeRole("admin"), authHandler.UpdateProfileStatus)

		bookingH := handler.NewBookingHandler(bs)
		v1.GET("/areas", bookingH.ListAreas)
		v1.GET("/spots", bookingH.ListSpots)

		bookingRoutes := v1.Group("/booking")
		{
			bookingRoutes.GET("/time-options", bookingH.TimeOptions)
			bookingRoutes.POST("/lock", bookingH.LockSpot)
			bookingRoutes.POST("/release", bookingH.ReleaseSpot)
			bookingRoutes.POST("/confirm", bookingH.ConfirmBooking)
		}

		v1.GET("/reservations", bookingH.ListReservations)

		spotH := handler.NewSpotHandler(bs)
		spotRoutes := v1.Group("/spots")
		{
			spotRoutes.POST("", authMw.AuthorizeRole("admin"), spotH.CreateSpot)
			spotRoutes.GET("/:id", spotH.GetSpotByID)
			spotRoutes.PUT("/:id", authMw.AuthorizeRole("admin"), spotH.UpdateSpot)
			spotRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), spotH.DeleteSpot)
			spotRoutes.POST("/:id/disable", authMw.AuthorizeRole("admin"), spotH.DisableSpot)
			spotRoutes.POST("/:id/enable", authMw.AuthorizeRole("admin"), spotH.EnableSpot)
		}
	}

	return r
}
