package api

import (
	"github.com/gin-gonic/gin"
	"github.com/onedayonepaper/parkflow-sub000/internal/api/handler"
	"github.com/onedayonepaper/parkflow-sub000/internal/api/middleware"
	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/service"
)

type RouterDeps struct {
	AuthService     *service.AuthService
	SessionService  *service.SessionService
	BarrierService  *service.BarrierService
	RatePlanService *service.RatePlanService
	DiscountAdmin   *service.DiscountAdminService
	LPRService      *service.LPRService
	SiteHandler     *handler.SiteHandler
	AuthMiddleware  *middleware.AuthMiddleware
	WSManager       *handler.WebSocketManager
}

func SetupRouter(deps RouterDeps) *gin.Engine {
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
	wsHandler := handler.NewWebSocketHandler(deps.WSManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(deps.AuthService)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	authMw := deps.AuthMiddleware
	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		sessionH := handler.NewSessionHandler(deps.SessionService)
		sessionRoutes := v1.Group("/sessions")
		{
			sessionRoutes.POST("/entry", sessionH.HandleEntry)
			sessionRoutes.POST("/exit", sessionH.HandleExit)
			sessionRoutes.POST("/:id/payment", sessionH.ConfirmPayment)
			sessionRoutes.POST("/:id/force-close", authMw.AuthorizeRole(domain.RoleAdmin), sessionH.ForceClose)
			sessionRoutes.POST("/:id/recalculate", authMw.AuthorizeRole(domain.RoleAdmin), sessionH.Recalculate)
			sessionRoutes.POST("/:id/discounts", sessionH.ApplyDiscount)
			sessionRoutes.GET("/:id/discounts", sessionH.ListDiscounts)
			sessionRoutes.GET("", sessionH.FindSessions)
			sessionRoutes.GET("/:id", sessionH.GetSessionByID)
		}

		barrierH := handler.NewBarrierHandler(deps.BarrierService)
		barrierRoutes := v1.Group("/barriers")
		{
			barrierRoutes.POST("/commands", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator), barrierH.IssueCommand)
			barrierRoutes.POST("/emergency-open", authMw.AuthorizeRole(domain.RoleAdmin), barrierH.EmergencyOpen)
		}

		ratePlanH := handler.NewRatePlanHandler(deps.RatePlanService, deps.DiscountAdmin)
		planRoutes := v1.Group("/rate-plans")
		{
			planRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin), ratePlanH.CreatePlan)
			planRoutes.GET("/:id", ratePlanH.GetPlanByID)
		}

		ruleRoutes := v1.Group("/discount-rules")
		{
			ruleRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin), ratePlanH.CreateDiscountRule)
			ruleRoutes.GET("/:id", ratePlanH.GetDiscountRuleByID)
		}

		siteRoutes := v1.Group("/sites")
		{
			siteRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin), deps.SiteHandler.CreateSite)
			siteRoutes.GET("", deps.SiteHandler.GetAllSites)
			siteRoutes.GET("/:site_id", deps.SiteHandler.GetSiteByID)
			siteRoutes.POST("/:site_id/barriers", authMw.AuthorizeRole(domain.RoleAdmin), deps.SiteHandler.CreateBarrier)
			siteRoutes.GET("/:site_id/rate-plans", ratePlanH.ListPlansBySite)
			siteRoutes.POST("/:site_id/rate-plans/:id/activate", authMw.AuthorizeRole(domain.RoleAdmin), ratePlanH.ActivatePlan)
		}

		if deps.LPRService != nil {
			lprH := handler.NewLPRHandler(deps.LPRService, deps.SessionService)
			lprRoutes := v1.Group("/lpr")
			lprRoutes.Use(authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator))
			{
				lprRoutes.POST("/process-image", lprH.ProcessImage)
			}
		}
	}
	return r
}
