package routes

import (
	"net/http"
	"time"

	"envie2sortir-backend/config"
	"envie2sortir-backend/controllers"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Dependencies carries everything the handlers need.
type Dependencies struct {
	Config *config.Config
	Redis  *redis.Client

	Auth           *controllers.AuthController
	Establishments *controllers.EstablishmentController
	Learning       *controllers.LearningController
	Lookup         *controllers.LookupController
	Newsletter     *controllers.NewsletterController
	Waitlist       *controllers.WaitlistController
	Uploads        *controllers.UploadController
	Sitemap        *controllers.SitemapController
	Billing        *controllers.BillingController
	Health         *controllers.HealthController
}

func SetupRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", utils.CSRFHeaderName},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger())

	rl := d.Config.RateLimit
	limit := func(group string, requests int) gin.HandlerFunc {
		if !rl.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return utils.RateLimit(d.Redis, group, requests, time.Duration(rl.WindowSeconds)*time.Second)
	}
	authLimit := limit("auth", authBudget(rl.Requests))
	writeLimit := limit("public-write", rl.Requests)

	r.GET("/healthz", d.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/sitemap.xml", d.Sitemap.Sitemap)
	r.StaticFS(d.Config.Uploads.PublicPath, http.Dir(d.Config.Uploads.Dir))

	api := r.Group("/api")
	api.GET("/csrf-token", d.Auth.CSRFToken)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authLimit, d.Auth.Register)
		auth.POST("/login", authLimit, d.Auth.Login)
		auth.POST("/logout", d.Auth.Logout)
		auth.GET("/me", utils.AuthMiddleware(), d.Auth.Me)
		auth.PUT("/password", utils.AuthMiddleware(), utils.CSRFMiddleware(), controllers.ChangePassword)
	}

	proAuth := api.Group("/pro/auth")
	{
		proAuth.POST("/register", authLimit, d.Auth.ProRegister)
		proAuth.POST("/login", authLimit, d.Auth.ProLogin)
	}

	// Public routes
	public := api.Group("")
	public.Use(utils.OptionalAuth())
	{
		public.GET("/establishments", d.Establishments.ListEstablishments)
		public.GET("/establishments/:slug", d.Establishments.GetEstablishment)
		public.POST("/establishments/:slug/click", d.Establishments.TrackClick)
		public.GET("/establishments/:slug/deals", controllers.GetEstablishmentDeals)
		public.GET("/establishments/:slug/comments", controllers.GetComments)
		public.GET("/deals/active", controllers.GetActiveDeals)

		public.POST("/newsletter/subscribe", writeLimit, d.Newsletter.Subscribe)
		public.GET("/newsletter/unsubscribe", d.Newsletter.Unsubscribe)
		public.POST("/waitlist", writeLimit, d.Waitlist.JoinWaitlist)

		public.POST("/learning/suggest-type", writeLimit, d.Learning.SuggestType)
		public.GET("/siret/verify", writeLimit, d.Lookup.VerifySiret)
		public.GET("/geocode", writeLimit, d.Lookup.Geocode)

		public.POST("/billing/webhook", d.Billing.StripeWebhook)
	}

	// Any authenticated principal
	authed := api.Group("")
	authed.Use(utils.AuthMiddleware(), utils.CSRFMiddleware())
	{
		authed.GET("/messages/unread-count", utils.RequireRole(models.RolePro, models.RoleAdmin), controllers.GetUnreadCount)
		authed.POST("/comments/:id/reply", utils.RequireRole(models.RolePro), controllers.ReplyToComment)
	}

	// Consumer routes
	consumer := api.Group("")
	consumer.Use(utils.AuthMiddleware(), utils.CSRFMiddleware(), utils.RequireRole(models.RoleUser, models.RoleAdmin))
	{
		consumer.POST("/establishments/:slug/comments", writeLimit, controllers.CreateComment)
		consumer.PUT("/comments/:id", controllers.UpdateComment)
		consumer.DELETE("/comments/:id", controllers.DeleteComment)
		consumer.POST("/comments/:id/report", writeLimit, controllers.ReportComment)

		consumer.GET("/favorites", controllers.GetFavorites)
		consumer.POST("/favorites/:establishmentId", controllers.AddFavorite)
		consumer.DELETE("/favorites/:establishmentId", controllers.RemoveFavorite)
	}

	// Professional routes
	pro := api.Group("/pro")
	pro.Use(utils.AuthMiddleware(), utils.CSRFMiddleware(), utils.RequireRole(models.RolePro))
	{
		pro.GET("/profile", controllers.GetProProfile)
		pro.PUT("/profile", controllers.UpdateProProfile)

		pro.GET("/establishment", d.Establishments.GetMyEstablishment)
		pro.POST("/establishment", d.Establishments.CreateEstablishment)
		pro.PUT("/establishment", d.Establishments.UpdateEstablishment)
		pro.DELETE("/establishment", d.Establishments.DeleteEstablishment)

		deals := pro.Group("/deals")
		{
			deals.POST("", controllers.CreateDeal)
			deals.GET("", controllers.GetMyDeals)
			deals.PUT("/:id", controllers.UpdateDeal)
			deals.DELETE("/:id", controllers.DeleteDeal)
		}

		tariffs := pro.Group("/tariffs")
		{
			tariffs.POST("", controllers.CreateTariff)
			tariffs.GET("", controllers.GetTariffs)
			tariffs.PUT("/:id", controllers.UpdateTariff)
			tariffs.DELETE("/:id", controllers.DeleteTariff)
		}

		menus := pro.Group("/menus")
		{
			menus.POST("", controllers.CreateMenu)
			menus.GET("", controllers.GetMenus)
			menus.PUT("/:id", controllers.UpdateMenu)
			menus.DELETE("/:id", controllers.DeleteMenu)
		}

		conversations := pro.Group("/conversations")
		{
			conversations.GET("", controllers.GetProConversations)
			conversations.POST("", controllers.CreateConversation)
			conversations.GET("/:id/messages", controllers.GetProMessages)
			conversations.POST("/:id/messages", controllers.PostProMessage)
		}

		pro.POST("/uploads/image", d.Uploads.UploadImage)
	}

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(utils.AuthMiddleware(), utils.CSRFMiddleware(), utils.RequireRole(models.RoleAdmin))
	{
		admin.GET("/stats", controllers.GetAdminStats)
		admin.GET("/notifications", controllers.GetNotificationLogs)

		establishments := admin.Group("/establishments")
		{
			establishments.GET("", d.Establishments.AdminListEstablishments)
			establishments.GET("/export.csv", d.Establishments.ExportEstablishmentsCSV)
			establishments.PATCH("/:id/approve", d.Establishments.ApproveEstablishment)
			establishments.PATCH("/:id/reject", d.Establishments.RejectEstablishment)
			establishments.DELETE("/:id", d.Establishments.AdminDeleteEstablishment)
		}

		admin.GET("/comments/reported", controllers.GetReportedComments)

		conversations := admin.Group("/conversations")
		{
			conversations.GET("", controllers.GetAdminConversations)
			conversations.GET("/:id/messages", controllers.GetAdminMessages)
			conversations.POST("/:id/messages", controllers.PostAdminMessage)
			conversations.PATCH("/:id/close", controllers.CloseConversation)
		}

		newsletter := admin.Group("/newsletter")
		{
			newsletter.GET("/subscribers", d.Newsletter.ListSubscribers)
			newsletter.GET("/stats", d.Newsletter.GetNewsletterStats)
			newsletter.GET("/export.csv", d.Newsletter.ExportSubscribersCSV)
			newsletter.POST("/send", d.Newsletter.SendNewsletter)
		}

		waitlist := admin.Group("/waitlist")
		{
			waitlist.GET("", d.Waitlist.ListWaitlist)
			waitlist.POST("/:id/invite", d.Waitlist.InviteFromWaitlist)
		}

		learning := admin.Group("/learning")
		{
			learning.GET("/patterns", d.Learning.ListPatterns)
			learning.GET("/stats", d.Learning.GetStats)
			learning.PUT("/patterns/:id/correct", d.Learning.CorrectPattern)
			learning.PUT("/patterns/:id/validate", d.Learning.ValidatePattern)
			learning.DELETE("/patterns/:id", d.Learning.DeletePattern)
		}
	}

	return r
}

// authBudget gives credential endpoints a third of the public budget, never less than one.
func authBudget(requests int) int {
	if requests <= 0 {
		return requests
	}
	return max(1, requests/3)
}
