package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khoahotran/portfolio-cms/internal/application/store"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/backup"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/portfolio"
	"github.com/khoahotran/portfolio-cms/pkg/auth"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

type RouterDeps struct {
	Stores    *store.Stores
	Portfolio *portfolio.PortfolioUseCase
	Backup    *backup.BackupUseCase
	// Assets, when set, serves uploaded blobs under /assets.
	Assets http.Handler
	JWT    *auth.JWTService
	Logger logger.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	authHandler := NewAuthHandler(d.Stores.Session)
	contentHandler := NewContentHandler(d.Stores)
	portfolioHandler := NewPortfolioHandler(d.Portfolio)

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(d.Logger), ErrorMiddleware(d.Logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if d.Assets != nil {
		router.GET("/assets/*path", gin.WrapH(http.StripPrefix("/assets", d.Assets)))
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		api.GET("/portfolio", portfolioHandler.GetPortfolio)

		admin := api.Group("/admin")
		{
			requireAuth := AuthMiddleware(d.JWT, d.Stores.Session)

			adminAuth := admin.Group("/auth")
			adminAuth.POST("/login", authHandler.Login)
			adminAuth.POST("/logout", requireAuth, authHandler.Logout)
			adminAuth.GET("/me", requireAuth, authHandler.Me)

			adminPrivate := admin.Group("/")
			adminPrivate.Use(requireAuth)
			{
				adminPrivate.GET("/about", contentHandler.GetAbout)
				adminPrivate.PUT("/about", contentHandler.UpdateAbout)

				skills := adminPrivate.Group("/skills")
				{
					skills.GET("/section", contentHandler.GetSkillsSection)
					skills.PUT("/section", contentHandler.UpdateSkillsSection)
					skills.GET("", contentHandler.ListSkills)
					skills.POST("", contentHandler.CreateSkill)
					skills.PUT("/:id", contentHandler.UpdateSkill)
					skills.DELETE("/:id", contentHandler.DeleteSkill)
				}

				if d.Backup != nil {
					adminPrivate.POST("/backups", NewBackupHandler(d.Backup).CreateBackup)
				}

				experiences := adminPrivate.Group("/experiences")
				{
					experiences.GET("", contentHandler.ListExperiences)
					experiences.POST("", contentHandler.CreateExperience)
					experiences.PUT("/:id", contentHandler.UpdateExperience)
					experiences.DELETE("/:id", contentHandler.DeleteExperience)
				}
			}
		}
	}
	return router
}
