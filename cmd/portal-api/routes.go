package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/docrequest-portal/api/swagger"
	"github.com/noah-isme/docrequest-portal/internal/handler"
	"github.com/noah-isme/docrequest-portal/internal/middleware"
	"github.com/noah-isme/docrequest-portal/internal/models"
	"github.com/noah-isme/docrequest-portal/pkg/config"
	"github.com/noah-isme/docrequest-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/docrequest-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/docrequest-portal/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, app *services, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(app.metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	metricsHandler := handler.NewMetricsHandler(app.metrics, app.pingers)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	portal := handler.NewPortalHandler(app.sessions, app.uploads, cfg.Portal.MaxRequestBytes)
	api.GET("/portal/:token", portal.Session)
	api.POST("/portal/:token/files", portal.Upload)

	downloads := handler.NewDownloadHandler(app.review)
	api.GET("/downloads/:token", downloads.Download)

	operators := api.Group("", middleware.JWT(app.auth), middleware.RequireRoles(models.RoleAdmin, models.RoleOperator))

	auth := handler.NewAuthHandler()
	operators.GET("/auth/me", auth.Me)

	entityTypes := handler.NewEntityTypeConfigHandler(app.registry)
	operators.GET("/entity-types", entityTypes.ListActive)
	operators.GET("/entity-types/:typeId", entityTypes.Get)

	admin := operators.Group("", middleware.RequireRoles(models.RoleAdmin))
	admin.PUT("/entity-types/:typeId", entityTypes.Upsert)
	admin.PATCH("/entity-types/:typeId/active", entityTypes.SetActive)
	admin.DELETE("/entity-types/cache", entityTypes.FlushCache)
	admin.GET("/metrics/summary", metricsHandler.Summary)

	requests := handler.NewDocumentRequestHandler(app.requests, app.review)
	activity := handler.NewActivityHandler(app.activity)
	operators.POST("/document-requests", requests.Create)
	operators.GET("/document-requests", requests.List)
	operators.GET("/document-requests/:id", requests.Get)
	operators.GET("/document-requests/:id/history", activity.History)
	operators.POST("/document-requests/:id/send", requests.Send)
	operators.POST("/document-requests/:id/commit", requests.Commit)
	operators.POST("/document-requests/:id/reject", requests.Reject)
	operators.PATCH("/document-requests/:id/files/:fileId/review", requests.ReviewFile)
	operators.GET("/document-requests/:id/files/:fileId/download-url", requests.DownloadURL)
	operators.GET("/document-requests/:id/manifest", requests.Manifest)
	operators.GET("/review-assignments", activity.MyAssignments)

	return r
}
