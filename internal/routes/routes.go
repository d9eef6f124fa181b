package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/consultant-content-api/internal/handler"
	"github.com/noah-isme/consultant-content-api/internal/middleware"
	"github.com/noah-isme/consultant-content-api/internal/models"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// AuditWriter persists audit trail entries.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Dependencies bundles what the router needs.
type Dependencies struct {
	APIPrefix  string
	EnableDocs bool
	Tokens     TokenValidator
	Audit      AuditWriter
	Logger     *zap.Logger
	Content    *handler.ContentHandler
	Reviews    *handler.ReviewHandler
	Metrics    *handler.MetricsHandler
}

// Register mounts every route on r.
func Register(r *gin.Engine, deps Dependencies) {
	r.GET("/health", deps.Metrics.Health)
	r.GET("/ready", deps.Metrics.Ready)
	r.GET("/metrics", deps.Metrics.Prometheus)
	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := deps.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	registerContent(api, deps)
	registerReviews(api, deps)
}

func registerContent(api *gin.RouterGroup, deps Dependencies) {
	h := deps.Content
	auth := middleware.JWT(deps.Tokens)
	consultant := middleware.RequireRoles(models.RoleConsultant)
	admin := middleware.RequireRoles(models.RoleAdmin)

	content := api.Group("/content")
	content.GET("/published", h.ListPublished)
	content.GET("/published/:id", middleware.OptionalJWT(deps.Tokens), h.GetPublished)

	secured := content.Group("")
	secured.Use(auth)
	{
		secured.POST("", consultant, h.Create)
		secured.GET("/my", consultant, h.ListMine)
		secured.GET("/my/stats", consultant, h.Stats)
		secured.PUT("/:id", consultant, h.Update)
		secured.POST("/:id/submit", consultant, h.Submit)
		secured.DELETE("/:id", consultant, middleware.Audit(deps.Audit, deps.Logger, models.AuditActionContentDelete, "content"), h.Delete)

		secured.POST("/:id/rating", h.Rate)
		secured.POST("/:id/download", h.Download)

		secured.GET("/admin/pending", admin, h.ListPending)
		secured.PUT("/:id/approve", admin, middleware.Audit(deps.Audit, deps.Logger, models.AuditActionContentApprove, "content"), h.Approve)
		secured.PUT("/:id/reject", admin, middleware.Audit(deps.Audit, deps.Logger, models.AuditActionContentReject, "content"), h.Reject)
	}
}

func registerReviews(api *gin.RouterGroup, deps Dependencies) {
	h := deps.Reviews
	student := middleware.RequireRoles(models.RoleStudent)
	admin := middleware.RequireRoles(models.RoleAdmin)

	reviews := api.Group("/reviews")
	reviews.GET("/consultant/:consultantId", h.ListForConsultant)

	secured := reviews.Group("")
	secured.Use(middleware.JWT(deps.Tokens))
	{
		secured.POST("", student, h.Create)
		secured.GET("/my-reviews", student, h.ListMine)
		secured.PUT("/:id", h.Update)
		secured.DELETE("/:id", middleware.Audit(deps.Audit, deps.Logger, models.AuditActionReviewDelete, "review"), h.Delete)

		secured.GET("/admin/all", admin, h.ListAll)
		secured.GET("/admin/export", admin, h.Export)
	}
}
