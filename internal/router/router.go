package router

import (
	"context"
	"time"

	"recipestock/internal/config"
	"recipestock/internal/handler"
	"recipestock/internal/infra"
	"recipestock/internal/middleware"
	"recipestock/internal/service"
	"recipestock/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil, which disables the cost cache, alerts and report jobs.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.ErrorHandler())
	if cfg.RateLimitPerMinute > 0 {
		r.Use(middleware.RateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute))
	}

	// ── Infrastructure ───────────────────────────────────────────────────────
	var (
		alerts  service.AlertNotifier
		reports handler.ReportQueue
	)
	if rdb != nil {
		dispatcher := worker.NewDispatcher(rdb)
		alerts = dispatcher
		reports = dispatcher
	}
	costCache := infra.NewCostCache(rdb, cfg.RecipeCostCacheTTL)

	// ── Services ─────────────────────────────────────────────────────────────
	svc := service.NewServices(db, alerts)

	// ── Handlers ─────────────────────────────────────────────────────────────
	ingredientsH := handler.NewIngredientsHandler(svc.Ingredients)
	categoriesH := handler.NewCategoriesHandler(svc.Categories)
	recipesH := handler.NewRecipesHandler(svc.Recipes, costCache)
	salesH := handler.NewSalesHandler(svc.Sales, svc.Inventory, reports)
	inventoryH := handler.NewInventoryHandler(svc.Inventory)
	transferH := handler.NewTransferHandler(svc.Transfer)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(db, rdb, mailCB))

	v1 := r.Group("/v1")
	{
		ing := v1.Group("/ingredients")
		{
			ing.POST("", ingredientsH.Create)
			ing.GET("", ingredientsH.List)
			ing.GET("/:id", ingredientsH.Get)
			ing.PATCH("/:id", ingredientsH.Update)
			ing.DELETE("/:id", ingredientsH.Delete)
			ing.POST("/:id/restock", ingredientsH.Restock)
			ing.GET("/:id/cost-history", ingredientsH.CostHistory)
		}

		cat := v1.Group("/categories")
		{
			cat.POST("", categoriesH.Create)
			cat.GET("", categoriesH.List)
			cat.PUT("/:id", categoriesH.Update)
			cat.DELETE("/:id", categoriesH.Delete)
		}

		rec := v1.Group("/recipes")
		{
			rec.POST("", recipesH.Create)
			rec.GET("", recipesH.List)
			rec.GET("/:id", recipesH.Get)
			rec.PATCH("/:id", recipesH.Update)
			rec.DELETE("/:id", recipesH.Delete)
			rec.POST("/:id/lines", recipesH.AddLine)
			rec.PUT("/:id/lines/:position", recipesH.UpdateLine)
			rec.DELETE("/:id/lines/:position", recipesH.RemoveLine)
			rec.POST("/:id/recalculate", recipesH.Recalculate)
			rec.GET("/:id/cost-analysis", recipesH.CostAnalysis)
			rec.GET("/:id/availability", recipesH.Availability)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("", salesH.ProcessSale)
			sales.GET("", salesH.List)
			sales.GET("/recent", salesH.Recent)
			sales.GET("/daily-summary", salesH.DailySummary)
			sales.GET("/report", salesH.PeriodReport)
			sales.GET("/trends", salesH.RevenueTrend)
			sales.GET("/daily-report", salesH.DailyReportPDF)
			sales.POST("/daily-report/email", salesH.EmailDailyReport)
			sales.GET("/:id", salesH.Get)
		}

		inv := v1.Group("/inventory")
		{
			inv.GET("/alerts", inventoryH.Alerts)
			inv.GET("/expiring", inventoryH.Expiring)
			inv.GET("/report", inventoryH.Report)
			inv.GET("/movements", inventoryH.Movements)
			inv.POST("/stocktake", inventoryH.Stocktake)
			inv.POST("/bulk-update", inventoryH.BulkUpdate)
		}

		v1.GET("/export", transferH.Export)
		v1.POST("/import", transferH.Import)
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
