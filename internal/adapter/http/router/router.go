package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/http/handler"
	"github.com/ressKim-io/ReviewSense/api-service/internal/adapter/http/middleware"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/service"
	"github.com/ressKim-io/ReviewSense/api-service/internal/usecase"
)

// Dependencies are the collaborators the router wires into handlers.
// DB, Redis and Classifier are optional and only feed the health checks.
type Dependencies struct {
	Usecase        usecase.ServingUsecase
	DB             *gorm.DB
	Redis          *redis.Client
	Classifier     service.ReadinessChecker
	Gatherer       prometheus.Gatherer
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// Setup creates and configures the Gin router
func Setup(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis, deps.Classifier)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	servingHandler := handler.NewServingHandler(deps.Usecase, logger)
	upload := middleware.BodyLimit(deps.MaxUploadBytes)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		predict := v1.Group("/predict", upload)
		{
			predict.POST("", servingHandler.Predict)
			predict.POST("/export", servingHandler.Export)
		}

		metrics := v1.Group("/metrics")
		{
			metrics.GET("", servingHandler.Metrics)
			metrics.GET("/predictions.csv", servingHandler.PredictionsCSV)
			metrics.GET("/confusion_matrix.csv", servingHandler.ConfusionMatrixCSV)
		}

		v1.GET("/dataset-info", servingHandler.DatasetInfo)
		v1.GET("/model-info", servingHandler.ModelInfo)
	}

	return router
}
