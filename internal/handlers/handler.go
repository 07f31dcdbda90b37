package handlers

import (
	"mqtt_dashboard/internal/logger"
	"mqtt_dashboard/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	origins  []string
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// AllowOrigins restricts browser origins accepted on /ws. Empty allows all.
func (h *Handler) AllowOrigins(origins []string) *Handler {
	h.origins = origins
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live dashboard stream on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorMiddleware)
	{
		h.registerConnectionRoutes(api)
		h.registerReadingRoutes(api)
		h.registerMessageRoutes(api)
		h.registerSimulationRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerConnectionRoutes(api *gin.RouterGroup) {
	conn := api.Group("/connection")
	{
		// Body example: {"host":"localhost","port":1883,"topic_filter":"sensors/#"}
		conn.POST("", h.connect)
		conn.DELETE("", h.disconnect)
		conn.GET("", h.connectionStatus)
	}
}

func (h *Handler) registerReadingRoutes(api *gin.RouterGroup) {
	readings := api.Group("/readings")
	{
		readings.GET("", h.listReadings)
		readings.DELETE("", h.clearReadings)
		readings.GET("/latest", h.latestReadings)
		readings.GET("/devices", h.listDevices)
		readings.GET("/export", h.exportReadings)
	}
}

func (h *Handler) registerMessageRoutes(api *gin.RouterGroup) {
	api.POST("/messages", h.publishMessage)
}

func (h *Handler) registerSimulationRoutes(api *gin.RouterGroup) {
	sim := api.Group("/simulation")
	{
		sim.POST("", h.startSimulation)
		sim.DELETE("", h.cancelSimulation)
		sim.GET("", h.simulationProgress)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}
