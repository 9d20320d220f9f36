package handlers

import (
	"controlling_relay/internal/logger"
	"controlling_relay/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *Hub
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler. hub may be nil, in which case /ws
// only sends the initial status and pings.
func NewHandler(services *service.Service, hub *Hub, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerRelayRoutes(api)
		api.GET("/logs", h.getLogs)
	}
}

func (h *Handler) registerRelayRoutes(api *gin.RouterGroup) {
	relay := api.Group("/relay")
	{
		// Optional body: {"auto_off_time": 15}
		relay.POST("/on", h.relayOn)
		// Optional body: {"delay_minutes": 10}
		relay.POST("/off", h.relayOff)
		relay.POST("/toggle", h.relayToggle)
		relay.POST("/auto-off/enable", h.enableAutoOff)
		relay.POST("/auto-off/disable", h.disableAutoOff)
		relay.PUT("/auto-off-time", h.setAutoOffTime)
		relay.PUT("/properties/:key", h.setProperty)
		relay.POST("/commands/:name", h.runCommand)
		relay.GET("/state", h.getState)
	}
}
