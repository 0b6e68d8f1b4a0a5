package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/handlers"
	"github.com/onurcolak/waapi-campaign-service/internal/middlewares"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health   *handlers.HealthHandler
	Campaign *handlers.CampaignHandler
	Sender   *handlers.SenderHandler
	List     *handlers.ListHandler
	Admin    *handlers.AdminHandler
}

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(e *echo.Echo, h Handlers, cfg *environments.Config) {
	e.GET("/health", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Every /api/v1 route shares one API key
	v1 := e.Group("/api/v1", middlewares.APIKeyAuth(cfg.Auth.APIKey))

	campaigns := v1.Group("/campaigns")
	campaigns.GET("", h.Campaign.GetCampaigns)
	campaigns.POST("", h.Campaign.CreateCampaign)
	campaigns.GET("/:id", h.Campaign.GetCampaign)
	campaigns.DELETE("/:id", h.Campaign.DeleteCampaign)
	campaigns.GET("/:id/progress", h.Campaign.GetCampaignProgress)
	campaigns.POST("/:id/send", h.Campaign.SendCampaign)

	v1.GET("/dashboard/stats", h.Campaign.GetDashboardStats)

	senders := v1.Group("/senders")
	senders.GET("", h.Sender.GetSenders)
	senders.POST("", h.Sender.CreateSender)
	senders.GET("/:id", h.Sender.GetSender)
	senders.PUT("/:id", h.Sender.UpdateSender)
	senders.DELETE("/:id", h.Sender.DeleteSender)
	senders.POST("/:id/test", h.Sender.TestSender)

	lists := v1.Group("/lists")
	lists.GET("", h.List.GetLists)
	lists.POST("", h.List.CreateList)
	lists.GET("/:id", h.List.GetList)
	lists.PUT("/:id", h.List.UpdateList)
	lists.DELETE("/:id", h.List.DeleteList)
	lists.GET("/:id/contacts", h.List.GetContacts)
	lists.POST("/:id/contacts", h.List.AddContact)
	lists.POST("/:id/contacts/import", h.List.ImportContacts)

	contacts := v1.Group("/contacts")
	contacts.GET("/:id", h.List.GetContact)
	contacts.PUT("/:id", h.List.UpdateContact)
	contacts.DELETE("/:id", h.List.DeleteContact)

	admin := v1.Group("/admin")
	admin.POST("/migrate-senders", h.Admin.MigrateSenders)
	admin.GET("/monitor", h.Admin.GetMonitorStatus)
	admin.POST("/monitor/start", h.Admin.StartMonitor)
	admin.POST("/monitor/stop", h.Admin.StopMonitor)
}
