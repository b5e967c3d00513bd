package pages

import (
	"github.com/gin-gonic/gin"

	"github.com/bxu-infra/kml-dashboard/internal/kml"
)

// Routes holds the page table of the dashboard.
type Routes struct {
	renderer *Renderer
	catalog  *kml.Catalog
}

func NewRoutes(renderer *Renderer, catalog *kml.Catalog) *Routes {
	return &Routes{renderer: renderer, catalog: catalog}
}

func (p *Routes) RegisterPublic(r gin.IRouter) {
	r.GET("/", p.static("Welcome"))
}

// RegisterAuthenticated mounts pages that sit behind auth + verified middleware.
func (p *Routes) RegisterAuthenticated(rg gin.IRouter) {
	rg.GET("/dashboard", p.dashboard)

	rg.GET("/road_monitoring", p.mapLayers("RoadMonitoring"))
	rg.GET("/vehicle_analytics", p.mapLayers("VehicleAnalytics"))
	rg.GET("/map_view", p.mapLayers("MapView"))

	rg.GET("/maintenance_alert", p.static("MaintenanceAlert"))
	rg.GET("/historical_data", p.static("HistoricalData"))
	rg.GET("/users", p.static("UserManagement"))
	rg.GET("/backup_and_restore", p.static("BackupAndRestore"))
	rg.GET("/chatbot", p.static("Chatbot"))
}

func (p *Routes) dashboard(c *gin.Context) {
	p.renderer.Render(c, "Dashboard", map[string]any{
		"kmlUrls": p.catalog.List(c.Request.Context()),
	})
}

func (p *Routes) mapLayers(component string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.renderer.Render(c, component, map[string]any{
			"landuseKmlUrl": p.catalog.URL(kml.LandusePath),
			"roadsKmlUrl":   p.catalog.URL(kml.RoadNetworksPath),
		})
	}
}

func (p *Routes) static(component string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.renderer.Render(c, component, nil)
	}
}
