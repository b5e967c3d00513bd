package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bxu-infra/kml-dashboard/internal/kml"
	"github.com/bxu-infra/kml-dashboard/internal/logging"
)

type Handler struct {
	catalog *kml.Catalog
}

func New(catalog *kml.Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// Register mounts the fixed KML layers, e.g. under /api.
func (h *Handler) Register(rg gin.IRouter) {
	rg.GET("/kml/barangay-boundaries", h.serve(kml.BarangayBoundariesPath))
	rg.GET("/kml/zones", h.serve(kml.ZonesPath))
}

// RegisterStatic publishes the kml directory so listed URLs resolve.
func (h *Handler) RegisterStatic(r gin.IRouter) {
	r.Static("/"+kml.Dir, h.catalog.Root())
}

func (h *Handler) serve(rel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := h.catalog.Read(rel)
		if errors.Is(err, kml.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "KML file not found"})
			return
		}
		if err != nil {
			logging.New(c.Request.Context()).Error("kml_serve", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read KML file"})
			return
		}
		c.Data(http.StatusOK, kml.MIMEType, data)
	}
}
