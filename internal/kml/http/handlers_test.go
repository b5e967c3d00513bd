package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bxu-infra/kml-dashboard/internal/kml"
)

func setupRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	h := New(kml.NewCatalog(root, "http://localhost:8080"))

	r := gin.New()
	h.Register(r.Group("/api"))
	h.RegisterStatic(r)
	return r, root
}

func put(t *testing.T, root, rel string, body []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, body, 0o644))
}

func TestServeKML_Exists(t *testing.T) {
	r, root := setupRouter(t)
	body := []byte("<?xml version=\"1.0\"?><kml><Document/></kml>\n")
	put(t, root, kml.BarangayBoundariesPath, body)
	put(t, root, kml.ZonesPath, []byte("<kml>zones</kml>"))

	for path, want := range map[string][]byte{
		"/api/kml/barangay-boundaries": body,
		"/api/kml/zones":               []byte("<kml>zones</kml>"),
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, kml.MIMEType, rr.Header().Get("Content-Type"), path)
		assert.Equal(t, want, rr.Body.Bytes(), path)
	}
}

func TestServeKML_Missing(t *testing.T) {
	r, _ := setupRouter(t)

	for _, path := range []string{"/api/kml/barangay-boundaries", "/api/kml/zones"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, map[string]string{"error": "KML file not found"}, resp)
	}
}

func TestStaticKML(t *testing.T) {
	r, root := setupRouter(t)
	put(t, root, kml.LandusePath, []byte("<kml>landuse</kml>"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/kml/landuse_KML.kml", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, kml.MIMEType, rr.Header().Get("Content-Type"))
	assert.Equal(t, "<kml>landuse</kml>", rr.Body.String())
}
