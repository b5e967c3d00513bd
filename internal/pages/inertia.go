package pages

import (
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bxu-infra/kml-dashboard/internal/logging"
)

const (
	HeaderInertia         = "X-Inertia"
	HeaderInertiaVersion  = "X-Inertia-Version"
	HeaderInertiaLocation = "X-Inertia-Location"

	templateName = "app.html"
)

// Page is the Inertia page object handed to the client-side app.
type Page struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
	URL       string         `json:"url"`
	Version   string         `json:"version"`
}

// Renderer turns page objects into either the initial HTML document or an Inertia JSON
// response, depending on the X-Inertia request header.
type Renderer struct {
	version  string
	title    string
	buildDir string
}

// NewRenderer serves Vite assets from <publicDir>/build.
func NewRenderer(version, title, publicDir string) *Renderer {
	return &Renderer{version: version, title: title, buildDir: filepath.Join(publicDir, BuildDir)}
}

// RegisterStatic publishes the Vite build output at /build.
func (r *Renderer) RegisterStatic(e gin.IRouter) {
	e.Static("/"+BuildDir, r.buildDir)
}

// Install registers the HTML shell on the engine. It must run before Render is used.
func (r *Renderer) Install(e *gin.Engine) {
	e.SetHTMLTemplate(template.Must(template.New(templateName).Parse(shell)))
}

func (r *Renderer) Render(c *gin.Context, component string, props map[string]any) {
	if props == nil {
		props = map[string]any{}
	}
	page := Page{
		Component: component,
		Props:     props,
		URL:       c.Request.URL.RequestURI(),
		Version:   r.version,
	}

	c.Header("Vary", HeaderInertia)

	if !isInertia(c) {
		data, err := json.Marshal(page)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode page"})
			return
		}
		// Manifest is read on every full page load.
		assets, err := LoadAssets(r.buildDir, ViteEntry)
		if err != nil {
			logging.New(c.Request.Context()).Warnf("render_page", "%v", err)
		}
		c.HTML(http.StatusOK, templateName, gin.H{
			"Title":   r.title,
			"Page":    string(data),
			"Scripts": assets.Scripts,
			"Styles":  assets.Styles,
		})
		return
	}

	if c.Request.Method == http.MethodGet && c.GetHeader(HeaderInertiaVersion) != r.version {
		c.Header(HeaderInertiaLocation, page.URL)
		c.Status(http.StatusConflict)
		return
	}

	c.Header(HeaderInertia, "true")
	c.JSON(http.StatusOK, page)
}

func isInertia(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader(HeaderInertia), "true")
}

const shell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{range .Styles}}<link rel="stylesheet" href="{{.}}">
{{end}}{{range .Scripts}}<script type="module" src="{{.}}"></script>
{{end}}</head>
<body>
<div id="app" data-page="{{.Page}}"></div>
</body>
</html>
`
