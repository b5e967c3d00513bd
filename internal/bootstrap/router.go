package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/bxu-infra/kml-dashboard/config"
	httpapi "github.com/bxu-infra/kml-dashboard/internal/api/http"
	"github.com/bxu-infra/kml-dashboard/internal/api/http/middleware"
	"github.com/bxu-infra/kml-dashboard/internal/auth"
	"github.com/bxu-infra/kml-dashboard/internal/chat"
	chathttp "github.com/bxu-infra/kml-dashboard/internal/chat/http"
	"github.com/bxu-infra/kml-dashboard/internal/kml"
	kmlhttp "github.com/bxu-infra/kml-dashboard/internal/kml/http"
	"github.com/bxu-infra/kml-dashboard/internal/ollama"
	"github.com/bxu-infra/kml-dashboard/internal/pages"
	"github.com/bxu-infra/kml-dashboard/internal/users"
)

type RouterDeps struct {
	Config *config.Config
	// DB and Redis are optional.
	DB    *sql.DB
	Redis *redis.Client
	// Verifier is required when Config.Auth.Mode is firebase.
	Verifier auth.TokenVerifier
	Relay    *ollama.Client
	Prober   *ollama.Prober
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	cfg := dep.Config

	r := gin.New()
	r.Use(middleware.RequestID(), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))

	renderer := pages.NewRenderer(cfg.App.Version, cfg.App.Name, cfg.KML.PublicDir)
	renderer.Install(r)
	renderer.RegisterStatic(r)

	var db httpapi.Pinger
	if dep.DB != nil {
		db = dep.DB
	}
	healthHandler := httpapi.NewHealthHandler(cfg.App.Name, cfg.App.Version, db, dep.Prober, dep.Relay)
	healthHandler.RegisterRoutes(r)

	catalog := kml.NewCatalog(cfg.KML.PublicDir, cfg.App.URL)
	kmlHandler := kmlhttp.New(catalog)
	kmlHandler.RegisterStatic(r)

	pageRoutes := pages.NewRoutes(renderer, catalog)
	pageRoutes.RegisterPublic(r)

	authChain := authMiddleware(dep)

	protected := r.Group("/", authChain...)
	pageRoutes.RegisterAuthenticated(protected)

	api := r.Group("/api")
	kmlHandler.Register(api)

	var history chat.HistoryStore = chat.NopHistory{}
	if dep.Redis != nil {
		history = chat.NewRedisHistory(dep.Redis, cfg.Chat.HistorySize, cfg.Chat.HistoryTTL)
	}
	chatHandler := chathttp.New(dep.Relay, history, chathttp.NewLimiter(cfg.Chat.RateLimit, cfg.Chat.Burst))
	chatHandler.Register(api.Group("", authChain...))

	return r
}

// authMiddleware builds the "authenticated and verified" chain for the configured mode.
func authMiddleware(dep RouterDeps) []gin.HandlerFunc {
	var chain []gin.HandlerFunc
	if dep.Config.Auth.Mode == config.AuthModeHeader {
		chain = append(chain, auth.HeaderUser())
	} else {
		chain = append(chain, auth.RequireVerified(dep.Verifier))
	}

	if dep.DB != nil {
		chain = append(chain, auth.WithUser(users.NewRepo(dep.DB)))
	}
	return chain
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", pages.HeaderInertia, pages.HeaderInertiaVersion, middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, pages.HeaderInertiaLocation},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cc.AllowAllOrigins = true
			cc.AllowCredentials = false
			return cc
		}
	}
	cc.AllowOrigins = origins
	return cc
}
