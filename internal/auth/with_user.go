package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bxu-infra/kml-dashboard/internal/logging"
	"github.com/bxu-infra/kml-dashboard/internal/users"
)

type UserEnsurer interface {
	EnsureUser(ctx context.Context, u users.UpsertUser) (string, error)
}

// WithUser records the authenticated account in the users table. It must run after
// RequireVerified or HeaderUser.
func WithUser(repo UserEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuid := UserFirebaseUID(c)
		if fuid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		id, err := repo.EnsureUser(c.Request.Context(), users.UpsertUser{
			FirebaseUID: fuid,
			Email:       UserEmail(c),
		})
		if err != nil {
			logging.New(c.Request.Context()).Error("ensure_user", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}

		c.Set(CtxUserDBID, id)
		c.Next()
	}
}
