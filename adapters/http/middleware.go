package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/application/store"
	"github.com/khoahotran/portfolio-cms/internal/domain/user"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/auth"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

const (
	GinContextKeyUser = "user"
)

// ErrorMiddleware renders the last error a handler attached with c.Error.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.NewInternal("unexpected error", err)
		}
		status := apperror.ToHTTPStatus(appErr)
		if status >= http.StatusInternalServerError {
			log.Error("Request failed", err, zap.String("path", c.FullPath()), zap.Int("status", status))
		}
		c.JSON(status, appErr.ToJSON())
	}
}

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// AuthMiddleware admits requests carrying a valid bearer token whose user is
// the one the session store holds. Signing out revokes every issued token.
func AuthMiddleware(jwtSvc *auth.JWTService, sessions *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortUnauthorized(c, "invalid token format")
			return
		}

		claims, err := jwtSvc.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		st := sessions.Snapshot()
		if st.Loading {
			sessions.GetUser(c.Request.Context())
			st = sessions.Snapshot()
		}
		if st.Data == nil || st.Data.ID != claims.UserID {
			abortUnauthorized(c, "session is no longer active")
			return
		}

		c.Set(GinContextKeyUser, st.Data)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, details string) {
	_ = c.Error(apperror.NewUnauthorized(details, nil))
	c.Abort()
}

func GetUserFromGinContext(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(GinContextKeyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok
}
