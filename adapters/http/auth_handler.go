package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/portfolio-cms/internal/application/schema"
	"github.com/khoahotran/portfolio-cms/internal/application/store"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
)

type AuthHandler struct {
	sessions *store.SessionStore
}

func NewAuthHandler(sessions *store.SessionStore) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req schema.SignInForm
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewInvalidInput("invalid input", err))
		return
	}
	if err := schema.Validate(req); err != nil {
		_ = c.Error(err)
		return
	}

	res := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if !res.OK() {
		_ = c.Error(apperror.NewUnauthorized(res.Error, nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":         ToUserDTO(res.User),
		"access_token": res.AccessToken,
		"expires_at":   res.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.SignOut(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// Me re-reads the session from the provider.
func (h *AuthHandler) Me(c *gin.Context) {
	h.sessions.GetUser(c.Request.Context())
	c.JSON(http.StatusOK, ToSessionDTO(h.sessions.Snapshot()))
}
