package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/portfolio-cms/internal/application/store"
	"github.com/khoahotran/portfolio-cms/internal/domain/user"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
)

type UserDTO struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

func ToUserDTO(u *user.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{ID: u.ID.String(), Email: u.Email, Name: u.Name}
}

type SessionDTO struct {
	User    *UserDTO `json:"user"`
	Loading bool     `json:"loading"`
	Error   string   `json:"error,omitempty"`
}

func ToSessionDTO(st store.State[*user.User]) SessionDTO {
	return SessionDTO{User: ToUserDTO(st.Data), Loading: st.Loading, Error: st.Error}
}

// respondWrite answers a store write. Failures are rendered from the result,
// never from st, which a concurrent request may have reset.
func respondWrite[T any](c *gin.Context, res store.WriteResult, st store.State[T]) {
	switch {
	case !res.OK():
		_ = c.Error(apperror.NewUpstream(res.Error))
	case res.Status == http.StatusNoContent:
		c.Status(res.Status)
	default:
		c.JSON(res.Status, st)
	}
}
