package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/portfolio-cms/internal/application/usecase/backup"
)

type BackupHandler struct {
	useCase *backup.BackupUseCase
}

func NewBackupHandler(uc *backup.BackupUseCase) *BackupHandler {
	return &BackupHandler{useCase: uc}
}

func (h *BackupHandler) CreateBackup(c *gin.Context) {
	res, err := h.useCase.Execute(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
