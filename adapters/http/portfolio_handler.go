package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/portfolio-cms/internal/application/usecase/portfolio"
)

type PortfolioHandler struct {
	useCase *portfolio.PortfolioUseCase
}

func NewPortfolioHandler(uc *portfolio.PortfolioUseCase) *PortfolioHandler {
	return &PortfolioHandler{useCase: uc}
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	snap, err := h.useCase.Execute(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
