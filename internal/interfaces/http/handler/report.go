package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/storage"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

// ReportHandler hands out download links for exported monthly reports
type ReportHandler struct {
	BaseHandler
	store     storage.ReportStore
	expiresIn time.Duration
}

// NewReportHandler creates a ReportHandler. Links expire after expiresIn.
func NewReportHandler(store storage.ReportStore, expiresIn time.Duration) *ReportHandler {
	return &ReportHandler{store: store, expiresIn: expiresIn}
}

// MonthlySalesURL godoc
// @ID           getMonthlySalesReportURL
// @Summary      Download link of a monthly sales report
// @Tags         reports
// @Produce      json
// @Param        month path string true "Month, YYYY-MM"
// @Success      200 {object} dto.Response{data=dto.ReportURLResponse}
// @Failure      404 {object} dto.Response
// @Router       /reports/sales/{month} [get]
func (h *ReportHandler) MonthlySalesURL(c *gin.Context) {
	var uri dto.MonthURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}
	month, err := sales.ParseMonth(uri.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	url, expiresAt, err := h.store.ReportURL(c.Request.Context(), month, h.expiresIn)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ReportURLResponse{Month: month, URL: url, ExpiresAt: expiresAt})
}
