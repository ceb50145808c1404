package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sellerdash/backend/internal/application/dashboard"
	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

// DashboardService answers the dashboard read queries
type DashboardService interface {
	SalesSummary(ctx context.Context, filter dashboard.Filter) (*dashboard.SalesSummary, error)
	DailyTrend(ctx context.Context, filter dashboard.Filter) (*dashboard.SalesTrend, error)
	ListRates(ctx context.Context, month sales.Month) ([]sales.ExchangeRate, error)
	ListShops(ctx context.Context) ([]sales.Shop, error)
}

// SalesHandler serves the dashboard read endpoints
type SalesHandler struct {
	BaseHandler
	dashboard DashboardService
}

// NewSalesHandler creates a SalesHandler
func NewSalesHandler(svc DashboardService) *SalesHandler {
	return &SalesHandler{dashboard: svc}
}

func (h *SalesHandler) bindFilter(c *gin.Context) (dashboard.Filter, bool) {
	var q dto.RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return dashboard.Filter{}, false
	}
	start, end, err := dto.ParseRange(q.StartDate, q.EndDate)
	if err != nil {
		h.HandleError(c, err)
		return dashboard.Filter{}, false
	}
	return dashboard.Filter{StartDate: start, EndDate: end, SellerIDs: q.SellerIDs}, true
}

// Summary godoc
// @ID           getSalesSummary
// @Summary      Sales totals per shop and month
// @Description  Native currency totals plus conversions to the base currency
// @Tags         sales
// @Produce      json
// @Param        start_date query string   true  "First day, YYYY-MM-DD"
// @Param        end_date   query string   true  "Last day, YYYY-MM-DD"
// @Param        seller_id  query []string false "Restrict to these shops" collectionFormat(multi)
// @Success      200 {object} dto.Response{data=dashboard.SalesSummary}
// @Failure      400 {object} dto.Response
// @Router       /sales/summary [get]
func (h *SalesHandler) Summary(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	summary, err := h.dashboard.SalesSummary(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Trend godoc
// @ID           getSalesTrend
// @Summary      Daily sales in the base currency
// @Tags         sales
// @Produce      json
// @Param        start_date query string   true  "First day, YYYY-MM-DD"
// @Param        end_date   query string   true  "Last day, YYYY-MM-DD"
// @Param        seller_id  query []string false "Restrict to these shops" collectionFormat(multi)
// @Success      200 {object} dto.Response{data=dashboard.SalesTrend}
// @Failure      400 {object} dto.Response
// @Router       /sales/trend [get]
func (h *SalesHandler) Trend(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	trend, err := h.dashboard.DailyTrend(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trend)
}

// Rates godoc
// @ID           listExchangeRates
// @Summary      Exchange rates of a month
// @Tags         sales
// @Produce      json
// @Param        month query string true "Month, YYYY-MM"
// @Success      200 {object} dto.Response{data=[]dto.ExchangeRateResponse}
// @Failure      400 {object} dto.Response
// @Router       /exchange-rates [get]
func (h *SalesHandler) Rates(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	month, err := sales.ParseMonth(q.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rates, err := h.dashboard.ListRates(c.Request.Context(), month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, dto.ToExchangeRateResponses(rates), len(rates), 0)
}

// Shops godoc
// @ID           listShops
// @Summary      Known shops
// @Tags         sales
// @Produce      json
// @Success      200 {object} dto.Response{data=[]dto.ShopResponse}
// @Router       /shops [get]
func (h *SalesHandler) Shops(c *gin.Context) {
	shops, err := h.dashboard.ListShops(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, dto.ToShopResponses(shops), len(shops), 0)
}
