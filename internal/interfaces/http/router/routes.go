package router

import (
	"github.com/gin-gonic/gin"

	"github.com/sellerdash/backend/internal/interfaces/http/handler"
)

// Handlers bundles the API handlers. Report may be nil when storage is disabled.
type Handlers struct {
	Sync   *handler.SyncHandler
	Sales  *handler.SalesHandler
	Report *handler.ReportHandler
}

// SyncRoutes groups the sync endpoints. writeGuards run before the routes that start syncs.
func SyncRoutes(h *handler.SyncHandler, writeGuards ...gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("sync", "/sync")
	g.POST("", guarded(writeGuards, h.RunSync)...)
	g.POST("/jobs", guarded(writeGuards, h.EnqueueSync)...)
	g.GET("/jobs", h.ListJobs)
	g.GET("/runs", h.ListRuns)
	g.GET("/missing-months", h.MissingMonths)
	return g
}

// SalesRoutes groups the dashboard read endpoints
func SalesRoutes(h *handler.SalesHandler) *DomainGroup {
	g := NewDomainGroup("sales", "")
	g.GET("/sales/summary", h.Summary)
	g.GET("/sales/trend", h.Trend)
	g.GET("/exchange-rates", h.Rates)
	g.GET("/shops", h.Shops)
	return g
}

// ReportRoutes groups the report download endpoints
func ReportRoutes(h *handler.ReportHandler) *DomainGroup {
	g := NewDomainGroup("reports", "/reports")
	g.GET("/sales/:month", h.MonthlySalesURL)
	return g
}

// RegisterAPI registers every API area on r. Nil guards are ignored.
func RegisterAPI(r *Router, h Handlers, writeGuards ...gin.HandlerFunc) {
	r.Register(SyncRoutes(h.Sync, writeGuards...))
	r.Register(SalesRoutes(h.Sales))
	if h.Report != nil {
		r.Register(ReportRoutes(h.Report))
	}
}

func guarded(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(guards)+1)
	for _, g := range guards {
		if g != nil {
			chain = append(chain, g)
		}
	}
	return append(chain, h)
}
