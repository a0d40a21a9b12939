package handlers

import (
	"dmis/internal/middleware"

	"github.com/labstack/echo/v4"
)

// Read permissions checked at the route. Workflow writes are authorized by
// the services themselves.
const (
	PermNeedsListView = "needs_list.view"
	PermEventView     = "event.view"
	PermWarehouseView = "warehouse.view"
	PermWarehouseSync = "warehouse.sync"
	PermAuditView     = "audit.view"
	PermSystemJobs    = "system.jobs"
)

// API groups every handler served under the versioned prefix.
type API struct {
	NeedsLists *NeedsListHandlers
	Planning   *PlanningHandlers
	Freshness  *FreshnessHandlers
	Events     *EventHandlers
	Warehouses *WarehouseHandlers
	Audit      *AuditLogsHandlers
	Jobs       *JobHandlers
}

// RegisterRoutes mounts the authenticated API on g. Jobs may be nil when the
// scheduler is disabled.
func RegisterRoutes(g *echo.Group, api API, rbac *middleware.RBACMiddleware) {
	view := rbac.RequirePermission(PermNeedsListView)

	lists := g.Group("/needs-lists")
	lists.GET("", api.NeedsLists.ListNeedsLists, view)
	lists.GET("/:id", api.NeedsLists.GetNeedsList, view)
	lists.GET("/:id/history", api.NeedsLists.History, view)
	lists.POST("/:id/transitions", api.NeedsLists.TransitionNeedsList)
	lists.PATCH("/:id/items/:itemId", api.NeedsLists.AdjustItem)
	lists.POST("/:id/export", api.NeedsLists.Export)

	g.POST("/planning-runs", api.Planning.CreatePlanningRun)

	g.GET("/freshness", api.Freshness.GetFreshness, view)
	g.POST("/freshness/refresh", api.Freshness.RefreshFreshness, view)

	events := g.Group("/events")
	events.GET("", api.Events.ListActiveEvents, rbac.RequirePermission(PermEventView))
	events.GET("/:id", api.Events.GetEvent, rbac.RequirePermission(PermEventView))
	events.POST("/:id/phase", api.Events.TransitionPhase)

	warehouses := g.Group("/warehouses")
	warehouses.GET("", api.Warehouses.ListWarehouses, rbac.RequirePermission(PermWarehouseView))
	warehouses.GET("/:id", api.Warehouses.GetWarehouse, rbac.RequirePermission(PermWarehouseView))
	warehouses.GET("/:id/syncs", api.Warehouses.ListSyncs, rbac.RequirePermission(PermWarehouseView))
	warehouses.POST("/:id/syncs", api.Warehouses.RecordSync, rbac.RequirePermission(PermWarehouseSync))

	g.GET("/audit-entries", api.Audit.ListAuditEntries, rbac.RequirePermission(PermAuditView))

	if api.Jobs != nil {
		jobs := g.Group("/jobs", rbac.RequirePermission(PermSystemJobs))
		jobs.GET("", api.Jobs.GetJobStatus)
		jobs.POST("/:name/run", api.Jobs.RunJob)
	}
}
