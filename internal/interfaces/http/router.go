package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grupoandino/stock-engine/internal/application/bom"
	"github.com/grupoandino/stock-engine/internal/application/fulfillment"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/application/mrp"
	"github.com/grupoandino/stock-engine/internal/application/production"
	"github.com/grupoandino/stock-engine/internal/application/reconciliation"
	"github.com/grupoandino/stock-engine/pkg/config"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stock          *ledger.Ledger
	Tracker        *fulfillment.Tracker
	Production     *production.Engine
	MRP            *mrp.Aggregator
	BOMs           *bom.Resolver
	Reconciliation *reconciliation.Engine
	JWT            config.JWTConfig
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (solo desarrollo; los tokens reales los emite el módulo de usuarios)
	if deps.JWT.DevTokens {
		authHandler := NewAuthHandler(deps.JWT)
		api.Post("/auth/token", authHandler.Token)
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWT.Secret))

	// Stock ledger (protegido)
	stock := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Stock)
	stock.Post("/adjustments", stockHandler.Adjust)
	stock.Get("/:class/:id", stockHandler.Get)
	stock.Get("/:class/:id/movements", stockHandler.Movements)

	// Sales orders (protegido)
	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.Tracker)
	orders.Post("/", orderHandler.Create)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Post("/:id/items", orderHandler.AddItem)
	orders.Delete("/:id/items/:itemId", orderHandler.RemoveItem)
	orders.Get("/:id/shortage", orderHandler.Shortage)
	orders.Post("/:id/items/:itemId/assemble", orderHandler.AssembleItem)
	orders.Post("/:id/status", orderHandler.SetStatus)
	// La reasignación por prioridad queda restringida a admin/supervisor.
	orders.Post("/:id/seize", RequireRole("admin", "supervisor"), orderHandler.Seize)

	// Production + MRP (protegido)
	productionHandler := NewProductionHandler(deps.Production, deps.MRP)
	po := protected.Group("/production-orders")
	po.Post("/", productionHandler.Create)
	po.Get("/", productionHandler.List)
	po.Get("/:id", productionHandler.GetByID)
	po.Post("/:id/output", productionHandler.ReportOutput)
	po.Post("/:id/cancel", productionHandler.Cancel)
	protected.Get("/production/requirements", productionHandler.Requirements)

	// BOMs (protegido)
	boms := protected.Group("/boms")
	bomHandler := NewBOMHandler(deps.BOMs)
	boms.Get("/:productId", bomHandler.GetLatest)
	boms.Get("/:productId/versions", bomHandler.Versions)
	boms.Put("/:productId", bomHandler.Save)

	// Inventory checks (protegido)
	checks := protected.Group("/inventory-checks")
	checkHandler := NewCheckHandler(deps.Reconciliation)
	checks.Post("/", checkHandler.Create)
	checks.Get("/active", checkHandler.GetActive)
	checks.Get("/:id", checkHandler.GetByID)
	checks.Post("/:id/counts", checkHandler.RecordCount)
	checks.Post("/:id/review", checkHandler.EnterReview)
	checks.Post("/:id/complete", checkHandler.Complete)
	checks.Post("/:id/cancel", checkHandler.Cancel)
}
