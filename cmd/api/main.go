package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grupoandino/stock-engine/internal/application/bom"
	"github.com/grupoandino/stock-engine/internal/application/fulfillment"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/application/mrp"
	"github.com/grupoandino/stock-engine/internal/application/production"
	"github.com/grupoandino/stock-engine/internal/application/reconciliation"
	"github.com/grupoandino/stock-engine/internal/infrastructure/events"
	"github.com/grupoandino/stock-engine/internal/infrastructure/memory"
	"github.com/grupoandino/stock-engine/internal/infrastructure/postgres"
	httpRouter "github.com/grupoandino/stock-engine/internal/interfaces/http"
	"github.com/grupoandino/stock-engine/pkg/config"
	"github.com/grupoandino/stock-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(cfg.App)
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando motor de stock")

	ctx := context.Background()

	// Backing store: PostgreSQL en producción, memoria para desarrollo local.
	var (
		reads    ledger.RepoSet
		txRunner ledger.TxRunner
	)
	switch cfg.Store.Driver {
	case "memory":
		store := memory.NewStore()
		reads = store.Repos()
		txRunner = store.TxRunner()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		reads = postgres.NewRepoSet(pool)
		txRunner = postgres.NewTxRunner(pool)
	}

	emitter := events.NewLogEmitter(log.Component("audit"))
	lockTimeout := time.Duration(cfg.Store.LockTimeoutMS) * time.Millisecond
	stock := ledger.New(txRunner, reads, emitter, lockTimeout)

	bomResolver := bom.NewResolver(reads.BOMs, reads.Items, reads.Materials)
	aggregator := mrp.NewAggregator(reads.Production, reads.Materials)
	productionEngine := production.NewEngine(txRunner, stock, bomResolver, reads.Production)
	tracker := fulfillment.NewTracker(txRunner, stock, reads.Orders, emitter)
	reconEngine := reconciliation.NewEngine(txRunner, stock, reads.Checks, reads.Items, emitter)

	// Si quedó un conteo activo de una corrida anterior, recuperar el guard.
	if err := reconEngine.RestoreActive(); err != nil {
		log.Error().Err(err).Msg("restaurar conteo de inventario activo")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Engine API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Stock:          stock,
		Tracker:        tracker,
		Production:     productionEngine,
		MRP:            aggregator,
		BOMs:           bomResolver,
		Reconciliation: reconEngine,
		JWT:            cfg.JWT,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("motor detenido")
}
