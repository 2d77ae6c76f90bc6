package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/cakeworks/cake-sales/config"
	"github.com/cakeworks/cake-sales/database"
	"github.com/cakeworks/cake-sales/database/postgres"
	"github.com/cakeworks/cake-sales/database/sqlite"
	"github.com/cakeworks/cake-sales/forecast"
	"github.com/cakeworks/cake-sales/handlers"
	"github.com/cakeworks/cake-sales/insights"
	"github.com/cakeworks/cake-sales/ledger"
	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/middleware"
	"github.com/cakeworks/cake-sales/predictlog"
	"github.com/cakeworks/cake-sales/recommender"
	"github.com/cakeworks/cake-sales/routes"
	"github.com/cakeworks/cake-sales/summary"
)

func usage() {
	fmt.Println("usage: cake-sales [options]")
	flag.PrintDefaults()
}

var (
	addr     = flag.String("addr", "", "address to serve (default \":$PORT\")")
	seedDemo = flag.Bool("seed-demo", false, "append a month of generated demo sales (April 2023) and train once")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Unable to build logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("unable to open store", "error", err)
	}
	defer store.Close()

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		lg.Fatal("unable to load catalog", "error", err)
	}
	if len(catalog.Users) == 0 {
		lg.Warn("catalog has no users; every authenticated route is unreachable")
	}

	l := ledger.New(store, lg)
	for _, r := range catalog.Regions {
		if _, err := l.EnsureRegion(ctx, r); err != nil {
			lg.Fatal("unable to register region", "region", r, "error", err)
		}
	}
	for _, c := range catalog.CakeTypes {
		if _, err := l.EnsureCakeType(ctx, c); err != nil {
			lg.Fatal("unable to register cake type", "cake_type", c, "error", err)
		}
	}

	agg := summary.New(l)
	fc := forecast.New(l,
		forecast.WithSeed(cfg.ForecastSeed),
		forecast.WithTrees(cfg.ForecastTrees),
		forecast.WithLogger(lg),
	)
	rec := recommender.New(l)

	if *seedDemo {
		from := civil.Date{Year: 2023, Month: time.April, Day: 1}
		to := civil.Date{Year: 2023, Month: time.April, Day: 30}
		if _, err := l.SeedDemo(ctx, from, to, cfg.ForecastSeed); err != nil {
			lg.Fatal("unable to seed demo sales", "error", err)
		}
		if _, err := fc.Train(ctx); err != nil {
			lg.Fatal("unable to train on demo sales", "error", err)
		}
	}

	var gen insights.Generator
	if cfg.GeminiAPIKey != "" {
		gen = insights.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		lg.Info("GEMINI_API_KEY is not set; AI insights are disabled")
	}

	h := &handlers.Handler{
		Ledger:      l,
		Summary:     agg,
		Forecaster:  fc,
		Recommender: rec,
		Predictions: predictlog.New(store, l, lg),
		Insights:    insights.NewService(agg, rec, fc, gen, lg),
		Catalog:     catalog,
		JWTSecret:   []byte(cfg.JWTSecret),
		Log:         lg,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())
	app.Use(middleware.RequestLogger(lg))
	routes.SetupRoutes(app, h)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			lg.Error("shutdown failed", "error", err)
		}
	}()

	listen := *addr
	if listen == "" {
		listen = ":" + cfg.Port
	}
	lg.Info("serving", "addr", listen, "store", storeKind(cfg.DatabaseURL))
	if err := app.Listen(listen); err != nil {
		lg.Fatal("server stopped", "error", err)
	}
}

// openStore picks the backend from the scheme of url: "memory", "sqlite://<path>" or a postgres URL.
func openStore(ctx context.Context, url string, lg *logger.Logger) (database.Store, error) {
	switch storeKind(url) {
	case "memory":
		return database.NewMemoryStore(), nil
	case "sqlite":
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			path = sqlite.MemoryPath
		}
		return sqlite.Open(path, lg)
	case "postgres":
		return postgres.Connect(ctx, url, lg)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL %q", url)
	}
}

func storeKind(url string) string {
	switch {
	case url == "" || url == "memory":
		return "memory"
	case strings.HasPrefix(url, "sqlite://"):
		return "sqlite"
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres"
	default:
		return "unknown"
	}
}
