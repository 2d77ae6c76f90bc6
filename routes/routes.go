package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cakeworks/cake-sales/handlers"
	"github.com/cakeworks/cake-sales/middleware"
)

// SetupRoutes defines all the routes for the application.
func SetupRoutes(app *fiber.App, h *handlers.Handler) {
	app.Get("/health", h.HandleHealth)
	app.Get("/version", handlers.HandleVersion)

	api := app.Group("/api/v1")

	// --- Authentication Routes ---
	auth := api.Group("/auth")
	auth.Post("/login", h.HandleLogin)

	// Everything below needs a valid token.
	secured := api.Group("", middleware.JWTMiddleware(h.JWTSecret))

	// Catalog
	secured.Get("/regions", h.HandleListRegions)
	secured.Post("/regions", middleware.ManagerRequired, h.HandleCreateRegion)
	secured.Get("/cake-types", h.HandleListCakeTypes)
	secured.Post("/cake-types", middleware.ManagerRequired, h.HandleCreateCakeType)

	// Sales ledger
	secured.Get("/sales", h.HandleListSales)
	secured.Post("/sales", middleware.SalesEntryRequired, h.HandleRecordSales)
	secured.Post("/sales/sync", middleware.SalesEntryRequired, h.HandleSyncOfflineSales)

	// Reports
	summaries := secured.Group("/summaries")
	summaries.Get("/weekly", h.HandleWeeklySummary)
	summaries.Get("/monthly", h.HandleMonthlySummary)
	summaries.Get("/day-of-week", h.HandleDayOfWeekSummary)
	summaries.Get("/regional", h.HandleRegionalSummary)
	secured.Get("/dashboard", h.HandleDashboard)

	// Forecasting
	fc := secured.Group("/forecast")
	fc.Post("/train", middleware.ManagerRequired, h.HandleTrainForecast)
	fc.Get("/diagnostics", h.HandleForecastDiagnostics)
	fc.Post("/predict", middleware.SalesEntryRequired, h.HandlePredict)

	secured.Get("/predictions", h.HandleListPredictions)
	secured.Get("/predictions/accuracy", h.HandlePredictionAccuracy)

	secured.Get("/recommendations", h.HandleRecommendations)
	secured.Get("/insights", h.HandleInsights)
}
