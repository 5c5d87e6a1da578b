package routes

import (
	controller "touchflow/controllers"
	"touchflow/middleware"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, log *logrus.Logger) {
	// Public token exchange
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	auth.Post("/token", controller.IssueToken)

	// Controllers
	contactController := controller.NewContactController(db, log)
	touchpointController := controller.NewTouchpointController(db, log)
	conversionController := controller.NewConversionController(db, log)
	journeyController := controller.NewJourneyController(db, log)
	reportController := controller.NewReportController(db, log, utils.NewReportCache())

	// API group with versioning and tenant resolution
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Contact routes
	contacts := api.Group("/contacts")
	contacts.Post("/", contactController.CreateContact)
	contacts.Get("/", contactController.GetContacts)
	contacts.Get("/:contactID", contactController.GetContact)
	contacts.Get("/:contactID/touchpoints", touchpointController.GetContactTouchpoints)

	// Touchpoint routes
	api.Post("/touchpoints", touchpointController.RecordTouchpoint)

	// Conversion routes
	api.Post("/conversions", conversionController.RecordConversion)
	api.Get("/conversions", conversionController.GetConversions)

	// Journey routes
	journey := api.Group("/journey")
	journey.Post("/stage", journeyController.TrackStage)
	journey.Post("/move", journeyController.MoveContactToStage)
	journey.Post("/auto-advance", journeyController.RunAutoAdvancement)
	journey.Get("/:contactID/current", journeyController.GetCurrentStage)
	journey.Get("/:contactID/history", journeyController.GetJourneyHistory)

	// Reporting routes
	reports := api.Group("/reports")
	reports.Get("/attribution", reportController.GetAttributionReport)
	reports.Get("/roi", reportController.GetChannelROI)
	reports.Get("/comparison", reportController.GetMultiTouchComparison)
	reports.Get("/journeys", reportController.GetCustomerJourneys)
	reports.Get("/trends", reportController.GetChannelTrends)
	reports.Get("/forecast", reportController.GetRevenueForecast)
	reports.Get("/funnel", reportController.GetConversionFunnel)
	reports.Get("/dropoff", reportController.GetDropoffAnalysis)
	reports.Get("/suggestions", reportController.GetOptimizationSuggestions)

	log.Info("Routes initialized successfully")
}
