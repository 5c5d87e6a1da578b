package controller

import (
	"errors"
	"time"

	"touchflow/models"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportController serves the read-only projections. Reports never
// mutate anything and run concurrently with the write paths; when
// Redis is enabled, responses are cached for a short TTL.
type ReportController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Cache  *utils.ReportCache
}

func NewReportController(db *gorm.DB, logger *logrus.Logger, cache *utils.ReportCache) *ReportController {
	return &ReportController{
		DB:     db,
		Logger: logger,
		Cache:  cache,
	}
}

func daysAgo(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}

// GetAttributionReport sums credited revenue per channel for one model
// over a trailing window. Model defaults to linear, days to 30.
func (rc *ReportController) GetAttributionReport(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	model := c.Query("model", models.ModelLinear)
	days := utils.QueryIntDefault(c, "days", 30)

	var cached models.AttributionReport
	key := rc.Cache.Key(business.ID, "attribution", model, days)
	if rc.Cache.Get(c.Context(), key, &cached) {
		return c.JSON(utils.SuccessResponse(cached))
	}

	convs, err := models.ListConversionsSince(rc.DB, business.ID, daysAgo(days))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversions", err)
	}

	report, err := models.BuildAttributionReport(convs, model)
	if err != nil {
		if errors.Is(err, models.ErrInvalidModel) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown attribution model", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build report", err)
	}

	rc.Cache.Set(c.Context(), key, report)
	return c.JSON(utils.SuccessResponse(report))
}

// GetChannelROI derives cost, profit, ROI and CPA per channel from the
// linear-model revenue baseline and the fixed unit-cost table.
func (rc *ReportController) GetChannelROI(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	days := utils.QueryIntDefault(c, "days", 30)

	var cached []models.ChannelROI
	key := rc.Cache.Key(business.ID, "roi", days)
	if rc.Cache.Get(c.Context(), key, &cached) {
		return c.JSON(utils.SuccessResponse(cached))
	}

	convs, err := models.ListConversionsSince(rc.DB, business.ID, daysAgo(days))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversions", err)
	}

	rois := models.BuildChannelROI(convs)
	rc.Cache.Set(c.Context(), key, rois)
	return c.JSON(utils.SuccessResponse(rois))
}

// GetMultiTouchComparison returns all five models' channel totals side
// by side.
func (rc *ReportController) GetMultiTouchComparison(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	days := utils.QueryIntDefault(c, "days", 30)

	var cached map[string]map[string]float64
	key := rc.Cache.Key(business.ID, "comparison", days)
	if rc.Cache.Get(c.Context(), key, &cached) {
		return c.JSON(utils.SuccessResponse(cached))
	}

	convs, err := models.ListConversionsSince(rc.DB, business.ID, daysAgo(days))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversions", err)
	}

	comparison := models.BuildModelComparison(convs)
	rc.Cache.Set(c.Context(), key, comparison)
	return c.JSON(utils.SuccessResponse(comparison))
}

// GetCustomerJourneys ranks the most frequent converting channel
// paths.
func (rc *ReportController) GetCustomerJourneys(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	days := utils.QueryIntDefault(c, "days", 30)
	limit := utils.QueryIntDefault(c, "limit", 10)

	var cached []models.JourneyPath
	key := rc.Cache.Key(business.ID, "journeys", days, limit)
	if rc.Cache.Get(c.Context(), key, &cached) {
		return c.JSON(utils.SuccessResponse(cached))
	}

	convs, err := models.ListConversionsSince(rc.DB, business.ID, daysAgo(days))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversions", err)
	}

	touchpointsByContact := make(map[uint][]models.Touchpoint)
	for _, conv := range convs {
		if _, ok := touchpointsByContact[conv.ContactID]; ok {
			continue
		}
		tps, err := models.ListTouchpoints(rc.DB, business.ID, conv.ContactID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch touchpoints", err)
		}
		touchpointsByContact[conv.ContactID] = tps
	}

	paths := models.BuildJourneyPaths(convs, touchpointsByContact, limit)
	rc.Cache.Set(c.Context(), key, paths)
	return c.JSON(utils.SuccessResponse(paths))
}

// GetChannelTrends returns per-day per-channel linear-model revenue
// for time-series charting.
func (rc *ReportController) GetChannelTrends(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	days := utils.QueryIntDefault(c, "days", 30)

	var cached []models.TrendPoint
	key := rc.Cache.Key(business.ID, "trends", days)
	if rc.Cache.Get(c.Context(), key, &cached) {
		return c.JSON(utils.SuccessResponse(cached))
	}

	convs, err := models.ListConversionsSince(rc.DB, business.ID, daysAgo(days))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversions", err)
	}

	trends := models.BuildChannelTrends(convs)
	rc.Cache.Set(c.Context(), key, trends)
	return c.JSON(utils.SuccessResponse(trends))
}

// GetRevenueForecast projects daily revenue forward from a 90-day
// lookback. Under 7 days of history it returns a tagged
// insufficient_data result, not an error.
func (rc *ReportController) GetRevenueForecast(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	forecastDays := utils.QueryIntDefault(c, "forecast_days", 30)

	var cached models.RevenueForecast
	key := rc.Cache.Key(business.ID, "forecast", forecastDays)
	if rc.Cache.Get(c.Context(), key, &cached) {
		return c.JSON(utils.SuccessResponse(cached))
	}

	convs, err := models.ListConversionsSince(rc.DB, business.ID, daysAgo(90))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversions", err)
	}

	forecast := models.BuildRevenueForecast(convs, forecastDays, time.Now())
	rc.Cache.Set(c.Context(), key, forecast)
	return c.JSON(utils.SuccessResponse(forecast))
}
