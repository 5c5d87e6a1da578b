package controller

import (
	"touchflow/models"
	"touchflow/utils"

	"github.com/gofiber/fiber/v2"
)

// GetConversionFunnel counts stage entries per canonical stage within
// the window, with drop-off and stage-to-stage conversion rates.
func (rc *ReportController) GetConversionFunnel(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	days := utils.QueryIntDefault(c, "days", 30)

	var cached []models.FunnelStage
	key := rc.Cache.Key(business.ID, "funnel", days)
	if rc.Cache.Get(c.Context(), key, &cached) {
		return c.JSON(utils.SuccessResponse(cached))
	}

	transitions, err := models.ListTransitionsSince(rc.DB, business.ID, daysAgo(days))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch transitions", err)
	}

	funnel := models.BuildConversionFunnel(transitions)
	rc.Cache.Set(c.Context(), key, funnel)
	return c.JSON(utils.SuccessResponse(funnel))
}

// GetDropoffAnalysis scores every observed stage-to-stage transition
// pair and flags low-forward-rate pairs as bottlenecks.
func (rc *ReportController) GetDropoffAnalysis(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)
	days := utils.QueryIntDefault(c, "days", 30)

	var cached models.DropoffAnalysis
	key := rc.Cache.Key(business.ID, "dropoff", days)
	if rc.Cache.Get(c.Context(), key, &cached) {
		return c.JSON(utils.SuccessResponse(cached))
	}

	transitions, err := models.ListTransitionsSince(rc.DB, business.ID, daysAgo(days))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch transitions", err)
	}

	analysis := models.BuildDropoffAnalysis(transitions)
	rc.Cache.Set(c.Context(), key, analysis)
	return c.JSON(utils.SuccessResponse(analysis))
}

// GetOptimizationSuggestions runs the rule-based heuristics over
// current stage headcounts and last-30-day channel diversity.
func (rc *ReportController) GetOptimizationSuggestions(c *fiber.Ctx) error {
	business := c.Locals("business").(*models.Business)

	stageCounts, err := models.CountOpenStages(rc.DB, business.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count stages", err)
	}

	tps, err := models.ListTouchpointsSince(rc.DB, business.ID, daysAgo(30))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch touchpoints", err)
	}
	channels := make(map[string]struct{})
	for _, tp := range tps {
		channels[tp.Channel] = struct{}{}
	}

	suggestions := models.BuildOptimizationSuggestions(stageCounts, len(channels))
	return c.JSON(utils.SuccessResponse(suggestions))
}
