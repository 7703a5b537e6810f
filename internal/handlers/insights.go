package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"helpdesk-insights-be/internal/insights"
	"helpdesk-insights-be/internal/logger"
	"helpdesk-insights-be/internal/models"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// ReportProvider builds insights reports.
type ReportProvider interface {
	Build(ctx context.Context, f insights.Filters) (*insights.Report, error)
	BusinessHours(ctx context.Context, f insights.Filters) (*insights.Report, error)
	MergedReasons(ctx context.Context, f insights.Filters) ([]insights.ReasonCount, error)
	GroupReasons(ctx context.Context, reasons []insights.ReasonCount) insights.ClusterResult
	BuildFromSnapshot(ctx context.Context, req models.ReportSnapshotRequest) *insights.Report
}

type InsightsHandler struct {
	reports ReportProvider
	log     logger.Logger
}

func NewInsightsHandler(reports ReportProvider, log logger.Logger) *InsightsHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &InsightsHandler{reports: reports, log: log}
}

// GetReport godoc
// @Summary Contact timing and reasons report
// @Description Hour-of-day histogram, business/off-hours/weekend summary, ranked contact reasons and reason categories
// @Tags insights
// @Security ApiKeyAuth
// @Produce json
// @Param period query string false "Time period: 7d, 15d, 30d, 60d, 90d" default(30d)
// @Param inboxId query string false "Restrict to one inbox"
// @Param instanceId query string false "Restrict to one instance"
// @Success 200 {object} insights.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /insights/report [get]
func (h *InsightsHandler) GetReport(c *gin.Context) {
	filters, _, err := filtersFromQuery(c)
	if err != nil {
		validationError(c, err)
		return
	}

	report, err := h.reports.Build(c.Request.Context(), filters)
	if err != nil {
		h.serverError(c, "Failed to build report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// BuildReport godoc
// @Summary Report from a data snapshot
// @Description Builds the report from caller-supplied messages, reasons and inboxes. Messages with invalid timestamps are skipped and counted.
// @Tags insights
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param payload body models.ReportSnapshotRequest true "Snapshot"
// @Success 200 {object} insights.Report
// @Failure 400 {object} models.ErrorResponse
// @Router /insights/report [post]
func (h *InsightsHandler) BuildReport(c *gin.Context) {
	var req models.ReportSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.reports.BuildFromSnapshot(c.Request.Context(), req))
}

// GetBusinessHours godoc
// @Summary Business hours breakdown
// @Description Incoming messages per local hour and per business/off-hours/weekend period
// @Tags insights
// @Security ApiKeyAuth
// @Produce json
// @Param period query string false "Time period: 7d, 15d, 30d, 60d, 90d" default(30d)
// @Param inboxId query string false "Restrict to one inbox"
// @Param instanceId query string false "Restrict to one instance"
// @Success 200 {object} models.BusinessHoursResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /insights/business-hours [get]
func (h *InsightsHandler) GetBusinessHours(c *gin.Context) {
	filters, period, err := filtersFromQuery(c)
	if err != nil {
		validationError(c, err)
		return
	}

	report, err := h.reports.BusinessHours(c.Request.Context(), filters)
	if err != nil {
		h.serverError(c, "Failed to load messages", err)
		return
	}

	s := report.Summary
	c.JSON(http.StatusOK, models.BusinessHoursResponse{
		Hourly:          report.Hourly,
		Summary:         s,
		BusinessPct:     s.Percent(s.Business),
		OffHoursPct:     s.Percent(s.OffHours),
		WeekendPct:      s.Percent(s.Weekend),
		SkippedMessages: report.SkippedMessages,
		Period:          period,
	})
}

// reasonSource adapts a ranked list to fuzzy.Source.
type reasonSource []insights.ReasonCount

func (s reasonSource) String(i int) string { return s[i].Reason }
func (s reasonSource) Len() int            { return len(s) }

// SearchReasons godoc
// @Summary Fuzzy search over contact reasons
// @Tags insights
// @Security ApiKeyAuth
// @Produce json
// @Param q query string true "Search text"
// @Param limit query int false "Max results (1-50)" default(10)
// @Param period query string false "Time period: 7d, 15d, 30d, 60d, 90d" default(30d)
// @Success 200 {object} models.ReasonSearchResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /insights/reasons/search [get]
func (h *InsightsHandler) SearchReasons(c *gin.Context) {
	query := insights.NormalizeReason(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "q is required",
		})
		return
	}
	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation_error",
				Message: "limit must be between 1 and 50",
			})
			return
		}
		limit = n
	}
	filters, period, err := filtersFromQuery(c)
	if err != nil {
		validationError(c, err)
		return
	}

	reasons, err := h.reports.MergedReasons(c.Request.Context(), filters)
	if err != nil {
		h.serverError(c, "Failed to load reasons", err)
		return
	}

	found := fuzzy.FindFrom(query, reasonSource(reasons))
	matches := make([]models.ReasonMatch, 0, min(limit, len(found)))
	for _, m := range found {
		if len(matches) == limit {
			break
		}
		matches = append(matches, models.ReasonMatch{
			Reason:  m.Str,
			Count:   reasons[m.Index].Count,
			Score:   m.Score,
			Matched: m.MatchedIndexes,
		})
	}

	c.JSON(http.StatusOK, models.ReasonSearchResponse{
		Query:   query,
		Matches: matches,
		Period:  period,
	})
}

// GroupReasons godoc
// @Summary Group reasons into categories
// @Description Lists of 3 or fewer reasons are returned unchanged. When classification is unavailable every reason becomes its own category.
// @Tags insights
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param payload body models.GroupReasonsRequest true "Ranked reasons"
// @Success 200 {object} models.GroupReasonsResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /insights/group-reasons [post]
func (h *InsightsHandler) GroupReasons(c *gin.Context) {
	var req models.GroupReasonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}
	for _, r := range req.Reasons {
		if strings.TrimSpace(r.Reason) == "" || r.Count <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation_error",
				Message: "every reason needs text and a positive count",
			})
			return
		}
	}
	if len(req.Reasons) == 0 {
		c.JSON(http.StatusOK, models.GroupReasonsResponse{Grouped: []insights.Category{}})
		return
	}

	result := h.reports.GroupReasons(c.Request.Context(), req.Reasons)
	c.JSON(http.StatusOK, models.GroupReasonsResponse{Grouped: result.Categories})
}

func validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

func (h *InsightsHandler) serverError(c *gin.Context, msg string, err error) {
	logger.FromContext(c.Request.Context(), h.log).Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "server_error",
		Message: msg,
	})
}
