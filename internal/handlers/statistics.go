package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"helpdesk-insights-be/internal/logger"
	"helpdesk-insights-be/internal/models"
	"helpdesk-insights-be/internal/repository"
)

const topInboxesLimit = 10

// StatisticsStore aggregates dashboard statistics.
type StatisticsStore interface {
	GetMessageTrend(ctx context.Context, w repository.Window) ([]models.TrendPoint, error)
	GetTopInboxes(ctx context.Context, w repository.Window, limit int) ([]models.TopInbox, error)
	GetTotals(ctx context.Context, w repository.Window) (messages int, conversations int, err error)
}

// InboxLister lists the inboxes of an instance.
type InboxLister interface {
	ListByInstance(ctx context.Context, instanceID string) ([]models.Inbox, error)
}

type StatisticsHandler struct {
	repo    StatisticsStore
	inboxes InboxLister
	log     logger.Logger
	now     func() time.Time
}

func NewStatisticsHandler(repo StatisticsStore, inboxes InboxLister, log logger.Logger) *StatisticsHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &StatisticsHandler{repo: repo, inboxes: inboxes, log: log, now: time.Now}
}

// GetStatistics godoc
// @Summary Get dashboard statistics
// @Description Returns the daily incoming message trend, top inboxes by conversation volume and totals
// @Tags statistics
// @Security ApiKeyAuth
// @Param period query string false "Time period: 7d, 15d, 30d, 60d, 90d" default(30d)
// @Param inboxId query string false "Restrict to one inbox"
// @Param instanceId query string false "Restrict to one instance"
// @Success 200 {object} models.StatisticsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	if _, exists := c.Get("userID"); !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
		return
	}

	filters, period, err := filtersFromQuery(c)
	if err != nil {
		validationError(c, err)
		return
	}

	ctx := c.Request.Context()
	w := repository.Window{
		Since:   h.now().AddDate(0, 0, -filters.PeriodDays),
		InboxID: filters.MailboxID,
	}
	if filters.InstanceID != "" && filters.MailboxID == "" {
		inboxes, err := h.inboxes.ListByInstance(ctx, filters.InstanceID)
		if err != nil {
			h.fail(c, "Failed to list inboxes", err)
			return
		}
		w.InboxIDs = make([]string, 0, len(inboxes))
		for _, ib := range inboxes {
			w.InboxIDs = append(w.InboxIDs, ib.ID)
		}
	}

	trend, err := h.repo.GetMessageTrend(ctx, w)
	if err != nil {
		h.fail(c, "Failed to get message trend", err)
		return
	}

	topInboxes, err := h.repo.GetTopInboxes(ctx, w, topInboxesLimit)
	if err != nil {
		h.fail(c, "Failed to get top inboxes", err)
		return
	}

	messages, conversations, err := h.repo.GetTotals(ctx, w)
	if err != nil {
		h.fail(c, "Failed to get counts", err)
		return
	}

	c.JSON(http.StatusOK, models.StatisticsResponse{
		MessageTrend:     nonNil(trend),
		TopInboxes:       nonNil(topInboxes),
		IncomingMessages: messages,
		Conversations:    conversations,
		Period:           period,
	})
}

func (h *StatisticsHandler) fail(c *gin.Context, msg string, err error) {
	logger.FromContext(c.Request.Context(), h.log).Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "server_error",
		Message: msg,
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
