package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"helpdesk-insights-be/internal/insights"
)

// supportedPeriods maps the period query parameter to a number of days.
var supportedPeriods = map[string]int{
	"7d":  7,
	"15d": 15,
	"30d": 30,
	"60d": 60,
	"90d": 90,
}

const defaultPeriod = "30d"

func parsePeriod(raw string) (string, int, error) {
	period := strings.ToLower(strings.TrimSpace(raw))
	if period == "" {
		period = defaultPeriod
	}
	days, ok := supportedPeriods[period]
	if !ok {
		return "", 0, fmt.Errorf("unsupported period %q, use 7d, 15d, 30d, 60d or 90d", raw)
	}
	return period, days, nil
}

// filtersFromQuery reads period, inboxId and instanceId. Without an instanceId query
// parameter the instance of the caller's token applies.
func filtersFromQuery(c *gin.Context) (insights.Filters, string, error) {
	period, days, err := parsePeriod(c.Query("period"))
	if err != nil {
		return insights.Filters{}, "", err
	}
	instanceID := c.Query("instanceId")
	if instanceID == "" {
		instanceID = c.GetString("instanceID")
	}
	return insights.Filters{
		MailboxID:  c.Query("inboxId"),
		InstanceID: instanceID,
		PeriodDays: days,
	}, period, nil
}
