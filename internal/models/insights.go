package models

import (
	"helpdesk-insights-be/internal/insights"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SnapshotMessage is a raw message event as sent by clients. Timestamps are text
// and are validated per event.
type SnapshotMessage struct {
	CreatedAt string `json:"createdAt"`
	InboxID   string `json:"inboxId"`
}

// SnapshotInbox is a directory entry of a snapshot.
type SnapshotInbox struct {
	ID         string `json:"id" binding:"required"`
	Name       string `json:"name"`
	InstanceID string `json:"instanceId"`
}

// ReportSnapshotRequest builds a report from caller-supplied data.
type ReportSnapshotRequest struct {
	Messages []SnapshotMessage      `json:"messages"`
	Reasons  []insights.ReasonEvent `json:"reasons"`
	Inboxes  []SnapshotInbox        `json:"inboxes"`
	InboxID  string                 `json:"inboxId"`
	// InstanceID narrows the report to one tenant.
	InstanceID string `json:"instanceId"`
}

// BusinessHoursResponse is the period section of a report.
type BusinessHoursResponse struct {
	Hourly          []insights.HourlyBucket `json:"hourly"`
	Summary         insights.PeriodSummary  `json:"summary"`
	BusinessPct     int                     `json:"businessPct"`
	OffHoursPct     int                     `json:"offHoursPct"`
	WeekendPct      int                     `json:"weekendPct"`
	SkippedMessages int                     `json:"skippedMessages"`
	Period          string                  `json:"period"`
}

// GroupReasonsRequest mirrors the classification contract.
type GroupReasonsRequest struct {
	Reasons []insights.ReasonCount `json:"reasons"`
}

// GroupReasonsResponse carries at most 10 categories on the grouped path.
type GroupReasonsResponse struct {
	Grouped []insights.Category `json:"grouped"`
}

// ReasonMatch is a fuzzy search hit over normalized reasons.
type ReasonMatch struct {
	Reason  string `json:"reason"`
	Count   int    `json:"count"`
	Score   int    `json:"score"`
	Matched []int  `json:"matchedIndexes"`
}

// ReasonSearchResponse lists matches best first.
type ReasonSearchResponse struct {
	Query   string        `json:"query"`
	Matches []ReasonMatch `json:"matches"`
	Period  string        `json:"period"`
}
