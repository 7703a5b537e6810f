package insights

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Default report sizes.
const (
	DefaultTopK       = 6
	DefaultFlatLimit  = 8
	DefaultPeriodDays = 30
)

// ReasonView tells presentation how reasons are laid out.
type ReasonView string

const (
	ViewEmpty     ReasonView = "empty"
	ViewFlat      ReasonView = "flat"
	ViewByMailbox ReasonView = "by_mailbox"
)

// Filters narrow a report to a mailbox and/or an instance (tenant).
type Filters struct {
	MailboxID  string `json:"inboxId,omitempty"`
	InstanceID string `json:"instanceId,omitempty"`
	PeriodDays int    `json:"periodDays"`
}

// MailboxInfo is the directory entry of a mailbox.
type MailboxInfo struct {
	Name       string `json:"name"`
	InstanceID string `json:"instanceId"`
}

// ReportInput is a point-in-time snapshot of the raw data behind a report.
type ReportInput struct {
	Messages  []MessageEvent
	Reasons   []ReasonEvent
	Mailboxes map[string]MailboxInfo
	Filters   Filters
	// SkippedMessages counts messages already dropped upstream (bad timestamps).
	SkippedMessages int
}

// Report is the full dashboard payload for contact timing and reasons.
type Report struct {
	ID              string           `json:"id"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	Filters         Filters          `json:"filters"`
	Hourly          []HourlyBucket   `json:"hourly"`
	Summary         PeriodSummary    `json:"summary"`
	View            ReasonView       `json:"view"`
	TopReasons      []ReasonCount    `json:"topReasons,omitempty"`
	Mailboxes       []MailboxReasons `json:"inboxes,omitempty"`
	Categories      []Category       `json:"categories"`
	Grouped         bool             `json:"grouped"`
	TotalReasons    int              `json:"totalReasons"`
	SkippedMessages int              `json:"skippedMessages"`
	SkippedReasons  int              `json:"skippedReasons"`
}

// Assembler composes the period and reason pipelines into a Report.
type Assembler struct {
	clusterer *Clusterer
	topK      int
	flatLimit int
	now       func() time.Time
}

// NewAssembler creates an assembler. Non-positive sizes use the defaults.
func NewAssembler(clusterer *Clusterer, topK, flatLimit int) *Assembler {
	if clusterer == nil {
		clusterer = NewClusterer(nil, nil)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if flatLimit <= 0 {
		flatLimit = DefaultFlatLimit
	}
	return &Assembler{
		clusterer: clusterer,
		topK:      topK,
		flatLimit: flatLimit,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for GeneratedAt.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// BuildReport never fails: classification problems degrade to ungrouped reasons.
func (a *Assembler) BuildReport(ctx context.Context, in ReportInput) *Report {
	scope := newMailboxScope(in.Filters, in.Mailboxes)

	messages := make([]MessageEvent, 0, len(in.Messages))
	for _, m := range in.Messages {
		// Under a mailbox or instance filter, unattributed messages are dropped.
		if scope.allows(m.MailboxID) {
			messages = append(messages, m)
		}
	}
	reasons := make([]ReasonEvent, 0, len(in.Reasons))
	for _, r := range in.Reasons {
		if scope.allows(r.MailboxID) {
			reasons = append(reasons, r)
		}
	}

	hourly, summary := AggregatePeriods(messages)
	tally := AggregateReasons(reasons)
	merged := tally.Merged()

	report := &Report{
		ID:              uuid.NewString(),
		GeneratedAt:     a.now().UTC(),
		Filters:         in.Filters,
		Hourly:          hourly,
		Summary:         summary,
		Categories:      []Category{},
		TotalReasons:    tally.Total(),
		SkippedMessages: in.SkippedMessages,
		SkippedReasons:  tally.Skipped(),
	}

	mailboxIDs := tally.MailboxIDs()
	switch {
	case len(mailboxIDs) == 0:
		report.View = ViewEmpty
		return report
	case in.Filters.MailboxID != "" || len(mailboxIDs) == 1:
		// Scoping leaves a single mailbox here, so its ranking equals the merged one.
		report.View = ViewFlat
		report.TopReasons = tally.Ranked(mailboxIDs[0], a.flatLimit)
	default:
		report.View = ViewByMailbox
		report.Mailboxes = tally.Mailboxes(a.topK, scope.names())
	}

	clustered := a.clusterer.Cluster(ctx, merged)
	report.Categories = clustered.Categories
	report.Grouped = clustered.Grouped
	return report
}

type mailboxScope struct {
	filters   Filters
	directory map[string]MailboxInfo
}

func newMailboxScope(f Filters, directory map[string]MailboxInfo) mailboxScope {
	return mailboxScope{filters: f, directory: directory}
}

// allows reports whether events of mailboxID belong in the report.
// With an instance filter, mailboxes missing from the directory are excluded.
func (s mailboxScope) allows(mailboxID string) bool {
	if s.filters.MailboxID != "" && mailboxID != s.filters.MailboxID {
		return false
	}
	if s.filters.InstanceID != "" {
		info, ok := s.directory[mailboxID]
		return ok && info.InstanceID == s.filters.InstanceID
	}
	return true
}

func (s mailboxScope) names() map[string]string {
	names := make(map[string]string, len(s.directory))
	for id, info := range s.directory {
		names[id] = info.Name
	}
	return names
}
