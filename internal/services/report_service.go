package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"helpdesk-insights-be/internal/insights"
	"helpdesk-insights-be/internal/logger"
	"helpdesk-insights-be/internal/models"
	"helpdesk-insights-be/internal/repository"
)

// MessageStore lists incoming messages.
type MessageStore interface {
	ListIncoming(ctx context.Context, w repository.Window) ([]models.ConversationMessage, error)
}

// ReasonStore lists conversations that carry a summary.
type ReasonStore interface {
	ListSummarized(ctx context.Context, w repository.Window) ([]models.Conversation, error)
}

// InboxDirectory resolves inbox ids to directory entries and lists the inboxes
// of an instance.
type InboxDirectory interface {
	Resolve(ctx context.Context, ids []string) (map[string]models.Inbox, error)
	ListByInstance(ctx context.Context, instanceID string) ([]models.Inbox, error)
}

// ReportRecorder receives report metrics.
type ReportRecorder interface {
	RecordReport(view string, took time.Duration, skippedMessages, skippedReasons int)
}

// ReportOptions sizes reports and store queries. Zero values use the defaults.
type ReportOptions struct {
	TopK         int
	FlatLimit    int
	MessageLimit int64
	ReasonLimit  int64
}

const (
	defaultMessageLimit = 1000
	defaultReasonLimit  = 500
)

// ReportService loads a snapshot from the stores and assembles reports from it.
type ReportService struct {
	messages  MessageStore
	reasons   ReasonStore
	inboxes   InboxDirectory
	clusterer *insights.Clusterer
	assembler *insights.Assembler
	opts      ReportOptions
	recorder  ReportRecorder
	log       logger.Logger
	now       func() time.Time
}

func NewReportService(
	messages MessageStore,
	reasons ReasonStore,
	inboxes InboxDirectory,
	clusterer *insights.Clusterer,
	opts ReportOptions,
	log logger.Logger,
) *ReportService {
	if log == nil {
		log = logger.NewNop()
	}
	if clusterer == nil {
		clusterer = insights.NewClusterer(nil, log)
	}
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = defaultMessageLimit
	}
	if opts.ReasonLimit <= 0 {
		opts.ReasonLimit = defaultReasonLimit
	}
	return &ReportService{
		messages:  messages,
		reasons:   reasons,
		inboxes:   inboxes,
		clusterer: clusterer,
		assembler: insights.NewAssembler(clusterer, opts.TopK, opts.FlatLimit),
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// WithRecorder sets the metrics recorder.
func (s *ReportService) WithRecorder(r ReportRecorder) *ReportService {
	s.recorder = r
	return s
}

// WithClock replaces the clock used for query windows and report timestamps.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	s.assembler.WithClock(now)
	return s
}

// Build fetches the period's data and assembles the full report. Store failures are
// returned; classification failures degrade to ungrouped reasons.
func (s *ReportService) Build(ctx context.Context, f insights.Filters) (*insights.Report, error) {
	start := time.Now()
	f = withPeriod(f)
	w, err := s.window(ctx, f)
	if err != nil {
		return nil, err
	}

	var (
		messages      []insights.MessageEvent
		skipped       int
		conversations []models.Conversation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, skipped, err = s.loadMessages(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		conversations, err = s.loadConversations(gctx, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reasons := toReasonEvents(conversations)
	directory, err := s.directory(ctx, mailboxIDs(messages, reasons))
	if err != nil {
		return nil, err
	}

	report := s.assembler.BuildReport(ctx, insights.ReportInput{
		Messages:        messages,
		Reasons:         reasons,
		Mailboxes:       directory,
		Filters:         f,
		SkippedMessages: skipped,
	})
	s.record(report, time.Since(start))
	return report, nil
}

// BusinessHours builds only the period section, without touching reasons.
func (s *ReportService) BusinessHours(ctx context.Context, f insights.Filters) (*insights.Report, error) {
	f = withPeriod(f)
	w, err := s.window(ctx, f)
	if err != nil {
		return nil, err
	}
	messages, skipped, err := s.loadMessages(ctx, w)
	if err != nil {
		return nil, err
	}

	var directory map[string]insights.MailboxInfo
	if f.InstanceID != "" {
		if directory, err = s.directory(ctx, mailboxIDs(messages, nil)); err != nil {
			return nil, err
		}
	}
	return s.assembler.BuildReport(ctx, insights.ReportInput{
		Messages:        messages,
		Mailboxes:       directory,
		Filters:         f,
		SkippedMessages: skipped,
	}), nil
}

// MergedReasons returns the uncapped cross-mailbox ranking of the period.
func (s *ReportService) MergedReasons(ctx context.Context, f insights.Filters) ([]insights.ReasonCount, error) {
	f = withPeriod(f)
	w, err := s.window(ctx, f)
	if err != nil {
		return nil, err
	}
	conversations, err := s.loadConversations(ctx, w)
	if err != nil {
		return nil, err
	}
	reasons := toReasonEvents(conversations)
	if f.InstanceID != "" {
		directory, err := s.directory(ctx, mailboxIDs(nil, reasons))
		if err != nil {
			return nil, err
		}
		reasons = inInstance(reasons, directory, f.InstanceID)
	}
	return insights.AggregateReasons(reasons).Merged(), nil
}

// GroupReasons runs the clusterer over an already ranked list.
func (s *ReportService) GroupReasons(ctx context.Context, reasons []insights.ReasonCount) insights.ClusterResult {
	return s.clusterer.Cluster(ctx, reasons)
}

// BuildFromSnapshot assembles a report from caller-supplied raw events.
// Messages with unparseable timestamps are skipped and counted.
func (s *ReportService) BuildFromSnapshot(ctx context.Context, req models.ReportSnapshotRequest) *insights.Report {
	start := time.Now()

	messages := make([]insights.MessageEvent, 0, len(req.Messages))
	skipped := 0
	for _, m := range req.Messages {
		ts, err := insights.ParseTimestamp(m.CreatedAt)
		if err != nil {
			skipped++
			continue
		}
		messages = append(messages, insights.MessageEvent{Timestamp: ts, MailboxID: m.InboxID})
	}

	directory := make(map[string]insights.MailboxInfo, len(req.Inboxes))
	for _, ib := range req.Inboxes {
		directory[ib.ID] = insights.MailboxInfo{Name: ib.Name, InstanceID: ib.InstanceID}
	}

	report := s.assembler.BuildReport(ctx, insights.ReportInput{
		Messages:  messages,
		Reasons:   req.Reasons,
		Mailboxes: directory,
		Filters: insights.Filters{
			MailboxID:  req.InboxID,
			InstanceID: req.InstanceID,
		},
		SkippedMessages: skipped,
	})
	s.record(report, time.Since(start))
	return report
}

func withPeriod(f insights.Filters) insights.Filters {
	if f.PeriodDays <= 0 {
		f.PeriodDays = insights.DefaultPeriodDays
	}
	return f
}

// window builds the store query of f. An instance filter without a mailbox is
// pushed down as the instance's inbox list so fetch limits apply per tenant.
func (s *ReportService) window(ctx context.Context, f insights.Filters) (repository.Window, error) {
	w := repository.Window{
		Since:   s.now().AddDate(0, 0, -f.PeriodDays),
		InboxID: f.MailboxID,
	}
	if f.InstanceID == "" || f.MailboxID != "" {
		return w, nil
	}
	inboxes, err := s.inboxes.ListByInstance(ctx, f.InstanceID)
	if err != nil {
		return repository.Window{}, fmt.Errorf("list instance inboxes: %w", err)
	}
	w.InboxIDs = make([]string, 0, len(inboxes))
	for _, ib := range inboxes {
		w.InboxIDs = append(w.InboxIDs, ib.ID)
	}
	return w, nil
}

func (s *ReportService) loadMessages(ctx context.Context, w repository.Window) ([]insights.MessageEvent, int, error) {
	w.Limit = s.opts.MessageLimit
	rows, err := s.messages.ListIncoming(ctx, w)
	if err != nil {
		return nil, 0, fmt.Errorf("load messages: %w", err)
	}

	events := make([]insights.MessageEvent, 0, len(rows))
	skipped := 0
	for _, m := range rows {
		if m.CreatedAt.IsZero() {
			skipped++
			continue
		}
		events = append(events, insights.MessageEvent{Timestamp: m.CreatedAt, MailboxID: m.InboxID})
	}
	return events, skipped, nil
}

func (s *ReportService) loadConversations(ctx context.Context, w repository.Window) ([]models.Conversation, error) {
	w.Limit = s.opts.ReasonLimit
	rows, err := s.reasons.ListSummarized(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	return rows, nil
}

func (s *ReportService) directory(ctx context.Context, ids []string) (map[string]insights.MailboxInfo, error) {
	if len(ids) == 0 {
		return map[string]insights.MailboxInfo{}, nil
	}
	inboxes, err := s.inboxes.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve inboxes: %w", err)
	}

	directory := make(map[string]insights.MailboxInfo, len(inboxes))
	for id, ib := range inboxes {
		directory[id] = insights.MailboxInfo{Name: ib.Name, InstanceID: ib.InstanceID}
	}
	if missing := len(ids) - len(directory); missing > 0 {
		s.log.Debug("Inboxes missing from directory", zap.Int("missing", missing))
	}
	return directory, nil
}

func (s *ReportService) record(report *insights.Report, took time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordReport(string(report.View), took, report.SkippedMessages, report.SkippedReasons)
	}
}

func toReasonEvents(conversations []models.Conversation) []insights.ReasonEvent {
	events := make([]insights.ReasonEvent, 0, len(conversations))
	for _, c := range conversations {
		var reason any
		if c.AISummary != nil {
			reason = c.AISummary.Reason
		}
		events = append(events, insights.ReasonEvent{MailboxID: c.InboxID, Reason: reason})
	}
	return events
}

// mailboxIDs lists the distinct non-empty mailbox ids of both streams.
func mailboxIDs(messages []insights.MessageEvent, reasons []insights.ReasonEvent) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, m := range messages {
		add(m.MailboxID)
	}
	for _, r := range reasons {
		add(r.MailboxID)
	}
	return ids
}

func inInstance(reasons []insights.ReasonEvent, directory map[string]insights.MailboxInfo, instanceID string) []insights.ReasonEvent {
	out := reasons[:0:0]
	for _, r := range reasons {
		if info, ok := directory[r.MailboxID]; ok && info.InstanceID == instanceID {
			out = append(out, r)
		}
	}
	return out
}
