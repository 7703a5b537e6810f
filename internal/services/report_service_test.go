package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"helpdesk-insights-be/internal/insights"
	"helpdesk-insights-be/internal/models"
	"helpdesk-insights-be/internal/repository"
)

type mockMessageStore struct{ mock.Mock }

func (m *mockMessageStore) ListIncoming(ctx context.Context, w repository.Window) ([]models.ConversationMessage, error) {
	args := m.Called(ctx, w)
	rows, _ := args.Get(0).([]models.ConversationMessage)
	return rows, args.Error(1)
}

type mockReasonStore struct{ mock.Mock }

func (m *mockReasonStore) ListSummarized(ctx context.Context, w repository.Window) ([]models.Conversation, error) {
	args := m.Called(ctx, w)
	rows, _ := args.Get(0).([]models.Conversation)
	return rows, args.Error(1)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) Resolve(ctx context.Context, ids []string) (map[string]models.Inbox, error) {
	args := m.Called(ctx, ids)
	inboxes, _ := args.Get(0).(map[string]models.Inbox)
	return inboxes, args.Error(1)
}

func (m *mockDirectory) ListByInstance(ctx context.Context, instanceID string) ([]models.Inbox, error) {
	args := m.Called(ctx, instanceID)
	inboxes, _ := args.Get(0).([]models.Inbox)
	return inboxes, args.Error(1)
}

type recordedReport struct {
	view            string
	skippedMessages int
	skippedReasons  int
}

type fakeRecorder struct{ reports []recordedReport }

func (f *fakeRecorder) RecordReport(view string, _ time.Duration, skippedMessages, skippedReasons int) {
	f.reports = append(f.reports, recordedReport{view, skippedMessages, skippedReasons})
}

var testNow = time.Date(2024, 1, 22, 15, 0, 0, 0, time.UTC)

func conversation(inbox string, reason any) models.Conversation {
	return models.Conversation{InboxID: inbox, CreatedAt: testNow, AISummary: &models.AISummary{Reason: reason}}
}

func inboxes() map[string]models.Inbox {
	return map[string]models.Inbox{
		"ib1": {ID: "ib1", Name: "Suporte", InstanceID: "inst-a"},
		"ib2": {ID: "ib2", Name: "Financeiro", InstanceID: "inst-b"},
	}
}

type fixture struct {
	messages  *mockMessageStore
	reasons   *mockReasonStore
	directory *mockDirectory
	recorder  *fakeRecorder
	svc       *ReportService
}

func newFixture(classifier insights.Classifier) *fixture {
	f := &fixture{
		messages:  &mockMessageStore{},
		reasons:   &mockReasonStore{},
		directory: &mockDirectory{},
		recorder:  &fakeRecorder{},
	}
	f.svc = NewReportService(f.messages, f.reasons, f.directory, insights.NewClusterer(classifier, nil), ReportOptions{}, nil).
		WithRecorder(f.recorder).
		WithClock(func() time.Time { return testNow })
	return f
}

func TestBuildQueriesStoresWithWindow(t *testing.T) {
	f := newFixture(nil)
	since := testNow.AddDate(0, 0, -7)
	f.messages.On("ListIncoming", mock.Anything, repository.Window{Since: since, InboxID: "ib1", Limit: 1000}).
		Return([]models.ConversationMessage{
			{InboxID: "ib1", CreatedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)},
			{InboxID: "ib1"},
		}, nil)
	f.reasons.On("ListSummarized", mock.Anything, repository.Window{Since: since, InboxID: "ib1", Limit: 500}).
		Return([]models.Conversation{
			conversation("ib1", "Erro no boleto"),
			conversation("ib1", "erro no boleto."),
			conversation("ib1", nil),
			{InboxID: "ib1"},
		}, nil)
	f.directory.On("Resolve", mock.Anything, []string{"ib1"}).Return(inboxes(), nil)

	report, err := f.svc.Build(context.Background(), insights.Filters{MailboxID: "ib1", PeriodDays: 7})

	require.NoError(t, err)
	assert.Equal(t, insights.ViewFlat, report.View)
	assert.Equal(t, []insights.ReasonCount{{Reason: "erro no boleto", Count: 2}}, report.TopReasons)
	assert.Equal(t, 1, report.Summary.Business)
	assert.Equal(t, 1, report.SkippedMessages)
	assert.Equal(t, 2, report.SkippedReasons)
	assert.Equal(t, testNow, report.GeneratedAt)
	assert.Equal(t, []recordedReport{{"flat", 1, 2}}, f.recorder.reports)
	f.messages.AssertExpectations(t)
	f.reasons.AssertExpectations(t)
}

func TestBuildDefaultsToThirtyDays(t *testing.T) {
	f := newFixture(nil)
	since := testNow.AddDate(0, 0, -30)
	f.messages.On("ListIncoming", mock.Anything, mock.MatchedBy(func(w repository.Window) bool {
		return w.Since.Equal(since)
	})).Return(nil, nil)
	f.reasons.On("ListSummarized", mock.Anything, mock.Anything).Return(nil, nil)

	report, err := f.svc.Build(context.Background(), insights.Filters{})

	require.NoError(t, err)
	assert.Equal(t, 30, report.Filters.PeriodDays)
	assert.Equal(t, insights.ViewEmpty, report.View)
	f.directory.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestBuildInstanceFilter(t *testing.T) {
	f := newFixture(nil)
	f.directory.On("ListByInstance", mock.Anything, "inst-a").Return([]models.Inbox{inboxes()["ib1"]}, nil)
	f.messages.On("ListIncoming", mock.Anything, mock.Anything).Return(nil, nil)
	f.reasons.On("ListSummarized", mock.Anything, mock.Anything).Return([]models.Conversation{
		conversation("ib1", "Senha"),
		conversation("ib2", "Boleto"),
		conversation("ib3", "Preço"),
	}, nil)
	f.directory.On("Resolve", mock.Anything, []string{"ib1", "ib2", "ib3"}).Return(inboxes(), nil)

	report, err := f.svc.Build(context.Background(), insights.Filters{InstanceID: "inst-a"})

	require.NoError(t, err)
	assert.Equal(t, insights.ViewFlat, report.View)
	assert.Equal(t, []insights.ReasonCount{{Reason: "senha", Count: 1}}, report.TopReasons)
}

func TestBuildPushesInstanceInboxesIntoQueries(t *testing.T) {
	f := newFixture(nil)
	f.directory.On("ListByInstance", mock.Anything, "inst-a").Return([]models.Inbox{inboxes()["ib1"]}, nil)
	scoped := mock.MatchedBy(func(w repository.Window) bool {
		return w.InboxID == "" && assert.ObjectsAreEqual([]string{"ib1"}, w.InboxIDs)
	})
	f.messages.On("ListIncoming", mock.Anything, scoped).Return([]models.ConversationMessage{
		{InboxID: "ib1", CreatedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)},
	}, nil)
	f.reasons.On("ListSummarized", mock.Anything, scoped).Return(nil, nil)
	f.directory.On("Resolve", mock.Anything, []string{"ib1"}).Return(inboxes(), nil)

	report, err := f.svc.Build(context.Background(), insights.Filters{InstanceID: "inst-a"})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Total)
	f.messages.AssertExpectations(t)
	f.reasons.AssertExpectations(t)
}

func TestBuildMailboxFilterSkipsInstanceLookup(t *testing.T) {
	f := newFixture(nil)
	f.messages.On("ListIncoming", mock.Anything, mock.Anything).Return(nil, nil)
	f.reasons.On("ListSummarized", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := f.svc.Build(context.Background(), insights.Filters{InstanceID: "inst-a", MailboxID: "ib1"})

	require.NoError(t, err)
	f.directory.AssertNotCalled(t, "ListByInstance", mock.Anything, mock.Anything)
}

func TestBuildInstanceLookupFailure(t *testing.T) {
	boom := errors.New("connection refused")
	f := newFixture(nil)
	f.directory.On("ListByInstance", mock.Anything, "inst-a").Return(nil, boom)

	_, err := f.svc.Build(context.Background(), insights.Filters{InstanceID: "inst-a"})

	assert.ErrorIs(t, err, boom)
	f.messages.AssertNotCalled(t, "ListIncoming", mock.Anything, mock.Anything)
}

func TestBuildStoreFailuresPropagate(t *testing.T) {
	boom := errors.New("connection refused")

	f := newFixture(nil)
	f.messages.On("ListIncoming", mock.Anything, mock.Anything).Return(nil, boom)
	f.reasons.On("ListSummarized", mock.Anything, mock.Anything).Return(nil, nil)
	_, err := f.svc.Build(context.Background(), insights.Filters{})
	assert.ErrorIs(t, err, boom)

	f = newFixture(nil)
	f.messages.On("ListIncoming", mock.Anything, mock.Anything).Return(nil, nil)
	f.reasons.On("ListSummarized", mock.Anything, mock.Anything).Return([]models.Conversation{conversation("ib1", "a")}, nil)
	f.directory.On("Resolve", mock.Anything, mock.Anything).Return(nil, boom)
	_, err = f.svc.Build(context.Background(), insights.Filters{})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.recorder.reports)
}

func TestBuildClassifierFailureStillReports(t *testing.T) {
	f := newFixture(&countingClassifier{err: insights.ErrClassificationUnavailable})
	f.messages.On("ListIncoming", mock.Anything, mock.Anything).Return(nil, nil)
	var rows []models.Conversation
	for _, r := range []string{"a", "b", "c", "d", "e"} {
		rows = append(rows, conversation("ib1", r))
	}
	f.reasons.On("ListSummarized", mock.Anything, mock.Anything).Return(rows, nil)
	f.directory.On("Resolve", mock.Anything, mock.Anything).Return(inboxes(), nil)

	report, err := f.svc.Build(context.Background(), insights.Filters{})

	require.NoError(t, err)
	assert.False(t, report.Grouped)
	assert.Len(t, report.Categories, 5)
}

func TestBusinessHoursSkipsReasons(t *testing.T) {
	f := newFixture(nil)
	f.messages.On("ListIncoming", mock.Anything, mock.Anything).Return([]models.ConversationMessage{
		{InboxID: "ib1", CreatedAt: time.Date(2024, 1, 20, 17, 0, 0, 0, time.UTC)},
	}, nil)

	report, err := f.svc.BusinessHours(context.Background(), insights.Filters{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Weekend)
	f.reasons.AssertNotCalled(t, "ListSummarized", mock.Anything, mock.Anything)
	f.directory.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestMergedReasonsByInstance(t *testing.T) {
	f := newFixture(nil)
	f.directory.On("ListByInstance", mock.Anything, "inst-a").Return([]models.Inbox{inboxes()["ib1"]}, nil)
	f.reasons.On("ListSummarized", mock.Anything, mock.Anything).Return([]models.Conversation{
		conversation("ib1", "Senha"),
		conversation("ib1", "senha!"),
		conversation("ib2", "Boleto"),
	}, nil)
	f.directory.On("Resolve", mock.Anything, []string{"ib1", "ib2"}).Return(inboxes(), nil)

	reasons, err := f.svc.MergedReasons(context.Background(), insights.Filters{InstanceID: "inst-a"})

	require.NoError(t, err)
	assert.Equal(t, []insights.ReasonCount{{Reason: "senha", Count: 2}}, reasons)
}

func TestBuildFromSnapshot(t *testing.T) {
	f := newFixture(nil)

	report := f.svc.BuildFromSnapshot(context.Background(), models.ReportSnapshotRequest{
		Messages: []models.SnapshotMessage{
			{CreatedAt: "2024-01-15T12:00:00Z", InboxID: "ib1"},
			{CreatedAt: "2024-01-15 12:30:00+00", InboxID: "ib1"},
			{CreatedAt: "2024-01-20T17:00:00Z", InboxID: "ib2"},
			{CreatedAt: "not a date", InboxID: "ib1"},
		},
		Reasons: []insights.ReasonEvent{
			{MailboxID: "ib1", Reason: "Erro no boleto"},
			{MailboxID: "ib2", Reason: "Dúvida sobre prazo"},
			{MailboxID: "ib2", Reason: 7},
		},
		Inboxes: []models.SnapshotInbox{{ID: "ib1", Name: "Suporte"}},
	})

	assert.Equal(t, insights.PeriodSummary{Business: 2, Weekend: 1, Total: 3}, report.Summary)
	assert.Equal(t, 1, report.SkippedMessages)
	assert.Equal(t, 1, report.SkippedReasons)
	assert.Equal(t, insights.ViewByMailbox, report.View)
	names := []string{report.Mailboxes[0].MailboxName, report.Mailboxes[1].MailboxName}
	assert.Equal(t, []string{"Suporte", insights.DefaultMailboxName}, names)
	f.messages.AssertNotCalled(t, "ListIncoming", mock.Anything, mock.Anything)
}

func TestGroupReasonsShortList(t *testing.T) {
	classifier := &countingClassifier{}
	f := newFixture(classifier)

	res := f.svc.GroupReasons(context.Background(), []insights.ReasonCount{{Reason: "a", Count: 1}})

	assert.False(t, res.Grouped)
	assert.Len(t, res.Categories, 1)
	assert.Zero(t, classifier.calls)
}
