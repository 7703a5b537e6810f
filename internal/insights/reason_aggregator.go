package insights

import "sort"

// DefaultMailboxName labels mailboxes missing from the directory.
const DefaultMailboxName = "Sem caixa"

// ReasonEvent is a conversation summary reason attributed to a mailbox.
// Reason comes from an upstream summarizer and may be absent or not a string.
type ReasonEvent struct {
	MailboxID string `json:"inboxId"`
	Reason    any    `json:"reason"`
}

// ReasonCount is one entry of a ranked frequency table.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// MailboxReasons is the ranked view of a single mailbox.
type MailboxReasons struct {
	MailboxID   string        `json:"inboxId"`
	MailboxName string        `json:"inboxName"`
	Total       int           `json:"total"`
	Reasons     []ReasonCount `json:"reasons"`
}

// frequency counts keys and remembers first-seen order for tie breaking.
type frequency struct {
	counts map[string]int
	order  []string
}

func newFrequency() *frequency {
	return &frequency{counts: make(map[string]int)}
}

func (f *frequency) add(key string, n int) {
	if _, seen := f.counts[key]; !seen {
		f.order = append(f.order, key)
	}
	f.counts[key] += n
}

// ranked sorts by descending count, first seen first on ties. limit <= 0 keeps all.
func (f *frequency) ranked(limit int) []ReasonCount {
	out := make([]ReasonCount, 0, len(f.order))
	for _, key := range f.order {
		out = append(out, ReasonCount{Reason: key, Count: f.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type mailboxTally struct {
	id    string
	total int
	freq  *frequency
}

// ReasonTally holds per-mailbox and cross-mailbox reason frequencies.
type ReasonTally struct {
	mailboxes []*mailboxTally
	byID      map[string]*mailboxTally
	merged    *frequency
	skipped   int
}

// AggregateReasons normalizes and counts reasons per mailbox. Events whose reason is
// absent, not text, or blank after normalization are skipped.
func AggregateReasons(events []ReasonEvent) *ReasonTally {
	t := &ReasonTally{
		byID:   make(map[string]*mailboxTally),
		merged: newFrequency(),
	}
	for _, ev := range events {
		text, ok := reasonText(ev.Reason)
		if !ok {
			t.skipped++
			continue
		}
		key := NormalizeReason(text)
		if key == "" {
			t.skipped++
			continue
		}

		mb, ok := t.byID[ev.MailboxID]
		if !ok {
			mb = &mailboxTally{id: ev.MailboxID, freq: newFrequency()}
			t.byID[ev.MailboxID] = mb
			t.mailboxes = append(t.mailboxes, mb)
		}
		mb.freq.add(key, 1)
		mb.total++
		t.merged.add(key, 1)
	}
	return t
}

func reasonText(v any) (string, bool) {
	switch r := v.(type) {
	case string:
		return r, r != ""
	case *string:
		if r == nil {
			return "", false
		}
		return *r, *r != ""
	default:
		return "", false
	}
}

// Skipped returns the number of events dropped for lacking a usable reason.
func (t *ReasonTally) Skipped() int { return t.skipped }

// Total returns the number of counted reason events.
func (t *ReasonTally) Total() int {
	n := 0
	for _, mb := range t.mailboxes {
		n += mb.total
	}
	return n
}

// MailboxIDs lists mailboxes in first-seen order.
func (t *ReasonTally) MailboxIDs() []string {
	ids := make([]string, len(t.mailboxes))
	for i, mb := range t.mailboxes {
		ids[i] = mb.id
	}
	return ids
}

// Ranked returns the top-K reasons of one mailbox, nil when the mailbox is unknown.
func (t *ReasonTally) Ranked(mailboxID string, topK int) []ReasonCount {
	mb, ok := t.byID[mailboxID]
	if !ok {
		return nil
	}
	return mb.freq.ranked(topK)
}

// ByMailbox returns the top-K ranked list of every mailbox.
func (t *ReasonTally) ByMailbox(topK int) map[string][]ReasonCount {
	out := make(map[string][]ReasonCount, len(t.mailboxes))
	for _, mb := range t.mailboxes {
		out[mb.id] = mb.freq.ranked(topK)
	}
	return out
}

// Mailboxes returns per-mailbox views ordered by total volume, busiest first.
func (t *ReasonTally) Mailboxes(topK int, names map[string]string) []MailboxReasons {
	out := make([]MailboxReasons, 0, len(t.mailboxes))
	for _, mb := range t.mailboxes {
		name := names[mb.id]
		if name == "" {
			name = DefaultMailboxName
		}
		out = append(out, MailboxReasons{
			MailboxID:   mb.id,
			MailboxName: name,
			Total:       mb.total,
			Reasons:     mb.freq.ranked(topK),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// Merged sums identical reasons across mailboxes. The result is not capped.
func (t *ReasonTally) Merged() []ReasonCount {
	return t.merged.ranked(0)
}

// SumCounts adds up the counts of a frequency list.
func SumCounts(reasons []ReasonCount) int {
	n := 0
	for _, r := range reasons {
		n += r.Count
	}
	return n
}
