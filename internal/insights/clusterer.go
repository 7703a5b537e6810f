package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"helpdesk-insights-be/internal/logger"
)

// MaxCategories is the most categories a classifier is asked to return.
const MaxCategories = 10

// MinReasonsToGroup is the smallest input that is sent to the classifier;
// shorter lists are returned unchanged.
const MinReasonsToGroup = 4

// ErrClassificationUnavailable covers network failures, non-success responses and
// malformed payloads from the classification capability.
var ErrClassificationUnavailable = errors.New("classification unavailable")

// Category is a named group of normalized reasons with their combined count.
type Category struct {
	Label           string   `json:"category"`
	Count           int      `json:"count"`
	AbsorbedReasons []string `json:"original_reasons"`
}

// Classifier groups near-duplicate reasons into categories. Implementations make at
// most one external call and do not retry.
type Classifier interface {
	GroupReasons(ctx context.Context, reasons []ReasonCount) ([]Category, error)
}

// Classification outcomes reported to observers.
const (
	OutcomeGrouped  = "grouped"
	OutcomeFallback = "fallback"
	OutcomeSkipped  = "skipped"
)

// ClassificationObserver is notified of every clustering outcome.
type ClassificationObserver interface {
	ObserveClassification(outcome string)
}

// ClusterResult is the output of Cluster. Grouped is false when the categories are
// the identity mapping of the input.
type ClusterResult struct {
	Categories []Category
	Grouped    bool
}

// Clusterer collapses ranked reason lists into a bounded set of categories.
type Clusterer struct {
	classifier Classifier
	observer   ClassificationObserver
	log        logger.Logger
}

// NewClusterer creates a clusterer. A nil classifier always yields the identity mapping.
func NewClusterer(classifier Classifier, log logger.Logger) *Clusterer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Clusterer{classifier: classifier, log: log}
}

// WithObserver sets the outcome observer and returns the clusterer.
func (c *Clusterer) WithObserver(o ClassificationObserver) *Clusterer {
	c.observer = o
	return c
}

// Cluster groups freqs. Any classification failure falls back to one category per
// input reason so that no reason is lost.
func (c *Clusterer) Cluster(ctx context.Context, freqs []ReasonCount) ClusterResult {
	if len(freqs) < MinReasonsToGroup || c.classifier == nil {
		c.observe(OutcomeSkipped)
		return ClusterResult{Categories: IdentityCategories(freqs)}
	}

	categories, err := c.classifier.GroupReasons(ctx, freqs)
	if err == nil {
		err = ValidateCategories(categories)
	}
	if err != nil {
		c.log.Warn("Reason grouping unavailable, using ungrouped reasons",
			zap.Int("reasons", len(freqs)),
			zap.Int("occurrences", SumCounts(freqs)),
			zap.Error(err),
		)
		c.observe(OutcomeFallback)
		return ClusterResult{Categories: IdentityCategories(freqs)}
	}

	c.log.Debug("Reasons grouped",
		zap.Int("reasons", len(freqs)),
		zap.Int("occurrences", SumCounts(freqs)),
		zap.Int("categories", len(categories)),
	)
	c.observe(OutcomeGrouped)
	return ClusterResult{Categories: categories, Grouped: true}
}

func (c *Clusterer) observe(outcome string) {
	if c.observer != nil {
		c.observer.ObserveClassification(outcome)
	}
}

// IdentityCategories maps every reason to its own category, preserving order.
func IdentityCategories(freqs []ReasonCount) []Category {
	out := make([]Category, len(freqs))
	for i, f := range freqs {
		out[i] = Category{
			Label:           f.Reason,
			Count:           f.Count,
			AbsorbedReasons: []string{f.Reason},
		}
	}
	return out
}

// ValidateCategories rejects groupings that would drop or misreport reasons.
func ValidateCategories(categories []Category) error {
	if len(categories) == 0 {
		return fmt.Errorf("%w: empty grouping", ErrClassificationUnavailable)
	}
	for i, cat := range categories {
		switch {
		case strings.TrimSpace(cat.Label) == "":
			return fmt.Errorf("%w: category %d has no label", ErrClassificationUnavailable, i)
		case cat.Count <= 0:
			return fmt.Errorf("%w: category %q has count %d", ErrClassificationUnavailable, cat.Label, cat.Count)
		case len(cat.AbsorbedReasons) == 0:
			return fmt.Errorf("%w: category %q absorbed no reasons", ErrClassificationUnavailable, cat.Label)
		}
	}
	return nil
}
