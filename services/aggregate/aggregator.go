package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mindfusion/backend/services"
	"github.com/mindfusion/backend/services/providers"
)

// sectionSeparator is the blank line between provider sections
const sectionSeparator = "\n\n"

// UnifiedResult is the merged answer for one request
type UnifiedResult struct {
	Text       string
	Confidence int

	// Contributors lists the provider IDs whose text made it into Text, in
	// priority order
	Contributors []string
}

// Aggregator merges a breakdown into a UnifiedResult using labeled
// concatenation in a fixed provider priority order.
type Aggregator struct {
	order  []string
	labels map[string]string
}

// NewAggregator creates an aggregator whose priority order is the order of specs
func NewAggregator(specs []providers.Spec) *Aggregator {
	a := &Aggregator{
		order:  make([]string, 0, len(specs)),
		labels: make(map[string]string, len(specs)),
	}
	for _, s := range specs {
		if _, seen := a.labels[s.ID]; seen {
			continue
		}
		a.order = append(a.order, s.ID)
		a.labels[s.ID] = s.DisplayLabel()
	}
	return a
}

// Aggregate merges the successful outcomes of b. It returns a no_success
// domain error carrying the breakdown under "responses" when nothing
// succeeded. The result depends only on the contents of b, never on the
// order in which outcomes arrived.
func (a *Aggregator) Aggregate(b providers.Breakdown) (*UnifiedResult, error) {
	ids := a.priorityOrder(b)

	sections := make([]string, 0, len(ids))
	contributors := make([]string, 0, len(ids))
	sum := 0
	for _, id := range ids {
		outcome := b[id]
		if !outcome.IsSuccess() {
			continue
		}
		sections = append(sections, fmt.Sprintf("**%s:** %s", a.label(id), outcome.Text))
		contributors = append(contributors, id)
		sum += outcome.Confidence
	}

	if len(contributors) == 0 {
		return nil, NoSuccessError(b)
	}

	return &UnifiedResult{
		Text:         strings.Join(sections, sectionSeparator),
		Confidence:   meanConfidence(sum, len(contributors)),
		Contributors: contributors,
	}, nil
}

// NoSuccessError builds the error reported when every provider failed
func NoSuccessError(b providers.Breakdown) error {
	return services.NewDomainError(services.ErrorTypeNoSuccess, services.ErrNoSuccess.Message, nil).
		WithDetail("responses", b)
}

// priorityOrder lists the IDs present in b: configured providers first in
// configuration order, then any unknown IDs sorted
func (a *Aggregator) priorityOrder(b providers.Breakdown) []string {
	ids := make([]string, 0, len(b))
	for _, id := range a.order {
		if _, ok := b[id]; ok {
			ids = append(ids, id)
		}
	}

	var extra []string
	for id := range b {
		if _, known := a.labels[id]; !known {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)

	return append(ids, extra...)
}

func (a *Aggregator) label(id string) string {
	if l, ok := a.labels[id]; ok {
		return l
	}
	return id
}

// meanConfidence rounds half away from zero, so 87.5 becomes 88
func meanConfidence(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}
