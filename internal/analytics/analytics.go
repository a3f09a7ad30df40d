package analytics

import (
	"context"
	"sort"
	"time"
)

type caseCounter interface {
	CountCasesByAction(ctx context.Context, guildID string, since time.Time) (map[string]int, error)
}

type Service struct {
	store caseCounter
}

func New(store caseCounter) *Service {
	return &Service{store: store}
}

type Report struct {
	Since    time.Time
	Total    int
	ByAction map[string]int
}

type ActionCount struct {
	Action string
	Count  int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	counts, err := s.store.CountCasesByAction(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{Since: since, ByAction: counts}
	for _, count := range counts {
		report.Total += count
	}
	return report, nil
}

// Ranked lists actions by count, busiest first.
func (r Report) Ranked() []ActionCount {
	out := make([]ActionCount, 0, len(r.ByAction))
	for action, count := range r.ByAction {
		out = append(out, ActionCount{Action: action, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// PeriodStart maps a stats period name to its start time.
func PeriodStart(period string, now time.Time) time.Time {
	switch period {
	case "day":
		return now.Add(-24 * time.Hour)
	case "month":
		return now.AddDate(0, -1, 0)
	case "all":
		return time.Unix(0, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}
