package campaign

import (
	"sort"
	"time"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/enums"
	"github.com/wecr8/damp-backend/pkg/money"
)

// Milestones are the pre-order totals celebrated once each.
var Milestones = []int64{100, 200, 250, 300, 350, 400, 450, 500}

const (
	criticalWindow = 24 * time.Hour
	highWindow     = 72 * time.Hour
)

// Counts is the raw counter state read from the store.
type Counts struct {
	Total       int64
	Daily       map[string]int64
	Reached     map[int64]time.Time
	LastUpdated time.Time
}

type CountsView struct {
	Current            int64   `json:"current"`
	Goal               int64   `json:"goal"`
	Remaining          int64   `json:"remaining"`
	ProgressPercentage float64 `json:"progressPercentage"`
}

type TimeRemaining struct {
	TotalMilliseconds int64 `json:"totalMilliseconds"`
	Days              int64 `json:"days"`
	Hours             int64 `json:"hours"`
	Minutes           int64 `json:"minutes"`
}

type Timing struct {
	Deadline        time.Time     `json:"deadline"`
	TimeRemaining   TimeRemaining `json:"timeRemaining"`
	EarlyBirdActive bool          `json:"earlyBirdActive"`
}

type Urgency struct {
	Level   enums.UrgencyLevel `json:"level"`
	Message string             `json:"message"`
}

type Milestone struct {
	Count     int64     `json:"count"`
	ReachedAt time.Time `json:"reachedAt"`
}

type Pricing struct {
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Status struct {
	Counts      CountsView       `json:"counts"`
	Timing      Timing           `json:"timing"`
	Urgency     Urgency          `json:"urgency"`
	Milestones  []Milestone      `json:"milestones"`
	Pricing     Pricing          `json:"pricing"`
	DailyCounts map[string]int64 `json:"dailyCounts"`
	LastUpdated *time.Time       `json:"lastUpdated,omitempty"`
}

// BuildStatus derives the public campaign view from counters at now.
func BuildStatus(cfg config.CampaignConfig, counts Counts, now time.Time) Status {
	left := cfg.Deadline.Sub(now)

	remaining := cfg.GoalUnits - counts.Total
	if remaining < 0 {
		remaining = 0
	}

	status := Status{
		Counts: CountsView{
			Current:            counts.Total,
			Goal:               cfg.GoalUnits,
			Remaining:          remaining,
			ProgressPercentage: money.Percent(counts.Total, cfg.GoalUnits, 1),
		},
		Timing: Timing{
			Deadline:        cfg.Deadline,
			TimeRemaining:   splitRemaining(left),
			EarlyBirdActive: cfg.EarlyBird && left > 0,
		},
		Urgency:     urgencyFor(left, counts.Total, cfg.ScarcityThreshold),
		Milestones:  sortedMilestones(counts.Reached),
		Pricing:     Pricing{Tier: cfg.PriceTier, ExpiresAt: cfg.Deadline},
		DailyCounts: counts.Daily,
	}
	if status.DailyCounts == nil {
		status.DailyCounts = map[string]int64{}
	}
	if !counts.LastUpdated.IsZero() {
		updated := counts.LastUpdated
		status.LastUpdated = &updated
	}
	return status
}

func urgencyFor(left time.Duration, total, scarcity int64) Urgency {
	switch {
	case left < criticalWindow:
		return Urgency{Level: enums.UrgencyCritical, Message: "Less than 24 hours left!"}
	case left < highWindow:
		return Urgency{Level: enums.UrgencyHigh, Message: "Only a few days left!"}
	case scarcity > 0 && total >= scarcity:
		return Urgency{Level: enums.UrgencyHigh, Message: "Almost sold out!"}
	default:
		return Urgency{Level: enums.UrgencyNormal}
	}
}

func splitRemaining(left time.Duration) TimeRemaining {
	if left <= 0 {
		return TimeRemaining{}
	}
	return TimeRemaining{
		TotalMilliseconds: left.Milliseconds(),
		Days:              int64(left / (24 * time.Hour)),
		Hours:             int64(left%(24*time.Hour)) / int64(time.Hour),
		Minutes:           int64(left%time.Hour) / int64(time.Minute),
	}
}

func sortedMilestones(reached map[int64]time.Time) []Milestone {
	out := make([]Milestone, 0, len(reached))
	for count, at := range reached {
		out = append(out, Milestone{Count: count, ReachedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count < out[j].Count })
	return out
}

// crossed returns the milestones in (before, after].
func crossed(before, after int64) []int64 {
	var out []int64
	for _, m := range Milestones {
		if before < m && after >= m {
			out = append(out, m)
		}
	}
	return out
}
