package metrics

import "github.com/highbeam/pulseboard/internal/domain"

// AtRiskCompletionThreshold is the completion rate below which a
// project counts as at risk.
const AtRiskCompletionThreshold = 0.30

// RiskReason names one condition that put a project at risk.
type RiskReason string

const (
	RiskOverdue       RiskReason = "overdue"
	RiskLowCompletion RiskReason = "low_completion"
	RiskOnHold        RiskReason = "on_hold"
)

// String returns the string representation of the reason.
func (r RiskReason) String() string {
	return string(r)
}

// RiskReasons evaluates the at-risk predicate for one project and returns
// every condition that holds. An empty result means the project is healthy.
func RiskReasons(overdue bool, completionRate float64, status domain.ProjectStatus) []RiskReason {
	var reasons []RiskReason
	if overdue {
		reasons = append(reasons, RiskOverdue)
	}
	if completionRate < AtRiskCompletionThreshold {
		reasons = append(reasons, RiskLowCompletion)
	}
	if status == domain.ProjectOnHold {
		reasons = append(reasons, RiskOnHold)
	}
	return reasons
}

// IsAtRisk reports overdue OR completion below threshold OR on hold.
func IsAtRisk(overdue bool, completionRate float64, status domain.ProjectStatus) bool {
	return len(RiskReasons(overdue, completionRate, status)) > 0
}

// AtRisk returns the at-risk projects in input order, capped at limit
// (zero or negative means no cap). The cap is for display only: the result
// is any limit at-risk projects, not the worst ones.
func AtRisk(projects []ProjectStats, limit int) []ProjectStats {
	out := make([]ProjectStats, 0)
	for _, p := range projects {
		if !p.AtRisk {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, p)
	}
	return out
}
