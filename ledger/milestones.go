package ledger

import (
	"time"

	"auragold-backend/models"
	"auragold-backend/utils"
)

// EvaluateMilestones assigns each milestone a status from the total paid so
// far. The running cumulative target is rebuilt from the target amounts in
// order; the input slice is not modified.
func EvaluateMilestones(totalPaid float64, milestones []models.Milestone) []models.Milestone {
	out := make([]models.Milestone, len(milestones))
	paid := utils.Round2(totalPaid)
	running := 0.0
	for i, m := range milestones {
		prev := running
		running = utils.Round2(running + m.TargetAmount)
		out[i] = m
		switch {
		case paid >= running:
			out[i].Status = models.MilestonePaid
		case paid > utils.Round2(prev+utils.Epsilon):
			out[i].Status = models.MilestonePartial
		default:
			out[i].Status = models.MilestonePending
		}
	}
	return out
}

// FirstOverdue returns the index of the earliest unpaid milestone whose due
// date is before now, or -1.
func FirstOverdue(milestones []models.Milestone, now time.Time) int {
	for i, m := range milestones {
		if m.Status != models.MilestonePaid && m.DueDate.Before(now) {
			return i
		}
	}
	return -1
}

func HasOverdue(milestones []models.Milestone, now time.Time) bool {
	return FirstOverdue(milestones, now) >= 0
}

// NextDue returns the earliest milestone that is not yet paid, overdue or not.
func NextDue(milestones []models.Milestone) (models.Milestone, bool) {
	for _, m := range milestones {
		if m.Status != models.MilestonePaid {
			return m, true
		}
	}
	return models.Milestone{}, false
}

// rebuildCumulative recomputes cumulative targets from target amounts so the
// running-sum invariant holds exactly.
func rebuildCumulative(milestones []models.Milestone) {
	running := 0.0
	for i := range milestones {
		running = utils.Round2(running + milestones[i].TargetAmount)
		milestones[i].CumulativeTarget = running
	}
}
