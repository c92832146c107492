package domain

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
)

// Plan is a subscription plan as published by the panel. It is never cached
// beyond a single operation.
type Plan struct {
	ID           int64
	Name         string
	VolumeMB     int64
	DurationDays int64
	Price        int64
	Status       PlanStatus
}

func (p Plan) IsActive() bool {
	return p.Status == PlanStatusActive
}

// ActivePlans keeps only active plans, preserving upstream order.
func ActivePlans(plans []Plan) []Plan {
	active := make([]Plan, 0, len(plans))
	for _, p := range plans {
		if p.IsActive() {
			active = append(active, p)
		}
	}
	return active
}

// FindPlan returns the plan with the given ID, or nil.
func FindPlan(plans []Plan, id int64) *Plan {
	for i := range plans {
		if plans[i].ID == id {
			return &plans[i]
		}
	}
	return nil
}
