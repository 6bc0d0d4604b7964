package types

// PlanStepInput is one step inside a phase of a create_plan payload.
type PlanStepInput struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Priority    *int                   `json:"priority,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
	Deps        []string               `json:"deps,omitempty"` // titles of sibling steps in the same phase
}

// PlanPhaseInput is one phase inside a create_plan payload.
type PlanPhaseInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Steps       []PlanStepInput `json:"steps"`
}

// PlanMilestoneInput is the top-level node of a create_plan payload.
type PlanMilestoneInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// PlanInput is the full payload accepted by create_plan.
type PlanInput struct {
	Milestone PlanMilestoneInput `json:"milestone"`
	Phases    []PlanPhaseInput   `json:"phases"`
}

// PhaseProgress summarizes step completion for one phase.
type PhaseProgress struct {
	PhaseID   string `json:"phase_id"`
	Title     string `json:"title"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Ready     int    `json:"ready"`
	StepIDs   []string `json:"step_ids"`
}

// PlanView is the tree returned by get_plan.
type PlanView struct {
	MilestoneID   string          `json:"milestone_id"`
	Title         string          `json:"title"`
	Phases        []PhaseProgress `json:"phases"`
	ProgressPct   float64         `json:"progress_pct"`
}

// FlowMetrics is the result of a flow-analytics window query.
type FlowMetrics struct {
	WindowDays    int                `json:"window_days"`
	CycleTimeMean float64            `json:"cycle_time_hours_mean"`
	LeadTimeMean  float64            `json:"lead_time_hours_mean"`
	Throughput    map[string]int     `json:"throughput_by_day"`
}
