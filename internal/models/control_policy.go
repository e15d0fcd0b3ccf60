package models

// Control modes form a closed set; the generator dispatches on them through
// a strategy table.
const (
	ControlModeNormal       = "normal"
	ControlModeAutoDetect   = "auto_detect"
	ControlModeSingleMember = "single_member"
	ControlModeAgentLine    = "agent_line"
)

const (
	TargetTypeMember = "member"
	TargetTypeAgent  = "agent"
)

// ControlPolicy is the single active override returned by the agent system.
// normal/auto_detect carry no target; single_member/agent_line name one.
// Percentage is 0-100 and drives the per-period Bernoulli trial. Exactly one
// of WinControl/LossControl is set for targeted modes.
type ControlPolicy struct {
	Mode           string `json:"mode"`
	TargetType     string `json:"target_type,omitempty"`
	TargetUsername string `json:"target_username,omitempty"`
	Percentage     int    `json:"control_percentage,omitempty"`
	WinControl     bool   `json:"win_control,omitempty"`
	LossControl    bool   `json:"loss_control,omitempty"`
	StartPeriod    int64  `json:"start_period,omitempty"`
}

// Normal reports whether the policy leaves the draw untouched.
func (p *ControlPolicy) Normal() bool {
	return p == nil || p.Mode == "" || p.Mode == ControlModeNormal
}
