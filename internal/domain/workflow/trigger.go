package workflow

// Trigger is an action that moves an expense between states
type Trigger string

const (
	TriggerApprove   Trigger = "APPROVE"
	TriggerReject    Trigger = "REJECT"
	TriggerReimburse Trigger = "REIMBURSE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
