package domain

// DeletionTrigger names the event that obliges the system to delete
// collected data under a retention policy.
type DeletionTrigger string

const (
	// TriggerOnRequest: deletion happens when the parent asks for it.
	TriggerOnRequest DeletionTrigger = "on_request"
	// TriggerOnExpiry: deletion happens when the retention window lapses;
	// the sweeper enforces this one.
	TriggerOnExpiry DeletionTrigger = "on_expiry"
	// TriggerOnAccountClosure: deletion happens when the account is closed.
	TriggerOnAccountClosure DeletionTrigger = "on_account_closure"
)

var validDeletionTriggers = map[DeletionTrigger]bool{
	TriggerOnRequest:        true,
	TriggerOnExpiry:         true,
	TriggerOnAccountClosure: true,
}

// IsValid checks if the trigger is one of the supported enum values.
func (t DeletionTrigger) IsValid() bool {
	return validDeletionTriggers[t]
}

// String returns the string representation of the trigger.
func (t DeletionTrigger) String() string {
	return string(t)
}
