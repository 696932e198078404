package domain

// TriggerReason distinguishes how a crash sale was activated.
type TriggerReason int

const (
	// TriggerAutomatic the purchase bump crossed the price ceiling.
	TriggerAutomatic TriggerReason = iota
	// TriggerAdministrative an administrator activated the sale explicitly.
	TriggerAdministrative
)

// String returns the string representation.
func (r TriggerReason) String() string {
	switch r {
	case TriggerAutomatic:
		return "automatic"
	case TriggerAdministrative:
		return "administrative"
	default:
		return "unknown"
	}
}
