package enums

// UrgencyLevel grades how close the campaign is to its deadline or goal.
type UrgencyLevel string

const (
	UrgencyNormal   UrgencyLevel = "normal"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// String implements fmt.Stringer.
func (u UrgencyLevel) String() string {
	return string(u)
}
