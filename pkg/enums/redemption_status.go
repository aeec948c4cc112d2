package enums

import "fmt"

// RedemptionStatus describes the lifecycle of a redemption request.
type RedemptionStatus string

const (
	RedemptionStatusPending  RedemptionStatus = "pending"
	RedemptionStatusApproved RedemptionStatus = "approved"
	RedemptionStatusRejected RedemptionStatus = "rejected"
)

var validRedemptionStatuses = []RedemptionStatus{
	RedemptionStatusPending,
	RedemptionStatusApproved,
	RedemptionStatusRejected,
}

// IsValid reports whether the value matches the canonical redemption status enum.
func (s RedemptionStatus) IsValid() bool {
	for _, candidate := range validRedemptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRedemptionStatus converts the raw string to RedemptionStatus.
func ParseRedemptionStatus(value string) (RedemptionStatus, error) {
	for _, candidate := range validRedemptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid redemption status %q", value)
}
