package enums

import "fmt"

// TransactionReason tags why a points transaction was written.
type TransactionReason string

const (
	TransactionReasonImageAward     TransactionReason = "image_message_award"
	TransactionReasonDeletedRevert  TransactionReason = "message_deleted_revert"
	TransactionReasonManualCredit   TransactionReason = "manual_credit"
	TransactionReasonPurchaseCredit TransactionReason = "purchase_credit"
	TransactionReasonRedemption     TransactionReason = "redemption_debit"
)

var validTransactionReasons = []TransactionReason{
	TransactionReasonImageAward,
	TransactionReasonDeletedRevert,
	TransactionReasonManualCredit,
	TransactionReasonPurchaseCredit,
	TransactionReasonRedemption,
}

// IsValid reports whether the value matches the canonical transaction reason enum.
func (r TransactionReason) IsValid() bool {
	for _, candidate := range validTransactionReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseTransactionReason converts the raw string to TransactionReason.
func ParseTransactionReason(value string) (TransactionReason, error) {
	for _, candidate := range validTransactionReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction reason %q", value)
}
