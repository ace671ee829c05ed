package enums

import "fmt"

// WalletTransactionType distinguishes ledger directions.
type WalletTransactionType string

const (
	WalletTransactionDebit  WalletTransactionType = "debit"
	WalletTransactionCredit WalletTransactionType = "credit"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionDebit,
	WalletTransactionCredit,
}

// IsValid reports whether the value is a known WalletTransactionType.
func (w WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}

// WalletTransactionStatus tracks the settlement state of a wallet entry.
type WalletTransactionStatus string

const (
	WalletTransactionPending   WalletTransactionStatus = "pending"
	WalletTransactionCompleted WalletTransactionStatus = "completed"
	WalletTransactionFailed    WalletTransactionStatus = "failed"
)

var validWalletTransactionStatuses = []WalletTransactionStatus{
	WalletTransactionPending,
	WalletTransactionCompleted,
	WalletTransactionFailed,
}

// IsValid reports whether the value is a known WalletTransactionStatus.
func (w WalletTransactionStatus) IsValid() bool {
	for _, candidate := range validWalletTransactionStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletTransactionStatus converts raw input into a WalletTransactionStatus.
func ParseWalletTransactionStatus(value string) (WalletTransactionStatus, error) {
	for _, candidate := range validWalletTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction status %q", value)
}
