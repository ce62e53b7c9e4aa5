package enums

import "strings"

type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusVerified TransactionStatus = "verified"
	TransactionStatusRejected TransactionStatus = "rejected"
)

func ParseTransactionStatus(raw string) (TransactionStatus, bool) {
	switch TransactionStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case TransactionStatusPending:
		return TransactionStatusPending, true
	case TransactionStatusVerified:
		return TransactionStatusVerified, true
	case TransactionStatusRejected:
		return TransactionStatusRejected, true
	default:
		return "", false
	}
}

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusVerified || s == TransactionStatusRejected
}
