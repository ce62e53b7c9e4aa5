package rules

import "github.com/ivankudzin/recipemarket/internal/domain/enums"

// CanTransition reports whether a transaction may move from one status to another.
// Only pending transactions move, and only into a terminal status.
func CanTransition(from, to enums.TransactionStatus) bool {
	if from != enums.TransactionStatusPending {
		return false
	}
	return to.IsTerminal()
}

// AcceptsPayment reports whether payment details may still be (re)submitted.
func AcceptsPayment(status enums.TransactionStatus) bool {
	return status == enums.TransactionStatusPending
}
