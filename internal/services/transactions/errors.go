package transactions

import "github.com/ivankudzin/recipemarket/internal/pkg/apperr"

const notAccessibleMessage = "Transaction not found or you do not have permission to update it"

var (
	ErrEmptyCart = apperr.Conflict("EMPTY_CART", "Cart is empty")

	// ErrNotAccessibleMissing and ErrNotAccessibleForeign read the same to a
	// caller so a buyer cannot discover other people's transactions.
	ErrNotAccessibleMissing = apperr.Forbidden("TRANSACTION_NOT_ACCESSIBLE", notAccessibleMessage)
	ErrNotAccessibleForeign = apperr.Forbidden("TRANSACTION_NOT_ACCESSIBLE", notAccessibleMessage)

	ErrAlreadyProcessed = apperr.Conflict("TRANSACTION_ALREADY_PROCESSED", "Transaction has already been processed")
	ErrMethodRequired   = apperr.Validation("PAYMENT_METHOD_REQUIRED", "Payment method is required")
	ErrProofRequired    = apperr.Validation("PAYMENT_PROOF_REQUIRED", "Payment proof is required")

	ErrTransactionNotFound  = apperr.NotFound("TRANSACTION_NOT_FOUND", "Transaction not found")
	ErrAlreadyVerified      = apperr.Conflict("TRANSACTION_ALREADY_VERIFIED", "Transaction is already verified")
	ErrCannotVerifyRejected = apperr.Conflict("CANNOT_VERIFY_REJECTED", "Cannot verify a rejected transaction")
	ErrNoRecipes            = apperr.Conflict("TRANSACTION_HAS_NO_RECIPES", "Transaction has no recipes")
	ErrCannotRejectVerified = apperr.Conflict("CANNOT_REJECT_VERIFIED", "Cannot reject a verified transaction")
	ErrAlreadyRejected      = apperr.Conflict("TRANSACTION_ALREADY_REJECTED", "Transaction is already rejected")
	ErrNotesRequired        = apperr.Validation("ADMIN_NOTES_REQUIRED", "Admin notes are required when rejecting a transaction")

	ErrInvalidStatus = apperr.Validation("INVALID_STATUS", "Status must be one of: pending, verified, rejected")
)
