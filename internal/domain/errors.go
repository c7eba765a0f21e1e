package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthExpired = errors.New("session expired")

	ErrWalletUnavailable   = errors.New("wallet not connected")
	ErrSignatureRejected   = errors.New("wallet signature rejected")
	ErrInsufficientBalance = errors.New("wallet balance not enough")
	ErrPaymentFailed       = errors.New("payment transaction failed")
	ErrBalanceQuery        = fmt.Errorf("%w: balance query failed", ErrWalletUnavailable)

	ErrServerRejected = errors.New("request rejected by server")

	ErrTemplateFetchFailed = errors.New("template fetch failed")
	ErrRender              = errors.New("document render failed")

	ErrActionInFlight   = errors.New("another action is in progress for this contract")
	ErrActionNotAllowed = errors.New("action not available in current contract state")
	ErrInvalidForm      = errors.New("invalid form")
	ErrSignatureUpload  = errors.New("signature image upload failed")
)

// ServerError is a failed API call. It matches ErrServerRejected with errors.Is.
type ServerError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("server rejected request (status %d): %s", e.StatusCode, e.Message)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServerRejected
}

// FormError lists the fields of a user form that failed validation.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("invalid form: %d field(s) failed validation", len(e.Fields))
}

func (e *FormError) Is(target error) bool {
	return target == ErrInvalidForm
}

type userMessage struct {
	target error
	key    string
	text   string
}

// Order matters: narrower errors come before the ones they wrap.
var userMessages = []userMessage{
	{ErrAuthExpired, "SESSION_EXPIRED", "Your session has expired, please log in again."},
	{ErrBalanceQuery, "BALANCE_QUERY_FAILED", "Could not read your wallet balance."},
	{ErrWalletUnavailable, "METAMASK_NOT_CONNECTED", "Wallet is not connected."},
	{ErrSignatureRejected, "METAMASK_SIGNATURE_FAILED", "Wallet signature was rejected."},
	{ErrInsufficientBalance, "BALANCE_NOT_ENOUGH", "Your wallet balance is not enough to pay the signing fee."},
	{ErrPaymentFailed, "TRANSACTION_FAILED", "The signing fee transaction failed."},
	{ErrSignatureUpload, "UPLOAD_SIGNATURE_FAILED", "Could not upload the signature image."},
	{ErrServerRejected, "SYSTEM_MAINTENANCE", "The server rejected the request, please try again later."},
	{ErrTemplateFetchFailed, "TEMPLATE_FETCH_FAILED", "Could not download the document template."},
	{ErrRender, "RENDER_FAILED", "Could not generate the document."},
	{ErrActionInFlight, "ACTION_IN_PROGRESS", "Another action is still in progress for this contract."},
	{ErrActionNotAllowed, "ACTION_NOT_ALLOWED", "This action is not available for the contract right now."},
	{ErrInvalidForm, "INVALID_FORM", "Please fill in all required fields."},
}

// MessageKey returns the stable message key for err, or "UNKNOWN_ERROR".
func MessageKey(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.target) {
			return m.key
		}
	}
	return "UNKNOWN_ERROR"
}

// UserMessage returns the user-facing text for err.
func UserMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.target) {
			return m.text
		}
	}
	return "Something went wrong."
}
