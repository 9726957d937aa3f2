package contract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPlayerNotFound     = errors.New("player not found in contract")
	ErrPlayerFolded       = errors.New("player has folded")
	ErrInsufficientEscrow = errors.New("bet exceeds escrow balance")
	ErrKeychainExists     = errors.New("keychain already submitted")
	ErrContractInvalid    = errors.New("contract is no longer active")
)

// Verification failure codes.
const (
	// CodeCrypto marks a keychain that could not be applied or whose
	// output disagrees with what was submitted.
	CodeCrypto = 1
	// CodeStructure marks a malformed history: duplicate or unavailable
	// selections, unmappable cards, missing or misplaced entries.
	CodeStructure = 2
)

// VerificationError reports a history that does not replay. FailedPIDs
// names the players the failure is attributed to.
type VerificationError struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	FailedPIDs []string `json:"failedPIDs"`
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed (code %d): %s [%s]", e.Code, e.Message,
		strings.Join(e.FailedPIDs, ","))
}

func verifyErr(code int, pids []string, format string, args ...interface{}) *VerificationError {
	if pids == nil {
		pids = []string{}
	}
	return &VerificationError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		FailedPIDs: pids,
	}
}

// ValidationError reports an inbound contract payload that is not
// acceptable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
