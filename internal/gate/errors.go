package gate

import (
	"errors"
	"fmt"
)

// Kind enumerates every way a validation can fail. The set is closed:
// callers switch on it (or errors.Is against the matching sentinel) and
// treat anything except KindTooManyRequests as a hard reject.
type Kind int

const (
	KindInvalidTokenLength Kind = iota
	KindInvalidTokenFormat
	KindInvalidSignature
	KindInvalidToken
	KindInvalidKeyID
	KindClaimsParsing
	KindNullPayload
	KindClaimsSizeExceeded
	KindMissingClaim
	KindInvalidTokenType
	KindTokenExpired
	KindTokenNotYetValid
	KindTokenIssuedInFuture
	KindInvalidIssuer
	KindInvalidAudience
	KindInvalidSubject
	KindInvalidScope
	KindAccountDisabled
	KindSessionMismatch
	KindTooManyRequests
)

var (
	ErrInvalidTokenLength  = errors.New("invalid_token_length")
	ErrInvalidTokenFormat  = errors.New("invalid_token_format")
	ErrInvalidSignature    = errors.New("invalid_signature")
	ErrInvalidToken        = errors.New("invalid_token")
	ErrInvalidKeyID        = errors.New("invalid_key_id")
	ErrClaimsParsing       = errors.New("claims_parsing_error")
	ErrNullPayload         = errors.New("null_payload")
	ErrClaimsSizeExceeded  = errors.New("claims_size_exceeded")
	ErrMissingClaim        = errors.New("missing_claim")
	ErrInvalidTokenType    = errors.New("invalid_token_type")
	ErrTokenExpired        = errors.New("token_expired")
	ErrTokenNotYetValid    = errors.New("token_not_yet_valid")
	ErrTokenIssuedInFuture = errors.New("token_issued_in_future")
	ErrInvalidIssuer       = errors.New("invalid_issuer")
	ErrInvalidAudience     = errors.New("invalid_audience")
	ErrInvalidSubject      = errors.New("invalid_subject")
	ErrInvalidScope        = errors.New("invalid_scope")
	ErrAccountDisabled     = errors.New("account_disabled")
	ErrSessionMismatch     = errors.New("session_mismatch")
	ErrTooManyRequests     = errors.New("too_many_requests")
)

var kindSentinels = map[Kind]error{
	KindInvalidTokenLength:  ErrInvalidTokenLength,
	KindInvalidTokenFormat:  ErrInvalidTokenFormat,
	KindInvalidSignature:    ErrInvalidSignature,
	KindInvalidToken:        ErrInvalidToken,
	KindInvalidKeyID:        ErrInvalidKeyID,
	KindClaimsParsing:       ErrClaimsParsing,
	KindNullPayload:         ErrNullPayload,
	KindClaimsSizeExceeded:  ErrClaimsSizeExceeded,
	KindMissingClaim:        ErrMissingClaim,
	KindInvalidTokenType:    ErrInvalidTokenType,
	KindTokenExpired:        ErrTokenExpired,
	KindTokenNotYetValid:    ErrTokenNotYetValid,
	KindTokenIssuedInFuture: ErrTokenIssuedInFuture,
	KindInvalidIssuer:       ErrInvalidIssuer,
	KindInvalidAudience:     ErrInvalidAudience,
	KindInvalidSubject:      ErrInvalidSubject,
	KindInvalidScope:        ErrInvalidScope,
	KindAccountDisabled:     ErrAccountDisabled,
	KindSessionMismatch:     ErrSessionMismatch,
	KindTooManyRequests:     ErrTooManyRequests,
}

func (k Kind) String() string {
	if s, ok := kindSentinels[k]; ok {
		return s.Error()
	}
	return "unknown"
}

// Retryable reports whether a caller should retry with backoff. Admission
// rejections are load shedding, not verdicts on the token; everything else
// is final.
func (k Kind) Retryable() bool { return k == KindTooManyRequests }

// SignalsForgery reports whether this failure kind is treated as a likely
// forgery or replay, which is what decides whether the engine records a
// revocation. Authorization outcomes (scope, disabled account) are routine
// and excluded, as are structural/cryptographic failures where no token id
// can be trusted anyway.
func (k Kind) SignalsForgery() bool {
	switch k {
	case KindMissingClaim, KindInvalidTokenType,
		KindTokenExpired, KindTokenNotYetValid, KindTokenIssuedInFuture,
		KindInvalidIssuer, KindInvalidAudience, KindInvalidSubject,
		KindSessionMismatch:
		return true
	default:
		return false
	}
}

// ValidationError is the engine's single failure type. TokenID is the jti
// when the claims got far enough to be read, so callers can log rejections
// without re-parsing the token.
type ValidationError struct {
	Kind    Kind
	TokenID string
	Reason  string
}

func (e *ValidationError) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.TokenID != "" {
		msg = fmt.Sprintf("%s (token %s)", msg, e.TokenID)
	}
	return msg
}

// Unwrap exposes the kind's sentinel so errors.Is(err, gate.ErrTokenExpired)
// works without fishing the struct out first.
func (e *ValidationError) Unwrap() error { return kindSentinels[e.Kind] }

func failWith(kind Kind, tokenID, reason string) *ValidationError {
	return &ValidationError{Kind: kind, TokenID: tokenID, Reason: reason}
}

// KindOf extracts the failure kind from any error returned by the engine.
// The second return is false for collaborator/infrastructure errors that
// are not validation verdicts.
func KindOf(err error) (Kind, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return 0, false
}
