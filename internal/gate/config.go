package gate

import (
	"errors"
	"fmt"
	"time"
)

// Path names a validation path. Each path has its own expected key id and
// its own expected token type.
type Path string

const (
	PathPublicAccess Path = "public-access"
	PathLocalAccess  Path = "local-access"
	PathLocalRefresh Path = "local-refresh"
)

// Defaults applied by Config.withDefaults for zero fields.
const (
	DefaultClockSkew        = 30 * time.Second
	DefaultMaxClaimsBytes   = 1024
	DefaultMinTokenLength   = 64
	DefaultMaxTokenLength   = 700
	DefaultPermits          = 100
	DefaultMaxTokenLifetime = 720 * time.Hour // longest-lived flavor (refresh)
)

// Config carries every knob the engine recognises. It is passed once at
// construction; the engine never re-reads configuration at runtime.
type Config struct {
	// Issuer and Audience the claims must carry, compared exactly.
	Issuer   string
	Audience string

	// Expected key id per validation path. Exact match, no fallback: a
	// token minted under a rotated-out kid is rejected even if the old key
	// would still verify it.
	PublicAccessKID string
	LocalAccessKID  string
	LocalRefreshKID string

	// ClockSkew tolerated when comparing exp/nbf/iat against now.
	ClockSkew time.Duration

	// MaxClaimsBytes caps the serialized claims payload.
	MaxClaimsBytes int

	// Raw token length bounds, in characters.
	MinTokenLength int
	MaxTokenLength int

	// Permit pool sizes. Validation permits bound whole-token validations,
	// claims permits bound pipeline executions.
	ValidationPermits int64
	ClaimsPermits     int64

	// MaxTokenLifetime is how long revocation records are kept: past it,
	// the token is rejected on timing alone and the record is dead weight.
	MaxTokenLifetime time.Duration
}

func (c Config) withDefaults() Config {
	if c.ClockSkew <= 0 {
		c.ClockSkew = DefaultClockSkew
	}
	if c.MaxClaimsBytes <= 0 {
		c.MaxClaimsBytes = DefaultMaxClaimsBytes
	}
	if c.MinTokenLength <= 0 {
		c.MinTokenLength = DefaultMinTokenLength
	}
	if c.MaxTokenLength <= 0 {
		c.MaxTokenLength = DefaultMaxTokenLength
	}
	if c.ValidationPermits <= 0 {
		c.ValidationPermits = DefaultPermits
	}
	if c.ClaimsPermits <= 0 {
		c.ClaimsPermits = DefaultPermits
	}
	if c.MaxTokenLifetime <= 0 {
		c.MaxTokenLifetime = DefaultMaxTokenLifetime
	}
	return c
}

// Validate rejects configurations the engine cannot serve. Called by New
// after defaults are applied.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("gate: config missing issuer")
	}
	if c.Audience == "" {
		return errors.New("gate: config missing audience")
	}
	if c.PublicAccessKID == "" || c.LocalAccessKID == "" || c.LocalRefreshKID == "" {
		return errors.New("gate: config missing expected key id for one or more paths")
	}
	if c.MinTokenLength >= c.MaxTokenLength {
		return fmt.Errorf("gate: token length bounds inverted (%d >= %d)", c.MinTokenLength, c.MaxTokenLength)
	}
	return nil
}

// expectedKID returns the configured kid for a path.
func (c Config) expectedKID(path Path) string {
	switch path {
	case PathPublicAccess:
		return c.PublicAccessKID
	case PathLocalAccess:
		return c.LocalAccessKID
	case PathLocalRefresh:
		return c.LocalRefreshKID
	default:
		return ""
	}
}
