// Package config loads and holds process configuration for the WorkBoard
// MCP server.
//
// The only required setting is the WorkBoard API token. It is wrapped in a
// Secret so that no printable representation of the configuration can leak
// it: redaction is a property of the type, not of call-site discipline.
package config

import (
	"fmt"
	"os"
)

// BaseURL is the WorkBoard API origin. It is intentionally a constant and
// never read from configuration: the server must not be redirectable to an
// arbitrary origin.
const BaseURL = "https://www.myworkboard.com/wb/apis"

const (
	// EnvToken names the environment variable holding the API token.
	EnvToken = "WORKBOARD_API_TOKEN"

	// EnvAuditDB names the optional environment variable pointing at the
	// sqlite audit trail file. Empty disables the sqlite trail.
	EnvAuditDB = "WORKBOARD_AUDIT_DB"
)

// Secret is an opaque credential. Its String, GoString and MarshalJSON
// methods all redact, so fmt verbs, structured logging and JSON encoding
// cannot reproduce the underlying value. Use Reveal only at the point the
// value goes on the wire.
type Secret string

// Reveal returns the underlying credential value.
func (s Secret) Reveal() string { return string(s) }

func (s Secret) String() string { return "***" }

func (s Secret) GoString() string { return "config.Secret(***)" }

// MarshalJSON encodes the secret as a redacted placeholder.
func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"***"`), nil }

// ConfigurationError reports invalid or missing startup configuration.
// It is fatal: the server refuses to start without a valid configuration.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return e.msg }

// Config is the immutable process configuration, built once at startup and
// shared read-only by all invocations.
type Config struct {
	// Token is the WorkBoard API bearer token.
	Token Secret

	// AuditDBPath is the sqlite audit trail location. Empty means the
	// trail is disabled and audit records only go to the structured log.
	AuditDBPath string
}

// Load builds the configuration from the process environment.
func Load() (*Config, error) {
	token := os.Getenv(EnvToken)
	if token == "" {
		return nil, &ConfigurationError{msg: fmt.Sprintf(
			"%s environment variable required. Generate a JWT token from your WorkBoard admin settings.",
			EnvToken,
		)}
	}

	return &Config{
		Token:       Secret(token),
		AuditDBPath: os.Getenv(EnvAuditDB),
	}, nil
}
