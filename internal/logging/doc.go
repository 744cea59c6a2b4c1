// Package logging provides slog helpers shared across the application:
// handler setup, common attribute constructors, and PII-safe formatting of
// email addresses.
package logging
