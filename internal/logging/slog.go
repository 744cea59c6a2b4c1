package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyMessage    = "message_id"
	KeyAttachment = "attachment"
	KeyFolder     = "folder"
	KeyFile       = "file"
	KeyError      = "error"
)

// Setup installs a text handler writing to stderr as the default logger.
// verbose lowers the level to debug.
func Setup(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// Message returns a slog attribute for a mail message identifier.
func Message(id string) slog.Attr {
	return slog.String(KeyMessage, id)
}

// Attachment returns a slog attribute for an attachment filename.
func Attachment(name string) slog.Attr {
	return slog.String(KeyAttachment, name)
}

// Folder returns a slog attribute for a storage folder path or id.
func Folder(folder string) slog.Attr {
	return slog.String(KeyFolder, folder)
}

// File returns a slog attribute for a derived filename.
func File(name string) slog.Attr {
	return slog.String(KeyFile, name)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from
// output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging
// purposes. This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// ExtractDomain extracts the domain part from an email address, useful for
// lower-cardinality logging where the full address would be PII.
func ExtractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
