// Package gmail wraps the Gmail API with the narrow mail surface the
// pipeline consumes: message search, full message fetch, and attachment
// download.
package gmail
