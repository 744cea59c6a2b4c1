// Package pipeline orchestrates the payroll run: search the mailbox for
// payroll mail, download zip attachments, extract them, derive the period
// filename for each entry, and upload it into the <root>/<year>/ folder
// hierarchy of the storage backend.
//
// The mail and storage providers are consumed through narrow interfaces so
// the run can be exercised against in-memory fakes.
package pipeline
