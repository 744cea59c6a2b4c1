// Package cmd implements the command-line interface for nominas.
//
// This package provides the following commands:
//   - process: fetch payroll mail, extract zip attachments, and upload the
//     renamed files into Google Drive
//   - auth: authorize access to Gmail and Drive and store the token
//   - version: display version information
//
// The process command is the default command when no subcommand is specified.
package cmd
