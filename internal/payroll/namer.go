package payroll

import (
	"fmt"
	"strings"
	"time"
)

// certificatePrefix marks archives that carry the annual tax certificate
// instead of a monthly payslip. The payroll provider names those Z*.zip.
const certificatePrefix = 'Z'

// payslipCutoffDay splits a month in two payroll runs: mail received before
// this day carries the previous month's payslip, mail received on or after it
// carries an extra payment for the current month.
const payslipCutoffDay = 14

// monthNames maps 1-indexed calendar months to their Spanish uppercase names
// as they appear in the destination filenames.
var monthNames = [13]string{
	"", // unused, months are 1-indexed
	"ENERO", "FEBRERO", "MARZO", "ABRIL",
	"MAYO", "JUNIO", "JULIO", "AGOSTO",
	"SEPTIEMBRE", "OCTUBRE", "NOVIEMBRE", "DICIEMBRE",
}

// Name derives the canonical payroll filename for an archive entry.
//
// receivedAt is when the carrying email arrived, originalName is the entry's
// name inside the archive (only its extension survives), and archiveName is
// the zip attachment's filename, used to detect the annual certificate.
//
// Name never fails: if receivedAt is the zero time or originalName is empty,
// it falls back to a wall-clock timestamped name so the file is still filed
// somewhere recognizable.
func Name(receivedAt time.Time, originalName, archiveName string) string {
	if receivedAt.IsZero() || originalName == "" {
		return fallbackName(originalName)
	}

	ext := extension(originalName)
	year, month, day := receivedAt.Date()

	// The annual certificate ignores the monthly rules entirely; it is
	// always filed under the previous fiscal year.
	if archiveName != "" && archiveName[0] == certificatePrefix {
		return fmt.Sprintf("Certificado_Ingresos_y_Retenciones_ejercicio_%d%s", year-1, ext)
	}

	previousMonth := int(month) - 1
	effectiveYear := year
	if previousMonth == 0 {
		previousMonth = 12
		effectiveYear = year - 1
	}

	if day < payslipCutoffDay {
		return fmt.Sprintf("%02d %s %d%s", previousMonth, monthNames[previousMonth], effectiveYear, ext)
	}
	return fmt.Sprintf("%02d extra %s %d%s", int(month), monthNames[month], year, ext)
}

// Year returns the 4-digit year segment a named file belongs under. Monthly
// payslips and certificates both end in "<year><ext>", so the year is the
// trailing 4-digit run of the base name. received is the fallback when the
// name does not follow the convention.
func Year(name string, received time.Time) string {
	base := strings.TrimSuffix(name, extension(name))
	if len(base) >= 4 {
		tail := base[len(base)-4:]
		if isDigits(tail) {
			return tail
		}
	}
	if received.IsZero() {
		received = time.Now()
	}
	return fmt.Sprintf("%04d", received.Year())
}

// extension returns "." plus the last dot segment of name, or "" when name
// has no dot.
func extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// fallbackName builds a timestamped name for entries whose metadata is too
// broken to derive a period from.
func fallbackName(originalName string) string {
	return time.Now().Format("20060102_150405") + "_" + originalName
}
