// Package payroll derives canonical payroll filenames from an email's
// received date and the attachment metadata.
//
// Payslips arrive a couple of weeks after the month they cover, so a mail
// received early in a month names the previous month; mail received from the
// 14th onwards carries an extra payment for the current month. Archives whose
// name starts with 'Z' hold the annual tax certificate and get a fixed name
// tied to the previous fiscal year.
package payroll
