package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the nominas application
var rootCmd = &cobra.Command{
	Use:   "nominas",
	Short: "Files payroll email attachments into Google Drive",
	Long: `nominas pulls payroll mail from Gmail, extracts the zip attachments,
renames each payslip after the payroll period it covers, and uploads it into
a <folder>/<year>/ hierarchy in Google Drive.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "nominas version %s\n" .Version}}`)

	// If no subcommand is provided, run the process command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "process")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
