package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvaldes/nominas/internal/config"
	"github.com/dvaldes/nominas/internal/drive"
	"github.com/dvaldes/nominas/internal/gmail"
	"github.com/dvaldes/nominas/internal/logging"
	"github.com/dvaldes/nominas/internal/pipeline"
)

func newProcessCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Fetch payroll mail and file the attachments into Drive",
		Long: `Search Gmail for payroll mail from the configured sender, download the
zip attachments, extract them (with the configured password if any), rename
each entry after its payroll period, and upload it into <root>/<year>/ in
Google Drive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(verbose)

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}

			if !gmail.HasTokenForAccount(cfg.Account) {
				return fmt.Errorf("no stored Google token for account %q; run 'nominas auth' first", cfg.Account)
			}

			ctx := cmd.Context()
			mailClient, err := gmail.NewClientForAccount(ctx, cfg.Account)
			if err != nil {
				return fmt.Errorf("failed to create Gmail client: %w", err)
			}
			storageClient, err := drive.NewClientForAccount(ctx, cfg.Account)
			if err != nil {
				return fmt.Errorf("failed to create Drive client: %w", err)
			}

			p := pipeline.New(mailClient, storageClient, pipeline.Config{
				Sender:       cfg.Sender,
				LookbackDays: cfg.LookbackDays,
				ZipPassword:  cfg.ZipPassword,
				RootFolder:   cfg.RootFolder,
			})

			count, err := p.Run(ctx)
			if err != nil {
				return fmt.Errorf("error during processing: %w", err)
			}

			fmt.Printf("Processed %d files\n", count)
			return nil
		},
	}

	cmd.Flags().String("sender", "", "email address payroll mail arrives from (required unless configured)")
	cmd.Flags().Int("lookback-days", config.DefaultLookbackDays, "how many days back to search")
	cmd.Flags().String("zip-password", "", "password for protected zip attachments")
	cmd.Flags().String("root-folder", config.DefaultRootFolder, "destination folder name in Drive")
	cmd.Flags().String("account", config.DefaultAccount, "Google account name to use")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}
