package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvaldes/nominas/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Gmail and Drive",
		Long: `Print the Google consent URL, then exchange the pasted authorization
code for a token and store it for later runs.

The OAuth client credentials (credentials.json exported from Google Cloud
Console for a desktop application) must be in place first; this command
prints the expected location when they are missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := google.GetAuthURLForAccount(account)
			if err != nil {
				if path, pathErr := google.CredentialsPath(); pathErr == nil {
					return fmt.Errorf("%w\n\nPlace your OAuth client file at %s", err, path)
				}
				return err
			}

			fmt.Println("Visit the following URL to authorize nominas:")
			fmt.Println()
			fmt.Println("  " + url)
			fmt.Println()
			fmt.Print("Paste the authorization code here: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := google.SaveTokenForAccount(cmd.Context(), account, code); err != nil {
				return err
			}

			fmt.Printf("Token stored for account %q\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to store the token under")
	return cmd
}
