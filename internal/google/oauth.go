package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// appDir is the directory name used under the user config and cache dirs.
const appDir = "nominas"

// clientSecrets mirrors the credentials.json file Google Cloud Console
// exports for an installed (desktop) OAuth client.
type clientSecrets struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
}

// CredentialsPath returns the expected location of the OAuth client file.
func CredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(dir, appDir, "credentials.json"), nil
}

// getOAuthConfig loads the OAuth client from credentials.json. The mailbox
// is read-only; Drive access is limited to files this app creates.
func getOAuthConfig() (*oauth2.Config, error) {
	path, err := CredentialsPath()
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth credentials %s: %w", path, err)
	}

	var secrets clientSecrets
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse OAuth credentials %s: %w", path, err)
	}
	if secrets.Installed.ClientID == "" || secrets.Installed.ClientSecret == "" {
		return nil, fmt.Errorf("OAuth credentials %s missing installed.client_id or client_secret", path)
	}

	const oob = "urn:ietf:wg:oauth:2.0:oob"
	return &oauth2.Config{
		ClientID:     secrets.Installed.ClientID,
		ClientSecret: secrets.Installed.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  oob,
		Scopes: []string{
			gmail.GmailReadonlyScope,
			drive.DriveFileScope,
		},
	}, nil
}

// tokenFile returns the token cache path for an account.
func tokenFile(account string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine cache directory: %w", err)
	}
	name := "google.token"
	if account != "" && account != "default" {
		name = "google." + account + ".token"
	}
	return filepath.Join(dir, appDir, name), nil
}

// HasTokenForAccount checks if a token has been stored for the account.
// It does not validate the token against the OAuth endpoint.
func HasTokenForAccount(account string) bool {
	path, err := tokenFile(account)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// GetAuthURLForAccount returns the consent URL the user must visit to
// authorize the application.
func GetAuthURLForAccount(account string) (string, error) {
	conf, err := getOAuthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(account, oauth2.AccessTypeOffline), nil
}

// SaveTokenForAccount exchanges an authorization code for tokens and stores
// them for the account.
func SaveTokenForAccount(ctx context.Context, account, authCode string) error {
	conf, err := getOAuthConfig()
	if err != nil {
		return err
	}

	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	path, err := tokenFile(account)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tokenData := t.AccessToken + " " + t.RefreshToken
	if err := os.WriteFile(path, []byte(tokenData), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// GetTokenSourceForAccount returns an OAuth2 token source backed by the
// stored token. The access token is marked expired so the source refreshes
// it on first use.
func GetTokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	conf, err := getOAuthConfig()
	if err != nil {
		return nil, err
	}

	path, err := tokenFile(account)
	if err != nil {
		return nil, err
	}
	slurp, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no stored Google OAuth token for account %s", account)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format in %s", path)
	}

	ts := conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("cached token is invalid: %w", err)
	}
	return ts, nil
}

// GetHTTPClientForAccount returns an HTTP client configured with OAuth2
// authentication for the account.
func GetHTTPClientForAccount(ctx context.Context, account string) (*http.Client, error) {
	ts, err := GetTokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}
