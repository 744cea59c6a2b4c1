package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dvaldes/nominas/internal/google"
	"github.com/dvaldes/nominas/internal/pipeline"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders.
	FolderMimeType = "application/vnd.google-apps.folder"

	// uploadMimeType is used for all uploaded payroll files. Drive keeps the
	// bytes as-is; the extension in the name carries the real type.
	uploadMimeType = "application/octet-stream"
)

// Client wraps the Google Drive API service. It satisfies
// pipeline.StorageService.
type Client struct {
	service *drive.Service
	account string
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a new Google Drive client with OAuth2
// authentication for a specific account. Returns an error if no valid token
// exists; run `nominas auth` to obtain one.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	driveService, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{
		service: driveService,
		account: account,
	}, nil
}

// folderQuery renders the Drive search query for non-trashed folders named
// name, restricted to children of parentID when it is non-empty.
func folderQuery(name, parentID string) string {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQueryTerm(name), FolderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQueryTerm(parentID))
	}
	return query
}

// ListFolders returns non-trashed folders named name, newest first. When
// parentID is non-empty, only children of that folder are returned.
func (c *Client) ListFolders(ctx context.Context, name, parentID string) ([]pipeline.Folder, error) {
	fileList, err := c.service.Files.List().
		Context(ctx).
		Q(folderQuery(name, parentID)).
		Spaces("drive").
		OrderBy("createdTime desc").
		Fields("files(id, name, parents)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list folders named %q: %w", name, err)
	}

	folders := make([]pipeline.Folder, len(fileList.Files))
	for i, f := range fileList.Files {
		folders[i] = pipeline.Folder{
			ID:      f.Id,
			Name:    f.Name,
			Parents: f.Parents,
		}
	}
	return folders, nil
}

// CreateFolder creates a folder, nested under parentID when given or at the
// Drive root otherwise.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*pipeline.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	file := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}
	if parentID != "" {
		file.Parents = []string{parentID}
	}

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Fields("id, name, parents").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %q: %w", name, err)
	}

	return &pipeline.Folder{
		ID:      driveFile.Id,
		Name:    driveFile.Name,
		Parents: driveFile.Parents,
	}, nil
}

// UploadFile uploads data as a file named name into the parent folder and
// returns the created file's id.
func (c *Client) UploadFile(ctx context.Context, name string, data []byte, parentID string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}
	if parentID == "" {
		return "", fmt.Errorf("parent folder id is required")
	}

	file := &drive.File{
		Name:    name,
		Parents: []string{parentID},
	}

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Media(bytes.NewReader(data), googleapi.ContentType(uploadMimeType)).
		Fields("id").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file %q: %w", name, err)
	}

	return driveFile.Id, nil
}

// escapeQueryTerm escapes single quotes and backslashes for use inside a
// Drive query string literal.
func escapeQueryTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
