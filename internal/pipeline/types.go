package pipeline

import (
	"context"
	"time"
)

// Part is one MIME part of a message, reduced to what the pipeline needs:
// the attachment filename and the id used to fetch its bytes. Parts without
// an attachment id cannot be downloaded and are ignored.
type Part struct {
	Filename     string
	AttachmentID string
}

// Message is a mail message reduced to its identifier, the time it was
// received, and its flat list of parts.
type Message struct {
	ID         string
	ReceivedAt time.Time
	Parts      []Part
}

// Folder is a storage folder. Parents is empty for folders at the storage
// root.
type Folder struct {
	ID      string
	Name    string
	Parents []string
}

// MailService is the mail surface the pipeline consumes.
type MailService interface {
	// SearchMessages returns the ids of messages matching the provider's
	// query syntax.
	SearchMessages(ctx context.Context, query string) ([]string, error)

	// GetMessage fetches a full message by id.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// DownloadAttachment fetches the raw bytes of one attachment.
	DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// StorageService is the storage surface the pipeline consumes.
type StorageService interface {
	// ListFolders returns non-trashed folders with the given name, newest
	// first. parentID restricts the search to children of that folder;
	// empty means no parent restriction.
	ListFolders(ctx context.Context, name, parentID string) ([]Folder, error)

	// CreateFolder creates a folder, nested under parentID when given or at
	// the storage root otherwise.
	CreateFolder(ctx context.Context, name, parentID string) (*Folder, error)

	// UploadFile stores data as a file named name under the parent folder
	// and returns the created file's id.
	UploadFile(ctx context.Context, name string, data []byte, parentID string) (string, error)
}
