package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/dvaldes/nominas/internal/google"
	"github.com/dvaldes/nominas/internal/pipeline"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB).
	MaxAttachmentSize = 25 * 1024 * 1024

	// maxPageSize is the Gmail API's maximum page size for message listing.
	maxPageSize = 100
)

// Client wraps the Gmail Users service. It satisfies pipeline.MailService.
type Client struct {
	svc     *gmail.UsersService
	account string
}

// Account returns the account name this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// HasTokenForAccount checks if a valid OAuth token exists for the specified account.
func HasTokenForAccount(account string) bool {
	return google.HasTokenForAccount(account)
}

// NewClientForAccount creates a new Gmail client with OAuth2 authentication
// for a specific account. Returns an error if no valid token exists; run
// `nominas auth` to obtain one.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	client, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		account: account,
	}, nil
}

// SearchMessages lists the ids of all messages matching the query, paging
// through the result set.
func (c *Client) SearchMessages(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		req := c.svc.Messages.List("me").Q(query).MaxResults(maxPageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			return ids, nil
		}
		pageToken = res.NextPageToken
	}
}

// GetMessage retrieves a full message and reduces it to the pipeline's
// Message shape: received time from the internal date (epoch millis) and a
// flat list of attachment-bearing parts.
func (c *Client) GetMessage(ctx context.Context, id string) (*pipeline.Message, error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	out := &pipeline.Message{ID: msg.Id}
	if msg.InternalDate > 0 {
		out.ReceivedAt = time.UnixMilli(msg.InternalDate)
	}
	out.Parts = flattenParts(msg.Payload)
	return out, nil
}

// flattenParts walks the MIME tree and collects every part. A payload
// without sub-parts is treated as a single part itself, which is how simple
// non-multipart messages arrive.
func flattenParts(payload *gmail.MessagePart) []pipeline.Part {
	if payload == nil {
		return nil
	}

	var parts []pipeline.Part
	walkParts(payload, func(part *gmail.MessagePart) {
		p := pipeline.Part{Filename: part.Filename}
		if part.Body != nil {
			p.AttachmentID = part.Body.AttachmentId
		}
		parts = append(parts, p)
	})
	return parts
}

// walkParts recursively walks through message parts.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// DownloadAttachment retrieves the content of an attachment.
func (c *Client) DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	attachment, err := c.svc.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if attachment.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, MaxAttachmentSize)
	}

	// Gmail API uses RFC 4648 base64url encoding; some payloads show up in
	// standard base64, so fall back before giving up.
	data, err := base64.URLEncoding.DecodeString(attachment.Data)
	if err != nil {
		data, err = base64.StdEncoding.DecodeString(attachment.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode attachment data: %w", err)
		}
	}

	return data, nil
}
