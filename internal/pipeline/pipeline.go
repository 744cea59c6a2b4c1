package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dvaldes/nominas/internal/archive"
	"github.com/dvaldes/nominas/internal/logging"
	"github.com/dvaldes/nominas/internal/payroll"
)

// Config carries the knobs of a single run.
type Config struct {
	// Sender is the address payroll mail arrives from.
	Sender string

	// LookbackDays is how far back the mailbox search reaches.
	LookbackDays int

	// ZipPassword opens protected attachments; empty attempts extraction
	// without one.
	ZipPassword string

	// RootFolder is the destination folder name in storage (e.g. "NOMINAS").
	RootFolder string
}

// Pipeline pulls payroll zip attachments from mail and files their entries
// into storage. It is single-threaded; one Run is one sequential pass.
type Pipeline struct {
	mail    MailService
	storage StorageService
	cfg     Config
	now     func() time.Time
}

// New creates a pipeline over the given mail and storage services.
func New(mail MailService, storage StorageService, cfg Config) *Pipeline {
	return &Pipeline{
		mail:    mail,
		storage: storage,
		cfg:     cfg,
		now:     time.Now,
	}
}

// buildQuery renders the mailbox search query for the configured sender and
// lookback window.
func buildQuery(sender string, lookbackDays int, now time.Time) string {
	since := now.AddDate(0, 0, -lookbackDays).Format("2006/01/02")
	return fmt.Sprintf("from:%s after:%s has:attachment", sender, since)
}

// Run executes one pass: search, and for every matching message download its
// zip attachments, extract them, and upload each entry under its period name
// into <root>/<year>/. It returns the number of files uploaded.
//
// Failures are isolated per message: a message that cannot be fetched or
// processed is logged and skipped, the run continues with the next one.
// Within a message, download failures skip the part and folder or upload
// failures skip the file.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	query := buildQuery(p.cfg.Sender, p.cfg.LookbackDays, p.now())
	slog.Info("searching payroll mail",
		"sender", logging.AnonymizeEmail(p.cfg.Sender),
		"sender_domain", logging.ExtractDomain(p.cfg.Sender),
		"lookback_days", p.cfg.LookbackDays)

	ids, err := p.mail.SearchMessages(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(ids) == 0 {
		slog.Info("no messages to process")
		return 0, nil
	}
	slog.Info("found messages with attachments", "count", len(ids))

	uploaded := 0
	for _, id := range ids {
		n, err := p.processMessage(ctx, id)
		if err != nil {
			slog.Error("skipping message", logging.Message(id), logging.Err(err))
			continue
		}
		uploaded += n
	}

	slog.Info("processing completed", "files_uploaded", uploaded)
	return uploaded, nil
}

// processMessage handles one message: filter zip parts, download, extract,
// and upload every extracted entry. It returns how many files were uploaded
// for this message.
func (p *Pipeline) processMessage(ctx context.Context, id string) (int, error) {
	msg, err := p.mail.GetMessage(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to get message: %w", err)
	}

	uploaded := 0
	for _, part := range msg.Parts {
		if !strings.HasSuffix(strings.ToLower(part.Filename), ".zip") || part.AttachmentID == "" {
			continue
		}
		slog.Info("processing attachment", logging.Message(id), logging.Attachment(part.Filename))

		data, err := p.mail.DownloadAttachment(ctx, msg.ID, part.AttachmentID)
		if err != nil {
			slog.Warn("failed to download attachment, skipping part",
				logging.Message(id), logging.Attachment(part.Filename), logging.Err(err))
			continue
		}

		uploaded += p.uploadEntries(ctx, msg, part.Filename, archive.Extract(data, p.cfg.ZipPassword))
	}

	return uploaded, nil
}

// uploadEntries names and uploads every extracted archive entry. Entries are
// processed in name order so runs are deterministic.
func (p *Pipeline) uploadEntries(ctx context.Context, msg *Message, archiveName string, entries map[string][]byte) int {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	uploaded := 0
	for _, entryName := range names {
		fileName := payroll.Name(msg.ReceivedAt, entryName, archiveName)
		year := payroll.Year(fileName, msg.ReceivedAt)

		folderID, err := p.ResolveFolder(ctx, p.cfg.RootFolder, year)
		if err != nil {
			slog.Error("failed to resolve destination folder, skipping file",
				logging.File(fileName), logging.Folder(p.cfg.RootFolder+"/"+year), logging.Err(err))
			continue
		}

		fileID, err := p.storage.UploadFile(ctx, fileName, entries[entryName], folderID)
		if err != nil {
			slog.Error("failed to upload file",
				logging.File(fileName), logging.Folder(folderID), logging.Err(err))
			continue
		}

		slog.Info("uploaded file",
			logging.File(fileName),
			logging.Folder(p.cfg.RootFolder+"/"+year),
			"id", fileID)
		uploaded++
	}
	return uploaded
}
