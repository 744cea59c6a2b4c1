package archive

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/yeka/zip"
)

const (
	// MaxEntrySize caps how much is read out of a single archive entry (50MB).
	// Payslips are small PDFs; anything larger is treated as corrupt.
	MaxEntrySize = 50 * 1024 * 1024
)

// Extract reads every non-directory entry of the zip archive in data and
// returns a map of entry name to entry content. password is applied to
// encrypted entries; pass "" for unprotected archives.
//
// Extraction is best-effort: an entry that fails to open or read (corrupt
// data, wrong password) is skipped and the remaining entries are still
// extracted. A container that cannot be parsed at all yields an empty map.
// Extract never returns an error; the caller treats an empty map as nothing
// to upload.
func Extract(data []byte, password string) map[string][]byte {
	entries := make(map[string][]byte)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		slog.Warn("failed to open zip archive", "error", err)
		return entries
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if file.IsEncrypted() && password != "" {
			file.SetPassword(password)
		}

		content, err := readEntry(file)
		if err != nil {
			slog.Warn("skipping archive entry", "entry", file.Name, "error", err)
			continue
		}
		entries[file.Name] = content
	}

	return entries
}

// readEntry reads a single zip entry fully into memory, bounded by
// MaxEntrySize. Decryption and CRC errors can surface on Read rather than
// Open, so the copy error matters as much as the open error.
func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(rc, MaxEntrySize)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
