package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dvaldes/nominas/internal/logging"
)

// ResolveFolder returns the id of the <rootName>/<year> folder, creating
// either level when it does not exist yet.
//
// If several folders share the root name, the one sitting at the storage
// root (no parent) wins; the list is newest-first, so ties go to the most
// recently created. A root folder that only exists nested somewhere is still
// used rather than treated as missing. The year folder is matched among the
// children of the resolved root; duplicates resolve to the newest.
func (p *Pipeline) ResolveFolder(ctx context.Context, rootName, year string) (string, error) {
	rootID, err := p.resolveRootFolder(ctx, rootName)
	if err != nil {
		return "", err
	}
	return p.resolveYearFolder(ctx, year, rootID)
}

func (p *Pipeline) resolveRootFolder(ctx context.Context, name string) (string, error) {
	folders, err := p.storage.ListFolders(ctx, name, "")
	if err != nil {
		return "", fmt.Errorf("failed to list root folder %q: %w", name, err)
	}

	if len(folders) == 0 {
		folder, err := p.storage.CreateFolder(ctx, name, "")
		if err != nil {
			return "", fmt.Errorf("failed to create root folder %q: %w", name, err)
		}
		slog.Info("created root folder", logging.Folder(name), "id", folder.ID)
		return folder.ID, nil
	}

	selected := folders[0]
	for _, f := range folders {
		if len(f.Parents) == 0 {
			selected = f
			break
		}
	}
	if len(folders) > 1 {
		slog.Debug("multiple root folders found, using the one at the root",
			logging.Folder(name), "count", len(folders), "id", selected.ID)
	}
	return selected.ID, nil
}

func (p *Pipeline) resolveYearFolder(ctx context.Context, year, parentID string) (string, error) {
	folders, err := p.storage.ListFolders(ctx, year, parentID)
	if err != nil {
		return "", fmt.Errorf("failed to list year folder %q: %w", year, err)
	}

	if len(folders) > 0 {
		return folders[0].ID, nil
	}

	folder, err := p.storage.CreateFolder(ctx, year, parentID)
	if err != nil {
		return "", fmt.Errorf("failed to create year folder %q: %w", year, err)
	}
	slog.Info("created year folder", logging.Folder(year), "id", folder.ID)
	return folder.ID, nil
}
