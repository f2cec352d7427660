package drive

import (
	"context"
	"fmt"
	"log/slog"

	"quasarcli/internal/errors"
	"quasarcli/pkg/contracts/domain"
)

// spreadsheetMimes are the file types a folder listing picks up.
var spreadsheetMimes = []string{domain.MimeSpreadsheet, domain.MimeCSV, domain.MimeXLSX}

// Enumerator resolves a Drive folder (optionally recursive) plus an explicit
// id list into a deduplicated, order-stable set of spreadsheet sources.
type Enumerator struct {
	api       API
	logger    *slog.Logger
	errlog    *errors.Log
	folderID  string
	recursive bool
	extraIDs  []string
}

// NewEnumerator creates a source enumerator. errlog receives per-item
// failures; only an unreadable top-level folder fails enumeration.
func NewEnumerator(api API, folderID string, recursive bool, extraIDs []string, logger *slog.Logger, errlog *errors.Log) *Enumerator {
	if logger == nil {
		logger = slog.Default()
	}
	if errlog == nil {
		errlog = errors.NewLog(0)
	}
	return &Enumerator{
		api:       api,
		logger:    logger,
		errlog:    errlog,
		folderID:  folderID,
		recursive: recursive,
		extraIDs:  extraIDs,
	}
}

// Enumerate lists the folder (and subfolders when recursive), resolves the
// explicit ids through one level of shortcut indirection, and returns a
// deduplicated source list in discovery order.
func (e *Enumerator) Enumerate(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	seen := make(map[string]bool)

	add := func(meta FileMeta, shared bool) {
		if meta.ID == "" || seen[meta.ID] {
			return
		}
		seen[meta.ID] = true
		sources = append(sources, domain.Source{
			ID:           meta.ID,
			Name:         meta.Name,
			MimeType:     meta.MimeType,
			ModifiedTime: meta.ModifiedTime,
			SharedDrive:  shared,
		})
	}

	if e.folderID != "" {
		folder, err := e.api.FileMeta(ctx, e.folderID)
		if err != nil {
			// The top-level container being unreadable is the one
			// failure that aborts enumeration.
			return nil, fmt.Errorf("folder %s unreadable: %w", e.folderID, err)
		}
		shared := folder.DriveID != ""

		files, err := e.listAll(ctx, ListQuery{ParentID: e.folderID, MimeTypes: spreadsheetMimes, DriveID: folder.DriveID})
		if err != nil {
			return nil, fmt.Errorf("folder %s unreadable: %w", e.folderID, err)
		}
		for _, f := range files {
			add(f, shared)
		}

		if e.recursive {
			e.walkSubfolders(ctx, folder, func(f FileMeta) { add(f, shared) })
		}
	}

	for _, id := range e.extraIDs {
		meta, err := e.resolveSpreadsheet(ctx, id)
		if err != nil {
			e.errlog.Append("extra sheet id %s: %v", id, err)
			e.logger.WarnContext(ctx, "skipping explicit source id",
				slog.String("id", id),
				slog.String("error", err.Error()))
			continue
		}
		add(meta, false)
	}

	e.logger.InfoContext(ctx, "enumeration complete",
		slog.Int("sources", len(sources)),
		slog.Bool("recursive", e.recursive))

	return sources, nil
}

// listAll paginates a listing query until the provider reports no more pages.
func (e *Enumerator) listAll(ctx context.Context, q ListQuery) ([]FileMeta, error) {
	var files []FileMeta
	pageToken := ""
	for {
		page, err := e.api.ListPage(ctx, q, pageToken)
		if err != nil {
			return nil, err
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// walkSubfolders does a depth-first walk of the folder tree, emitting every
// spreadsheet file found. A failing subfolder is logged and skipped.
func (e *Enumerator) walkSubfolders(ctx context.Context, root FileMeta, emit func(FileMeta)) {
	stack := []string{root.ID}
	visited := map[string]bool{}

	for len(stack) > 0 {
		folderID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[folderID] {
			continue
		}
		visited[folderID] = true

		subfolders, err := e.listAll(ctx, ListQuery{ParentID: folderID, MimeTypes: []string{domain.MimeFolder}, DriveID: root.DriveID})
		if err != nil {
			e.errlog.Append("subfolders of %s: %v", folderID, err)
			continue
		}
		for _, sf := range subfolders {
			if sf.ID != "" && !visited[sf.ID] {
				stack = append(stack, sf.ID)
			}
		}

		if folderID == root.ID {
			// Direct children were already listed by the caller.
			continue
		}
		files, err := e.listAll(ctx, ListQuery{ParentID: folderID, MimeTypes: spreadsheetMimes, DriveID: root.DriveID})
		if err != nil {
			e.errlog.Append("files of subfolder %s: %v", folderID, err)
			continue
		}
		for _, f := range files {
			emit(f)
		}
	}
}

// resolveSpreadsheet resolves an explicit id to spreadsheet metadata,
// following one level of shortcut indirection.
func (e *Enumerator) resolveSpreadsheet(ctx context.Context, id string) (FileMeta, error) {
	meta, err := e.api.FileMeta(ctx, id)
	if err != nil {
		return FileMeta{}, err
	}
	if meta.MimeType == domain.MimeShortcut && meta.ShortcutTarget != "" {
		meta, err = e.api.FileMeta(ctx, meta.ShortcutTarget)
		if err != nil {
			return FileMeta{}, err
		}
	}
	switch meta.MimeType {
	case domain.MimeSpreadsheet, domain.MimeCSV, domain.MimeXLSX:
		return meta, nil
	}
	return FileMeta{}, errors.NewNotFoundError(fmt.Sprintf("id %s is not a readable spreadsheet (mime %s)", id, meta.MimeType), nil)
}
