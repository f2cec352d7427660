package drive

import (
	"context"
)

// FileMeta is the slice of Drive file metadata the enumerator consumes.
type FileMeta struct {
	ID             string
	Name           string
	MimeType       string
	ModifiedTime   string
	DriveID        string
	ShortcutTarget string
}

// ListQuery describes one folder-scoped listing request.
type ListQuery struct {
	ParentID  string
	MimeTypes []string
	// DriveID scopes the listing to a shared drive; empty means the
	// user's own drive.
	DriveID string
}

// Page is one page of listing results.
type Page struct {
	Files         []FileMeta
	NextPageToken string
}

// API is the minimal storage-listing surface the enumerator consumes.
// The production implementation wraps the Google Drive v3 service;
// tests provide fakes.
type API interface {
	// FileMeta fetches metadata for a single file or folder.
	FileMeta(ctx context.Context, fileID string) (FileMeta, error)
	// ListPage lists one page of a folder's children.
	ListPage(ctx context.Context, q ListQuery, pageToken string) (Page, error)
	// Download fetches the raw bytes of a binary file (XLSX sources).
	Download(ctx context.Context, fileID string) ([]byte, error)
}
