package drive

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/time/rate"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"quasarcli/internal/errors"
	"quasarcli/internal/infrastructure"
)

const listPageSize = 1000

const fileFields = "id, name, mimeType, modifiedTime, driveId, shortcutDetails"

// GoogleAPI implements API on top of the Google Drive v3 service, with
// rate limiting and bounded retries around every remote read.
type GoogleAPI struct {
	svc     *gdrive.Service
	limiter *rate.Limiter
	retrier infrastructure.Retrier
}

// NewGoogleAPI builds a Drive client from a service-account credentials file.
func NewGoogleAPI(ctx context.Context, credentialsFile string, limiter *rate.Limiter, retrier infrastructure.Retrier) (*GoogleAPI, error) {
	svc, err := gdrive.NewService(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(gdrive.DriveReadonlyScope))
	if err != nil {
		return nil, errors.NewConfigError("failed to create drive service", err)
	}
	return &GoogleAPI{svc: svc, limiter: limiter, retrier: retrier}, nil
}

// FileMeta fetches metadata for a single file, supporting shared drives.
func (g *GoogleAPI) FileMeta(ctx context.Context, fileID string) (FileMeta, error) {
	var file *gdrive.File
	err := g.retrier.Do(ctx, "drive.files.get", func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		file, callErr = g.svc.Files.Get(fileID).
			Fields(fileFields).
			SupportsAllDrives(true).
			Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return FileMeta{}, errors.NewNetworkError(fmt.Sprintf("metadata fetch for %s failed", fileID), err)
	}
	return toFileMeta(file), nil
}

// ListPage lists one page of a folder's children matching the query mimes.
func (g *GoogleAPI) ListPage(ctx context.Context, q ListQuery, pageToken string) (Page, error) {
	query := fmt.Sprintf("'%s' in parents", q.ParentID)
	if len(q.MimeTypes) > 0 {
		query += " and ("
		for i, m := range q.MimeTypes {
			if i > 0 {
				query += " or "
			}
			query += fmt.Sprintf("mimeType='%s'", m)
		}
		query += ")"
	}

	var result *gdrive.FileList
	err := g.retrier.Do(ctx, "drive.files.list", func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		call := g.svc.Files.List().
			Q(query).
			Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")")).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			Spaces("drive").
			PageSize(listPageSize).
			Context(ctx)
		if q.DriveID != "" {
			call = call.Corpora("drive").DriveId(q.DriveID)
		} else {
			call = call.Corpora("user")
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		var callErr error
		result, callErr = call.Do()
		return callErr
	})
	if err != nil {
		return Page{}, errors.NewNetworkError(fmt.Sprintf("listing folder %s failed", q.ParentID), err)
	}

	page := Page{NextPageToken: result.NextPageToken}
	for _, f := range result.Files {
		page.Files = append(page.Files, toFileMeta(f))
	}
	return page, nil
}

// Download fetches the media content of a binary Drive file.
func (g *GoogleAPI) Download(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := g.retrier.Do(ctx, "drive.files.download", func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, callErr := g.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
		if callErr != nil {
			return callErr
		}
		defer resp.Body.Close()
		data, callErr = io.ReadAll(resp.Body)
		return callErr
	})
	if err != nil {
		return nil, errors.NewNetworkError(fmt.Sprintf("download of %s failed", fileID), err)
	}
	return data, nil
}

func toFileMeta(f *gdrive.File) FileMeta {
	meta := FileMeta{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		DriveID:      f.DriveId,
	}
	if f.ShortcutDetails != nil {
		meta.ShortcutTarget = f.ShortcutDetails.TargetId
	}
	return meta
}
