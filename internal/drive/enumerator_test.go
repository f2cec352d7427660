package drive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quasarcli/internal/errors"
	"quasarcli/pkg/contracts/domain"
)

// fakeAPI serves canned folder trees and file metadata.
type fakeAPI struct {
	meta     map[string]FileMeta
	metaErr  map[string]error
	children map[string][]FileMeta
	listErr  map[string]error
}

func (f *fakeAPI) FileMeta(_ context.Context, fileID string) (FileMeta, error) {
	if err := f.metaErr[fileID]; err != nil {
		return FileMeta{}, err
	}
	meta, ok := f.meta[fileID]
	if !ok {
		return FileMeta{}, errors.NewNotFoundError("file not found: "+fileID, nil)
	}
	return meta, nil
}

func (f *fakeAPI) ListPage(_ context.Context, q ListQuery, _ string) (Page, error) {
	if err := f.listErr[q.ParentID]; err != nil {
		return Page{}, err
	}
	wanted := map[string]bool{}
	for _, m := range q.MimeTypes {
		wanted[m] = true
	}
	var files []FileMeta
	for _, child := range f.children[q.ParentID] {
		if wanted[child.MimeType] {
			files = append(files, child)
		}
	}
	return Page{Files: files}, nil
}

func (f *fakeAPI) Download(context.Context, string) ([]byte, error) {
	return nil, errors.NewNotFoundError("no media", nil)
}

func sheetMeta(id, name string) FileMeta {
	return FileMeta{ID: id, Name: name, MimeType: domain.MimeSpreadsheet}
}

func folderMeta(id string) FileMeta {
	return FileMeta{ID: id, Name: id, MimeType: domain.MimeFolder}
}

func TestEnumerateFlatFolder(t *testing.T) {
	api := &fakeAPI{
		meta: map[string]FileMeta{"root": folderMeta("root")},
		children: map[string][]FileMeta{
			"root": {
				sheetMeta("s1", "Vendas Q1"),
				{ID: "c1", Name: "dump.csv", MimeType: domain.MimeCSV},
				{ID: "d1", Name: "doc", MimeType: "application/vnd.google-apps.document"},
			},
		},
	}
	e := NewEnumerator(api, "root", false, nil, nil, nil)

	sources, err := e.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "s1", sources[0].ID)
	assert.Equal(t, "c1", sources[1].ID)
}

func TestEnumerateRecursive(t *testing.T) {
	api := &fakeAPI{
		meta: map[string]FileMeta{"root": folderMeta("root")},
		children: map[string][]FileMeta{
			"root": {sheetMeta("s1", "top"), folderMeta("sub")},
			"sub":  {sheetMeta("s2", "nested"), folderMeta("subsub")},
			"subsub": {
				sheetMeta("s3", "deep"),
			},
		},
	}
	e := NewEnumerator(api, "root", true, nil, nil, nil)

	sources, err := e.Enumerate(context.Background())
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, s := range sources {
		ids[s.ID] = true
	}
	assert.Equal(t, map[string]bool{"s1": true, "s2": true, "s3": true}, ids)
}

func TestEnumerateSkipsFailingSubfolder(t *testing.T) {
	api := &fakeAPI{
		meta: map[string]FileMeta{"root": folderMeta("root")},
		children: map[string][]FileMeta{
			"root": {sheetMeta("s1", "top"), folderMeta("bad"), folderMeta("ok")},
			"ok":   {sheetMeta("s2", "nested")},
		},
		listErr: map[string]error{"bad": errors.NewNetworkError("boom", nil)},
	}
	errlog := errors.NewLog(10)
	e := NewEnumerator(api, "root", true, nil, nil, errlog)

	sources, err := e.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, sources, 2)
	assert.NotZero(t, errlog.Len())
}

func TestEnumerateUnreadableFolderIsFatal(t *testing.T) {
	api := &fakeAPI{
		metaErr: map[string]error{"root": errors.NewNetworkError("denied", nil)},
	}
	e := NewEnumerator(api, "root", false, nil, nil, nil)

	_, err := e.Enumerate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folder root unreadable")
}

func TestEnumerateExplicitIDs(t *testing.T) {
	api := &fakeAPI{
		meta: map[string]FileMeta{
			"direct": sheetMeta("direct", "Direta"),
			"short":  {ID: "short", MimeType: domain.MimeShortcut, ShortcutTarget: "target"},
			"target": sheetMeta("target", "Alvo"),
			"doc":    {ID: "doc", MimeType: "application/vnd.google-apps.document"},
		},
	}
	errlog := errors.NewLog(10)
	e := NewEnumerator(api, "", false, []string{"direct", "short", "doc", "missing"}, nil, errlog)

	sources, err := e.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "direct", sources[0].ID)
	assert.Equal(t, "target", sources[1].ID)
	// The document and the missing id were logged, not fatal.
	assert.Equal(t, 2, errlog.Len())
}

func TestEnumerateDeduplicates(t *testing.T) {
	api := &fakeAPI{
		meta: map[string]FileMeta{
			"root": folderMeta("root"),
			"s1":   sheetMeta("s1", "Vendas"),
		},
		children: map[string][]FileMeta{
			"root": {sheetMeta("s1", "Vendas")},
		},
	}
	// s1 comes from the folder listing and the explicit id list.
	e := NewEnumerator(api, "root", false, []string{"s1"}, nil, nil)

	sources, err := e.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestEnumerateSharedDriveFlag(t *testing.T) {
	api := &fakeAPI{
		meta: map[string]FileMeta{
			"root": {ID: "root", MimeType: domain.MimeFolder, DriveID: "drive-9"},
		},
		children: map[string][]FileMeta{
			"root": {sheetMeta("s1", "Vendas")},
		},
	}
	e := NewEnumerator(api, "root", false, nil, nil, nil)

	sources, err := e.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.True(t, sources[0].SharedDrive)
}
