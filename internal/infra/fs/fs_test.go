package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
)

type fixedProber float64

func (p fixedProber) Minutes(string) float64 { return float64(p) }

func TestLibrarySaveLocateFiles(t *testing.T) {
	ctx := context.Background()
	lib, err := NewLibrary(filepath.Join(t.TempDir(), "audio_files"), fixedProber(1.25))
	require.NoError(t, err)
	require.DirExists(t, lib.Dir())

	path, err := lib.Save(ctx, "call.ogg", strings.NewReader("audio"))
	require.NoError(t, err)
	require.FileExists(t, path)

	got, err := lib.Locate(ctx, "call.ogg")
	require.NoError(t, err)
	require.Equal(t, path, got)

	_, err = lib.Locate(ctx, "other.ogg")
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.Mkdir(filepath.Join(lib.Dir(), "dir.mp3"), 0o755))
	_, err = lib.Locate(ctx, "dir.mp3")
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(lib.Dir(), "readme.md"), []byte("x"), 0o644))
	files, err := lib.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "call.ogg", files[0].Filename)
	require.Equal(t, 1.25, files[0].DurationMins)

	entries, err := os.ReadDir(lib.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".upload-"), "temp file left behind: %s", e.Name())
	}
}

func TestResultStoreSiblingsNeverCoexist(t *testing.T) {
	ctx := context.Background()
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)

	raw, err := store.SaveRaw(ctx, "call1", "oops")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(store.Dir(), "call1.txt"), raw)

	_, err = store.LoadJSON(ctx, "call1")
	require.ErrorIs(t, err, analysis.ErrNotFound)

	js, err := store.SaveJSON(ctx, "call1", analysis.NewResult().Set("summary", "ok"))
	require.NoError(t, err)
	require.FileExists(t, js)
	require.NoFileExists(t, raw)

	data, err := store.LoadJSON(ctx, "call1")
	require.NoError(t, err)
	require.Equal(t, "{\n    \"summary\": \"ok\"\n}", string(data))

	_, err = store.SaveRaw(ctx, "call1", "again")
	require.NoError(t, err)
	require.NoFileExists(t, js)
}

func TestResultStoreList(t *testing.T) {
	ctx := context.Background()
	store, err := NewResultStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveJSON(ctx, "old", analysis.NewResult().Set("a", 1))
	require.NoError(t, err)
	_, err = store.SaveRaw(ctx, "new", "text")
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), "old.json"), past, past))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "ignore.csv"), []byte("x"), 0o644))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "new", records[0].Name)
	require.Equal(t, analysis.StatusRaw, records[0].Status)
	require.Equal(t, "new.txt", records[0].ResultFile)
	require.Equal(t, "old", records[1].Name)
	require.Equal(t, analysis.StatusParsed, records[1].Status)
}
