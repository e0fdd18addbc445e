package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillmatch/internal/domain"
)

func newTestStore(t *testing.T) (*FileCategoryStore, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[domain.Category]CategoryFiles{
		domain.CategoryIT: {
			Vectors: filepath.Join(dir, "it", "vectors.f32"),
			Keys:    filepath.Join(dir, "it", "keys.jsonl"),
			Titles:  filepath.Join(dir, "it", "titles.jsonl"),
		},
		domain.CategorySoft: {
			Vectors: filepath.Join(dir, "soft", "v.f32"),
			Keys:    filepath.Join(dir, "soft", "k.jsonl"),
			Titles:  filepath.Join(dir, "soft", "t.jsonl"),
		},
	}
	return NewFileCategoryStore(files, filepath.Join(dir, ".lock"), time.Second, nil), dir
}

func sampleRecords() domain.Records {
	var r domain.Records
	r.Append(domain.Record{Vector: []float32{0.1, 0.2, 0.3}, Key: "go programming::", Title: "Go programming"})
	r.Append(domain.Record{Vector: []float32{-1, 0, 1.5}, Key: "sql::query design", Title: "SQL \"queries\"\nmultiline"})
	return r
}

func TestFileCategoryStore_LoadMissingIsEmpty(t *testing.T) {
	st, dir := newTestStore(t)

	records, err := st.Load(context.Background(), domain.CategoryIT)
	require.NoError(t, err)
	assert.Equal(t, 0, records.Len())
	assert.False(t, st.Exists(domain.CategoryIT))

	_, err = os.Stat(filepath.Join(dir, "it"))
	assert.True(t, os.IsNotExist(err), "load must not create files")
}

func TestFileCategoryStore_SaveLoad(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	want := sampleRecords()

	require.NoError(t, st.Save(ctx, domain.CategoryIT, want))
	assert.True(t, st.Exists(domain.CategoryIT))

	got, err := st.Load(ctx, domain.CategoryIT)
	require.NoError(t, err)
	assert.Equal(t, want.Keys, got.Keys)
	assert.Equal(t, want.Titles, got.Titles)
	assert.Equal(t, want.Vectors, got.Vectors)

	// Other categories are unaffected.
	soft, err := st.Load(ctx, domain.CategorySoft)
	require.NoError(t, err)
	assert.Equal(t, 0, soft.Len())
}

func TestFileCategoryStore_SaveEmpty(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, domain.CategoryIT, sampleRecords()))
	require.NoError(t, st.Save(ctx, domain.CategoryIT, domain.Records{}))

	got, err := st.Load(ctx, domain.CategoryIT)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.True(t, st.Exists(domain.CategoryIT))
}

func TestFileCategoryStore_SaveRejectsMisaligned(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, domain.CategoryIT, sampleRecords()))

	bad := sampleRecords()
	bad.Titles = bad.Titles[:1]
	require.Error(t, st.Save(ctx, domain.CategoryIT, bad))

	got, err := st.Load(ctx, domain.CategoryIT)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len(), "previous state must survive a rejected save")
}

func TestFileCategoryStore_NoTempFilesLeft(t *testing.T) {
	st, dir := newTestStore(t)
	require.NoError(t, st.Save(context.Background(), domain.CategoryIT, sampleRecords()))

	entries, err := os.ReadDir(filepath.Join(dir, "it"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"vectors.f32", "keys.jsonl", "titles.jsonl"}, names)
}

func failRenameOf(t *testing.T, target string) {
	t.Helper()
	orig := rename
	rename = func(from, to string) error {
		if to == target {
			return errors.New("disk full")
		}
		return orig(from, to)
	}
	t.Cleanup(func() { rename = orig })
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFileCategoryStore_FailedRenameRestoresPrevious(t *testing.T) {
	st, dir := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, domain.CategoryIT, sampleRecords()))

	files, _ := st.Files(domain.CategoryIT)
	failRenameOf(t, files.Vectors)

	var next domain.Records
	next.Append(domain.Record{Vector: []float32{1, 1, 1}, Key: "rust::", Title: "Rust"})
	err := st.Save(ctx, domain.CategoryIT, next)
	require.Error(t, err)

	got, err := st.Load(ctx, domain.CategoryIT)
	require.NoError(t, err)
	want := sampleRecords()
	assert.Equal(t, want.Keys, got.Keys)
	assert.Equal(t, want.Titles, got.Titles)
	assert.Equal(t, want.Vectors, got.Vectors)
	assert.ElementsMatch(t, []string{"vectors.f32", "keys.jsonl", "titles.jsonl"}, dirNames(t, filepath.Join(dir, "it")))
}

func TestFileCategoryStore_FailedFirstSaveLeavesNothing(t *testing.T) {
	st, dir := newTestStore(t)
	ctx := context.Background()

	files, _ := st.Files(domain.CategoryIT)
	failRenameOf(t, files.Vectors)

	require.Error(t, st.Save(ctx, domain.CategoryIT, sampleRecords()))
	assert.False(t, st.Exists(domain.CategoryIT))
	assert.Empty(t, dirNames(t, filepath.Join(dir, "it")))
}

func TestFileCategoryStore_UnknownCategory(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.Load(context.Background(), "Quantum")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	err = st.Save(context.Background(), "Quantum", domain.Records{})
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestFileCategoryStore_DetectsPartialFiles(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, domain.CategoryIT, sampleRecords()))

	files, _ := st.Files(domain.CategoryIT)
	require.NoError(t, os.Remove(files.Titles))

	_, err := st.Load(ctx, domain.CategoryIT)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileCategoryStore_DetectsLengthMismatch(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, domain.CategoryIT, sampleRecords()))

	files, _ := st.Files(domain.CategoryIT)
	require.NoError(t, os.WriteFile(files.Titles, []byte("\"only one\"\n"), 0644))

	_, err := st.Load(ctx, domain.CategoryIT)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileCategoryStore_DetectsTruncatedVectors(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, domain.CategoryIT, sampleRecords()))

	files, _ := st.Files(domain.CategoryIT)
	data, err := os.ReadFile(files.Vectors)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(files.Vectors, data[:len(data)-4], 0644))

	_, err = st.Load(ctx, domain.CategoryIT)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileCategoryStore_Lock(t *testing.T) {
	st, _ := newTestStore(t)
	st.lockTimeout = 200 * time.Millisecond
	ctx := context.Background()

	unlock, err := st.Lock(ctx)
	require.NoError(t, err)

	_, err = st.Lock(ctx)
	assert.ErrorIs(t, err, ErrLocked, "second writer must wait and time out")

	unlock()

	unlock2, err := st.Lock(ctx)
	require.NoError(t, err)
	unlock2()
}
