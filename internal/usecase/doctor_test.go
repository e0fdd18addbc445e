package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillmatch/internal/adapter/fs"
	"skillmatch/internal/adapter/store"
	"skillmatch/internal/domain"
)

func TestDoctor_Check(t *testing.T) {
	dir := t.TempDir()
	layout := func(name string) store.CategoryFiles {
		return store.CategoryFiles{
			Vectors: filepath.Join(dir, name, "vectors.f32"),
			Keys:    filepath.Join(dir, name, "keys.jsonl"),
			Titles:  filepath.Join(dir, name, "titles.jsonl"),
		}
	}
	files := map[domain.Category]store.CategoryFiles{
		domain.CategoryIT:       layout("IT"),
		domain.CategorySoft:     layout("Soft"),
		domain.CategoryLanguage: layout("Language"),
	}
	st := store.NewFileCategoryStore(files, filepath.Join(dir, ".lock"), time.Second, nil)
	ctx := context.Background()

	var r domain.Records
	r.Append(domain.Record{Vector: []float32{1, 0}, Key: "go::", Title: "Go"})
	require.NoError(t, st.Save(ctx, domain.CategoryIT, r))
	require.NoError(t, st.Save(ctx, domain.CategorySoft, r))
	require.NoError(t, os.Remove(files[domain.CategorySoft].Titles))

	stray := filepath.Join(dir, "Old", "vectors.f32")
	require.NoError(t, os.MkdirAll(filepath.Dir(stray), 0755))
	require.NoError(t, os.WriteFile(stray, nil, 0644))

	paths := make(map[domain.Category][]string, len(files))
	for c, f := range files {
		paths[c] = []string{f.Vectors, f.Keys, f.Titles}
	}
	doc := NewDoctor(fs.NewWalker(DataFilePatterns, nil), st, paths)

	report, err := doc.Check(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Categories)
	assert.Equal(t, 2, report.Healthy)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, domain.CategorySoft, report.Issues[0].Category)
	assert.Equal(t, "missing file", report.Issues[0].Problem)
	assert.Equal(t, []string{stray}, report.Stray)
	assert.False(t, report.OK())
}
