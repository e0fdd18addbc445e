package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillmatch/internal/usecase"
)

func TestRecordOutcome(t *testing.T) {
	assert.NoError(t, recordOutcome(nil))
	assert.NoError(t, recordOutcome(fmt.Errorf("%w: %q in IT", usecase.ErrDuplicate, "go::")))
	assert.NoError(t, recordOutcome(fmt.Errorf("%w: %q in IT", usecase.ErrNotFound, "go::")))

	storage := fmt.Errorf("%w: disk full", usecase.ErrStorage)
	assert.ErrorIs(t, recordOutcome(storage), usecase.ErrStorage)
	assert.ErrorIs(t, recordOutcome(usecase.ErrUnknownCategory), usecase.ErrUnknownCategory)
	assert.Error(t, recordOutcome(errors.New("boom")))
}

func TestRecordCommands_NoChangeIsSuccess(t *testing.T) {
	dir := t.TempDir()
	content := `
store:
  categories:
    IT:
      vectors: it/vectors.f32
      keys: it/keys.jsonl
      titles: it/titles.jsonl
      threshold: 0.5
embedding:
  provider: mock
  dimension: 16
cache:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skillmatch.yaml"), []byte(content), 0644))

	run := func(args ...string) error {
		rootCmd.SetArgs(append([]string{"--dir", dir}, args...))
		return rootCmd.Execute()
	}

	require.NoError(t, run("add", "-t", "Go", "-c", "IT"))
	assert.NoError(t, run("add", "-t", "Go", "-c", "IT"), "re-adding a stored entry")
	assert.NoError(t, run("delete", "-t", "Quantum Computing", "-c", "IT"), "deleting a missing entry")
	assert.Error(t, run("add", "-t", "Go", "-c", "Quantum"), "unknown category still fails")
}
