package store

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"skillmatch/config"
	"skillmatch/internal/domain"
)

const (
	vectorMagic   = "SKVF"
	vectorVersion = 1
	headerSize    = 16
)

var (
	// ErrUnknownCategory is returned for categories with no configured files.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrCorrupt is returned when persisted files are unreadable or disagree.
	ErrCorrupt = errors.New("corrupt category files")
	// ErrLocked is returned when another writer holds the store lock.
	ErrLocked = errors.New("store is locked by another writer")
)

// CategoryFiles holds the three file paths of one category.
type CategoryFiles struct {
	Vectors string
	Keys    string
	Titles  string
}

func (f CategoryFiles) all() []string {
	return []string{f.Vectors, f.Keys, f.Titles}
}

// FileCategoryStore persists each category as a binary vector matrix and two
// JSON Lines files (normalized keys and display titles).
type FileCategoryStore struct {
	files       map[domain.Category]CategoryFiles
	lock        *flock.Flock
	lockTimeout time.Duration
	writer      chan struct{} // in-process single writer
	logger      *slog.Logger
}

// NewFileCategoryStore creates a store over the given file layout.
// lockPath names the cross-process lock file.
func NewFileCategoryStore(files map[domain.Category]CategoryFiles, lockPath string, lockTimeout time.Duration, logger *slog.Logger) *FileCategoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTimeout <= 0 {
		lockTimeout = 10 * time.Second
	}
	return &FileCategoryStore{
		files:       files,
		lock:        flock.New(lockPath),
		lockTimeout: lockTimeout,
		writer:      make(chan struct{}, 1),
		logger:      logger,
	}
}

// NewFileCategoryStoreFromConfig builds the file layout from configuration.
func NewFileCategoryStoreFromConfig(cfg *config.Config, logger *slog.Logger) *FileCategoryStore {
	files := make(map[domain.Category]CategoryFiles, len(cfg.Store.Categories))
	for _, name := range cfg.CategoryNames() {
		vectors, keys, titles, _ := cfg.CategoryFiles(name)
		files[domain.Category(name)] = CategoryFiles{Vectors: vectors, Keys: keys, Titles: titles}
	}
	return NewFileCategoryStore(files, cfg.LockPath(), cfg.Store.LockTimeout, logger)
}

// Files returns the file layout of a category.
func (s *FileCategoryStore) Files(category domain.Category) (CategoryFiles, bool) {
	f, ok := s.files[category]
	return f, ok
}

// Exists reports whether any of the category's files is present.
func (s *FileCategoryStore) Exists(category domain.Category) bool {
	f, ok := s.files[category]
	if !ok {
		return false
	}
	for _, p := range f.all() {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// Load reads a category. When none of its files exist the result is empty.
func (s *FileCategoryStore) Load(ctx context.Context, category domain.Category) (domain.Records, error) {
	f, ok := s.files[category]
	if !ok {
		return domain.Records{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if err := ctx.Err(); err != nil {
		return domain.Records{}, err
	}

	present := 0
	for _, p := range f.all() {
		if _, err := os.Stat(p); err == nil {
			present++
		} else if !os.IsNotExist(err) {
			return domain.Records{}, fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}
	if present == 0 {
		return domain.Records{}, nil
	}
	if present != 3 {
		return domain.Records{}, fmt.Errorf("%w: %s has %d of 3 files", ErrCorrupt, category, present)
	}

	vectors, err := readVectors(f.Vectors)
	if err != nil {
		return domain.Records{}, err
	}
	keys, err := readLines(f.Keys)
	if err != nil {
		return domain.Records{}, err
	}
	titles, err := readLines(f.Titles)
	if err != nil {
		return domain.Records{}, err
	}

	records := domain.Records{Vectors: vectors, Keys: keys, Titles: titles}
	if err := records.Validate(); err != nil {
		return domain.Records{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, category, err)
	}

	s.logger.Debug("loaded category", "category", category, "records", records.Len())
	return records, nil
}

// Save writes all three files to temporaries and renames them into place.
// The previous files are kept as backups until every rename succeeds, and a
// failed rename puts them back, so readers see either the old category or
// the new one.
func (s *FileCategoryStore) Save(ctx context.Context, category domain.Category, records domain.Records) error {
	f, ok := s.files[category]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if err := records.Validate(); err != nil {
		return fmt.Errorf("refusing to save %s: %w", category, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, p := range f.all() {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}

	writes := []struct {
		target string
		write  func(io.Writer) error
		temp   string
		backup string
	}{
		{target: f.Keys, write: func(w io.Writer) error { return writeLines(w, records.Keys) }},
		{target: f.Titles, write: func(w io.Writer) error { return writeLines(w, records.Titles) }},
		{target: f.Vectors, write: func(w io.Writer) error { return writeVectors(w, records.Vectors) }},
	}

	cleanup := func() {
		for _, wr := range writes {
			if wr.temp != "" {
				_ = os.Remove(wr.temp)
			}
			if wr.backup != "" {
				_ = os.Remove(wr.backup)
			}
		}
	}

	for i := range writes {
		tmp, err := writeTemp(writes[i].target, writes[i].write)
		if err != nil {
			cleanup()
			return err
		}
		writes[i].temp = tmp
	}

	for i := range writes {
		bak, err := backupFile(writes[i].target)
		if err != nil {
			cleanup()
			return err
		}
		writes[i].backup = bak
	}

	for i := range writes {
		if err := rename(writes[i].temp, writes[i].target); err != nil {
			for j := i - 1; j >= 0; j-- {
				if writes[j].backup != "" {
					// A backup that cannot be restored stays on disk.
					if rerr := os.Rename(writes[j].backup, writes[j].target); rerr != nil {
						s.logger.Error("failed to restore backup", "path", writes[j].target, "backup", writes[j].backup, "error", rerr)
					}
					writes[j].backup = ""
				} else {
					_ = os.Remove(writes[j].target)
				}
			}
			cleanup()
			return fmt.Errorf("failed to replace %s: %w", writes[i].target, err)
		}
		writes[i].temp = ""
	}

	cleanup()
	s.logger.Debug("saved category", "category", category, "records", records.Len())
	return nil
}

// rename is swapped in tests to fail part-way through a save.
var rename = os.Rename

// backupFile hard-links path to path.bak, copying when links are not
// supported. It returns "" when path does not exist.
func backupFile(path string) (string, error) {
	bak := path + ".bak"
	_ = os.Remove(bak)

	err := os.Link(path, bak)
	if err == nil {
		return bak, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	defer src.Close()
	dst, err := os.Create(bak)
	if err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(bak)
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(bak)
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return bak, nil
}

// Lock takes the in-process writer slot and the cross-process file lock.
func (s *FileCategoryStore) Lock(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	select {
	case s.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrLocked, ctx.Err())
	}

	if err := os.MkdirAll(filepath.Dir(s.lock.Path()), 0755); err != nil {
		<-s.writer
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil || !locked {
		<-s.writer
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%w (lock: %s): %v", ErrLocked, s.lock.Path(), err)
	}

	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release store lock", "path", s.lock.Path(), "error", err)
		}
		<-s.writer
	}, nil
}

func writeTemp(target string, write func(io.Writer) error) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", target, err)
	}
	name := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to sync %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}
	return name, nil
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		data, err := json.Marshal(line)
		if err != nil {
			return err
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("%w: invalid line in %s: %v", ErrCorrupt, path, err)
		}
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return out, nil
}

func writeVectors(w io.Writer, vectors [][]float32) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	header := make([]byte, headerSize)
	copy(header, vectorMagic)
	binary.LittleEndian.PutUint32(header[4:], vectorVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(header[12:], uint32(dim))
	if _, err := w.Write(header); err != nil {
		return err
	}

	for _, v := range vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readVectors(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open vector file %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat vector file %s: %w", path, err)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("%w: short header in %s", ErrCorrupt, path)
	}
	if string(header[:4]) != vectorMagic {
		return nil, fmt.Errorf("%w: bad magic in %s", ErrCorrupt, path)
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != vectorVersion {
		return nil, fmt.Errorf("%w: unsupported vector file version %d in %s", ErrCorrupt, v, path)
	}
	rows := int(binary.LittleEndian.Uint32(header[8:]))
	dim := int(binary.LittleEndian.Uint32(header[12:]))

	expected := int64(headerSize) + int64(rows)*int64(dim)*4
	if st.Size() != expected {
		return nil, fmt.Errorf("%w: vector file size mismatch in %s: got %d want %d (rows=%d dim=%d)",
			ErrCorrupt, path, st.Size(), expected, rows, dim)
	}

	flat := make([]float32, rows*dim)
	if len(flat) > 0 {
		if err := binary.Read(f, binary.LittleEndian, flat); err != nil {
			return nil, fmt.Errorf("cannot read vectors from %s: %w", path, err)
		}
	}

	vectors := make([][]float32, rows)
	for i := range vectors {
		vectors[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return vectors, nil
}
