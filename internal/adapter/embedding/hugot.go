//go:build ORT || ALL

package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotEmbedder runs a sentence-transformer locally through ONNX Runtime.
type HugotEmbedder struct {
	model     string
	dimension int
	session   *hugot.Session
	pipeline  *pipelines.FeatureExtractionPipeline
	mu        sync.Mutex
}

// NewHugotEmbedder downloads the model into modelsDir on first use and
// loads it into a new ORT session.
func NewHugotEmbedder(ctx context.Context, model, modelsDir, ortLibraryPath string, dimension int) (*HugotEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("hugot model %s: dimension must be positive, got %d", model, dimension)
	}
	if modelsDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		modelsDir = filepath.Join(home, ".skillmatch", "models")
	}
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	modelPath := filepath.Join(modelsDir, strings.ReplaceAll(model, "/", "_"))
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		downloaded, err := hugot.DownloadModel(model, modelsDir, hugot.NewDownloadOptions())
		if err != nil {
			return nil, fmt.Errorf("download model %s: %w", model, err)
		}
		modelPath = downloaded
	}

	sessionOpts := []options.WithOption{
		options.WithIntraOpNumThreads(runtime.NumCPU()),
	}
	if ortLibraryPath != "" {
		sessionOpts = append(sessionOpts, options.WithOnnxLibraryPath(ortLibraryPath))
	}

	session, err := hugot.NewORTSession(sessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("create ORT session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      model,
	})
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	return &HugotEmbedder{
		model:     model,
		dimension: dimension,
		session:   session,
		pipeline:  pipeline,
	}, nil
}

func (h *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pipeline == nil {
		return nil, fmt.Errorf("pipeline closed")
	}

	output, err := h.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if len(output.Embeddings) != len(texts) {
		return nil, fmt.Errorf("pipeline returned %d embeddings for %d texts", len(output.Embeddings), len(texts))
	}
	for i, v := range output.Embeddings {
		if len(v) != h.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), h.dimension)
		}
	}
	return output.Embeddings, nil
}

func (h *HugotEmbedder) Dimension() int {
	return h.dimension
}

func (h *HugotEmbedder) ModelName() string {
	return h.model
}

func (h *HugotEmbedder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session != nil {
		h.session.Destroy()
		h.session = nil
		h.pipeline = nil
	}
	return nil
}
