//go:build !(ORT || ALL)

package embedding

import (
	"context"
	"errors"
)

// ErrHugotUnavailable is returned when the binary was built without ONNX Runtime.
var ErrHugotUnavailable = errors.New("hugot provider requires building with -tags ORT")

// HugotEmbedder is unavailable in this build.
type HugotEmbedder struct{}

func NewHugotEmbedder(context.Context, string, string, string, int) (*HugotEmbedder, error) {
	return nil, ErrHugotUnavailable
}

func (h *HugotEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrHugotUnavailable
}

func (h *HugotEmbedder) Dimension() int    { return 0 }
func (h *HugotEmbedder) ModelName() string { return "" }
func (h *HugotEmbedder) Close() error      { return nil }
