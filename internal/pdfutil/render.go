package pdfutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Renderer renders single PDF pages to PNG with pdftoppm (poppler-utils).
type Renderer struct {
	Runner   Runner
	Binary   string
	DPI      int
	Attempts uint
	Delay    time.Duration
}

// NewRenderer returns a renderer with 300 DPI output and three attempts.
func NewRenderer() *Renderer {
	return &Renderer{
		Runner:   ExecRunner{},
		Binary:   "pdftoppm",
		DPI:      300,
		Attempts: 3,
		Delay:    500 * time.Millisecond,
	}
}

// RenderPage renders one 1-based page of the PDF at path and returns the
// PNG bytes. Transient failures are retried; a missing binary is not.
func (r *Renderer) RenderPage(ctx context.Context, path string, page int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("render %s: invalid page %d", path, page)
	}
	attempts := r.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var out []byte
	err := retry.Do(
		func() error {
			png, err := r.render(ctx, path, page)
			if err != nil {
				if errors.Is(err, exec.ErrNotFound) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			out = png
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(r.Delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Renderer) render(ctx context.Context, path string, page int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "folio-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// -singlefile writes <prefix>.png without a page suffix.
	prefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(page)
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 300
	}
	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	runner := r.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	output, err := runner.Run(ctx, bin,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		path,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}
