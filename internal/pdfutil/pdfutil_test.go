package pdfutil

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// fakeRunner emulates pdftoppm by writing its output file.
type fakeRunner struct {
	fails int
	err   error
	calls int
	args  []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls++
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.fails {
		return []byte("I/O Error"), errors.New("exit status 1")
	}
	prefix := args[len(args)-1]
	return nil, os.WriteFile(prefix+".png", []byte("png:"+args[2]), 0o644)
}

func TestRenderer_RenderPage(t *testing.T) {
	t.Run("renders page", func(t *testing.T) {
		runner := &fakeRunner{}
		r := &Renderer{Runner: runner, Attempts: 1}

		png, err := r.RenderPage(context.Background(), "report.pdf", 4)
		if err != nil {
			t.Fatalf("RenderPage() error = %v", err)
		}
		if string(png) != "png:4" {
			t.Errorf("RenderPage() = %q, want png:4", png)
		}
		if runner.args[len(runner.args)-2] != "report.pdf" {
			t.Errorf("args = %v", runner.args)
		}
	})

	t.Run("retries transient failures", func(t *testing.T) {
		runner := &fakeRunner{fails: 2}
		r := &Renderer{Runner: runner, Attempts: 3}

		if _, err := r.RenderPage(context.Background(), "report.pdf", 1); err != nil {
			t.Fatalf("RenderPage() error = %v", err)
		}
		if runner.calls != 3 {
			t.Errorf("calls = %d, want 3", runner.calls)
		}
	})

	t.Run("missing binary is not retried", func(t *testing.T) {
		runner := &fakeRunner{err: exec.ErrNotFound}
		r := &Renderer{Runner: runner, Attempts: 3}

		_, err := r.RenderPage(context.Background(), "report.pdf", 1)
		if !errors.Is(err, exec.ErrNotFound) {
			t.Fatalf("RenderPage() error = %v, want ErrNotFound", err)
		}
		if runner.calls != 1 {
			t.Errorf("calls = %d, want 1", runner.calls)
		}
	})

	t.Run("invalid page", func(t *testing.T) {
		r := &Renderer{Runner: &fakeRunner{}}
		if _, err := r.RenderPage(context.Background(), "report.pdf", 0); err == nil {
			t.Error("expected error for page 0")
		}
	})
}

func TestClampPages(t *testing.T) {
	tests := []struct {
		first, last, total int
		wantFirst, wantLast int
	}{
		{3, 4, 10, 3, 4},
		{10, 11, 10, 10, 10},
		{0, 1, 10, 1, 1},
		{5, 6, 3, 5, 3},
	}
	for _, tt := range tests {
		f, l := ClampPages(tt.first, tt.last, tt.total)
		if f != tt.wantFirst || l != tt.wantLast {
			t.Errorf("ClampPages(%d, %d, %d) = %d, %d; want %d, %d",
				tt.first, tt.last, tt.total, f, l, tt.wantFirst, tt.wantLast)
		}
	}
}

func TestPageCount_MissingFile(t *testing.T) {
	if _, err := PageCount(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
