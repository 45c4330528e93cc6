package generate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Exit codes of the bootstrap script
const (
	exitNoFunction = 3
	exitBadResult  = 4
)

// bootstrap imports the module, calls the function with the two paths, six
// ints and seven floats, and prints the returned path
const bootstrap = `import importlib, sys
mod, name, a = sys.argv[1], sys.argv[2], sys.argv[3:]
fn = getattr(importlib.import_module(mod), name, None)
if not callable(fn):
    sys.exit(3)
res = fn(*(a[:2] + [int(x) for x in a[2:8]] + [float(x) for x in a[8:15]]))
if not isinstance(res, str):
    sys.exit(4)
print(res)
`

// ExecHandler runs the generation function of a Python module in a child
// interpreter
type ExecHandler struct {
	Python    string // interpreter, default "python3"
	ModuleDir string // added to PYTHONPATH
	Module    string // e.g. "imagetoaudio"
	Function  string // default DefaultFunction
}

// Generate implements Handler. The last non-empty line the call prints is
// the result path.
func (h *ExecHandler) Generate(ctx context.Context, req Request) (string, error) {
	python := h.Python
	if python == "" {
		python = "python3"
	}
	function := h.Function
	if function == "" {
		function = DefaultFunction
	}
	if h.Module == "" {
		return "", fmt.Errorf("%w: no module configured", ErrNoHandler)
	}

	args := []string{"-c", bootstrap, h.Module, function, req.ImagePath, req.OutputDir}
	args = append(args, req.Params.Strings()...)

	cmd := exec.CommandContext(ctx, python, args...)
	cmd.Env = os.Environ()
	if h.ModuleDir != "" {
		dir, err := filepath.Abs(h.ModuleDir)
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}
		cmd.Env = append(cmd.Env, "PYTHONPATH="+dir+string(os.PathListSeparator)+os.Getenv("PYTHONPATH"))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			switch exitErr.ExitCode() {
			case exitNoFunction:
				return "", fmt.Errorf("%w: %s.%s", ErrNoHandler, h.Module, function)
			case exitBadResult:
				return "", fmt.Errorf("%w: %s.%s returned a non-string", ErrBadResult, h.Module, function)
			}
		}
		return "", fmt.Errorf("generate: %s: %w: %s", python, err, lastLine(stderr.Bytes()))
	}

	path := lastLine(stdout.Bytes())
	if path == "" {
		return "", fmt.Errorf("%w: empty output", ErrBadResult)
	}
	return path, nil
}

func lastLine(b []byte) string {
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	return last
}
