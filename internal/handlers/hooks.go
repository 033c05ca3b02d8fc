package handlers

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
)

// runScripts executes every regular, executable file in dir in sorted
// filename order, each bounded by timeout, killing it with SIGKILL if it
// overruns. It returns a multierror aggregating every script failure
// rather than stopping at the first one, so callers can decide the
// aggregation policy themselves.
func runScripts(dir string, timeout time.Duration) error {
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading script directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var result error
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if info.Mode()&0o111 == 0 {
			continue
		}
		if err := runScript(path, timeout); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}
	return result
}

func runScript(path string, timeout time.Duration) error {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setSessionAttrs(cmd)

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: stdout: %s, stderr: %s", err, stdout.String(), stderr.String())
		}
		return nil
	case <-time.After(timeout):
		killProcessGroup(cmd, sigKill)
		<-done
		return fmt.Errorf("script timed out after %s", timeout)
	}
}
