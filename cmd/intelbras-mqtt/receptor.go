package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
)

var ErrProcessUnavailable = errors.New("receptorip is unavailable")

// startReceptor runs receptorip with its config file and returns its merged
// stdout and stderr. The reader ends when the process exits; the process is
// killed when ctx is done. Closing the reader makes further writes from the
// process fail instead of blocking.
func startReceptor(ctx context.Context, bin, config string) (io.ReadCloser, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessUnavailable, err)
	}

	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, path, config)
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrProcessUnavailable, err)
		}
		return nil, fmt.Errorf("could not start receptorip: %w", err)
	}
	log.Info("receptorip started", "pid", cmd.Process.Pid, "bin", path, "config", config)

	go func() {
		err := cmd.Wait()
		log.Warn("receptorip exited", "err", err)
		_ = pw.CloseWithError(err)
	}()
	return pr, nil
}
