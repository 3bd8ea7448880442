package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gerunddev/wikibridge/internal/config"
	"github.com/gerunddev/wikibridge/internal/logger"
	"github.com/gerunddev/wikibridge/internal/state"
	"github.com/gerunddev/wikibridge/internal/sync"
)

// env is what every page command needs
type env struct {
	cfg     *config.Config
	state   *state.State
	log     *logger.Logger
	syncer  *sync.Syncer
	cleanup func()
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, cleanup := openLogger(cfg)
	log.ConfigLoaded(cfg.WorkspaceDir, cfg.SnapshotDir, cfg.ImageWidth)

	st, err := state.Load(config.StateFilePath())
	if err != nil {
		log.StateError("load", err)
		cleanup()
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return &env{
		cfg:     cfg,
		state:   st,
		log:     log,
		syncer:  sync.NewSyncer(cfg, st, log),
		cleanup: cleanup,
	}, nil
}

// openLogger logs to the configured file, and to stderr as well with
// --verbose. Logging is dropped if the file cannot be opened.
func openLogger(cfg *config.Config) (*logger.Logger, func()) {
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		if verbose {
			return logger.NewWithLevel(os.Stderr, cfg.Level()), func() {}
		}
		return logger.Discard(), func() {}
	}

	var log *logger.Logger
	if verbose {
		log = logger.NewMultiLogger(f, os.Stderr)
	} else {
		log = logger.New(f)
	}
	log.SetLevel(cfg.Level())
	return log, func() { f.Close() }
}

func (e *env) saveState() error {
	if err := e.state.Save(config.StateFilePath()); err != nil {
		e.log.StateError("save", err)
		return err
	}
	return nil
}

func (e *env) close() {
	e.cleanup()
}

// readInput reads a file, or stdin for "-"
func readInput(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// writeOutput writes to a file, or to w when path is empty
func writeOutput(w io.Writer, path, content string) error {
	if path == "" {
		_, err := fmt.Fprintln(w, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LastPull scans the last maxLines of the log for the most recent pull of
// pageID and returns its time
func LastPull(logPath, pageID string, maxLines int) (time.Time, bool) {
	content, err := os.ReadFile(logPath)
	if err != nil {
		return time.Time{}, false
	}

	lines := strings.Split(string(content), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	// Format: 2026-03-01 14:11:57 INFO page pulled page_id=123 ...
	needle := "page_id=" + pageID + " "
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !strings.Contains(line, "page pulled") || !strings.Contains(line+" ", needle) {
			continue
		}
		if len(line) < 19 {
			continue
		}
		if t, err := time.ParseInLocation(time.DateTime, line[:19], time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
