package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/topgen/pkg/validation"
)

// configExtensions are the file types picked up when watching a directory
var configExtensions = []string{".yml", ".yaml", ".json"}

func newWatchCommand(root *rootOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch PATH",
		Short: "Re-validate configurations whenever they change",
		Long: `Watch a configuration file, or every .yml/.yaml/.json file in a directory,
and print validation results each time one is written. Bursts of writes
are coalesced into a single run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.logger(cmd)
			if err != nil {
				return err
			}
			v, err := root.validator(cmd)
			if err != nil {
				return err
			}

			w := &configWatcher{
				validator: v,
				out:       cmd.OutOrStdout(),
				logger:    logger,
				debounce:  debounce,
			}
			return w.Watch(cmd.Context(), args[0])
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "quiet period before re-validating")

	return cmd
}

// configWatcher validates configuration files as they change
type configWatcher struct {
	validator *validation.ConfigValidator
	out       io.Writer
	logger    logrus.FieldLogger
	debounce  time.Duration
}

// Watch validates path once, then again after every change until ctx is
// cancelled. A single file is watched through its parent directory so
// editors that replace the file on save are still seen.
func (w *configWatcher) Watch(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	dir, only := filepath.Clean(path), ""
	if !info.IsDir() {
		dir, only = filepath.Dir(path), filepath.Clean(path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	initial, err := w.initialFiles(dir, only)
	if err != nil {
		return err
	}
	w.validateFiles(initial)
	fmt.Fprintf(w.out, "watching %s\n", path)

	pending := make(map[string]struct{})
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			if !matchesConfig(name, only) {
				continue
			}

			pending[name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			files := make([]string, 0, len(pending))
			for name := range pending {
				files = append(files, name)
			}
			clear(pending)
			slices.Sort(files)
			w.validateFiles(files)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("watcher error")
		}
	}
}

func (w *configWatcher) initialFiles(dir, only string) ([]string, error) {
	if only != "" {
		return []string{only}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		name := filepath.Join(dir, entry.Name())
		if !entry.IsDir() && matchesConfig(name, "") {
			files = append(files, name)
		}
	}
	return files, nil
}

func (w *configWatcher) validateFiles(files []string) {
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			// removed or renamed between the event and the read
			w.logger.WithError(err).WithField("file", file).Debug("skipping unreadable file")
			continue
		}
		result := w.validator.Validate(raw)
		printResult(w.out, fileResult{File: file, Valid: result.Valid, Errors: result.Errors})
	}
}

func matchesConfig(name, only string) bool {
	if only != "" {
		return name == only
	}
	return slices.Contains(configExtensions, filepath.Ext(name))
}
