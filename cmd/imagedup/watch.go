package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	imagedup "github.com/anatolykoptev/go-imagedup"
)

// watchDebounce delays registration after the last write event so half-
// copied files are not picked up mid-transfer.
const watchDebounce = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Watch a folder and register new images as they appear",
	Long: `Watch a drop folder and register every new image automatically.

Files are registered a moment after the last write to them, so images still
being copied in are left alone until complete. Duplicates are reported and
skipped. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", dir)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// One debounce timer per path; a new write on the same file resets
	// its timer.
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	register := func(path string) {
		mu.Lock()
		delete(timers, path)
		mu.Unlock()

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("cannot read new file", "path", path, "err", err)
			return
		}
		rec, err := detector.Register(getContext(), data, imagedup.RegisterOpts{
			OriginalName: filepath.Base(path),
		})
		if match, ok := imagedup.AsDuplicate(err); ok {
			fmt.Printf("%s: duplicate of %s (distance %d)\n", path, match.Record.ID, match.Distance)
			return
		}
		if err != nil {
			slog.Warn("cannot register new file", "path", path, "err", err)
			return
		}
		fmt.Printf("%s: added as %s\n", path, rec.ID)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !imagedup.IsImagePath(event.Name) {
				continue
			}
			base := filepath.Base(event.Name)
			if len(base) > 0 && (base[0] == '.' || base[0] == '~') {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				path := event.Name
				mu.Lock()
				if t, ok := timers[path]; ok {
					t.Stop()
				}
				timers[path] = time.AfterFunc(watchDebounce, func() { register(path) })
				mu.Unlock()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "err", err)

		case <-interrupt:
			fmt.Println("\nStopped")
			return nil
		}
	}
}
