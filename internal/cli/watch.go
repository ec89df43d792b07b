package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// watch calls rebuild whenever one of files changes, after debounce of quiet.
// rebuild returns the next set of files to watch. It blocks until ctx is
// cancelled.
//
// Parent directories are watched rather than the files themselves, so editors
// that save by writing a new file and renaming it over the old one are seen.
func watch(ctx context.Context, logger *log.Logger, debounce time.Duration, files []string, rebuild func(context.Context) []string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	tracked := make(map[string]bool)
	dirs := make(map[string]bool)
	track := func(paths []string) {
		tracked = make(map[string]bool, len(paths))
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				continue
			}
			tracked[abs] = true
			dir := filepath.Dir(abs)
			if dirs[dir] {
				continue
			}
			if err := fw.Add(dir); err != nil {
				logger.Warn("cannot watch directory", "dir", dir, "err", err)
				continue
			}
			dirs[dir] = true
		}
	}
	track(files)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !tracked[abs] {
				continue
			}
			logger.Debug("file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)

		case <-timer.C:
			track(rebuild(ctx))
		}
	}
}
