package templates

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry whenever a file under the project's packs/
// or templates/ overlay directories changes, debouncing rapid successive
// writes. It runs until stop is closed and logs reload failures rather
// than propagating them, since a bad overlay edit should not bring down
// a running server.
func (m *Manager) Watch(stop <-chan struct{}, log *slog.Logger) error {
	if m.projectDir == "" {
		<-stop
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, sub := range []string{"packs", "templates"} {
		dir := filepath.Join(m.projectDir, sub)
		if err := watcher.Add(dir); err != nil {
			log.Warn("template overlay directory not watched", "dir", dir, "error", err)
		}
	}

	const debounceDelay = 250 * time.Millisecond
	var timer *time.Timer
	reload := func() {
		if err := m.Reload(); err != nil {
			log.Error("template reload failed", "error", err)
			return
		}
		log.Info("templates reloaded")
	}

	for {
		select {
		case <-stop:
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceDelay, reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("template watcher error", "error", err)
		}
	}
}
