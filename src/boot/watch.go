package boot

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settingsWatcher re-reads the settings file when it changes and applies the
// settings that can change at runtime. Only the log level is hot reloaded.
type settingsWatcher struct {
	path    string
	level   zap.AtomicLevel
	logger  *zap.SugaredLogger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func watchSettings(path string, level zap.AtomicLevel, logger *zap.SugaredLogger) (*settingsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	w := &settingsWatcher{
		path:    path,
		level:   level,
		logger:  logger,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *settingsWatcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("settings watcher: %v", err)
		}
	}
}

func (w *settingsWatcher) reload() {
	config, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Errorf("reloading %s: %v", w.path, err)
		return
	}
	if err := applyLogLevel(w.level, config.Log.Level); err != nil {
		w.logger.Errorf("reloading log level: %v", err)
		return
	}
	w.logger.Infof("Settings reloaded, log level is %v", w.level.Level())
}

func (w *settingsWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
