package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/telemetry"
)

const DefaultReloadDebounce = 200 * time.Millisecond

// ReloadFunc receives every configuration that loaded successfully after a
// change on disk.
type ReloadFunc func(ctx context.Context, cfg domain.AppConfig)

// Watcher reloads a config file when it changes.
type Watcher struct {
	loader   *Loader
	path     string
	debounce time.Duration
	onReload ReloadFunc
	logger   *zap.Logger
}

func NewWatcher(loader *Loader, path string, onReload ReloadFunc, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = NewLoader(logger)
	}
	return &Watcher{
		loader:   loader,
		path:     path,
		debounce: DefaultReloadDebounce,
		onReload: onReload,
		logger:   logger.Named("config_watcher"),
	}
}

// Reload loads the file once and hands it to the callback.
func (w *Watcher) Reload(ctx context.Context) error {
	cfg, err := w.loader.Load(ctx, w.path)
	if err != nil {
		return err
	}
	w.logger.Info("config reloaded",
		telemetry.EventField(telemetry.EventConfigReload),
		zap.String("path", w.path),
		zap.Int("markets", len(cfg.Markets)),
	)
	if w.onReload != nil {
		w.onReload(ctx, cfg)
	}
	return nil
}

// Run watches the config directory until ctx ends. Bursts of writes are
// collapsed into one reload.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.logger.Warn("config watcher error", zap.Error(err))
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !shouldReloadForPath(event.Name, w.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			if err := w.Reload(ctx); err != nil {
				w.logger.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
			}
		}
	}
}

func shouldReloadForPath(path string, configPath string) bool {
	if path == "" || configPath == "" {
		return false
	}
	return filepath.Clean(path) == filepath.Clean(configPath)
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
