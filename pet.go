package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/milk9111/vpet/animation"
	"github.com/milk9111/vpet/assets"
	"github.com/milk9111/vpet/behavior"
	"github.com/milk9111/vpet/config"
	"github.com/milk9111/vpet/loader"
	"github.com/milk9111/vpet/playback"
	"github.com/milk9111/vpet/render"
)

const reloadQuiet = 300 * time.Millisecond

// Pet wires the catalog, scheduler, routine and sink of one running pet.
type Pet struct {
	cfg     config.Config
	baseDir string
	log     *slog.Logger

	sink    *render.EbitenSink
	sched   *playback.Scheduler
	routine *behavior.Routine
	watcher *loader.Watcher

	catMu   sync.Mutex
	catalog *animation.Catalog

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPet(cfg config.Config, baseDir string, logger *slog.Logger) (*Pet, error) {
	p := &Pet{
		cfg:     cfg,
		baseDir: baseDir,
		log:     logger,
		sink:    render.NewEbitenSink(logger),
	}

	src, cat, err := p.loadCatalog()
	if err != nil {
		return nil, err
	}
	p.catalog = cat

	p.sched = playback.NewScheduler(p.sink, cat, playback.Options{
		IdleBackoff:     cfg.IdleBackoff(),
		MissLogInterval: cfg.MissLogInterval(),
		Logger:          logger,
	})

	var script []byte
	if cfg.Routine != "" {
		path := cfg.Routine
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if script, err = behavior.LoadScript(path); err != nil {
			return nil, err
		}
	}
	p.routine, err = behavior.NewRoutine(p.sched, behavior.Options{
		Script: script,
		Mode:   cfg.DefaultMode,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	if err := p.sched.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.routine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Error("routine stopped", slog.Any("error", err))
		}
	}()

	if cfg.Watch && len(src.Dirs) > 0 {
		w, err := loader.NewWatcher(src.Dirs...)
		if err != nil {
			p.log.Warn("asset watch disabled", slog.Any("error", err))
		} else {
			p.watcher = w
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				w.Settle(reloadQuiet, p.reload)
			}()
		}
	}
	return p, nil
}

func (p *Pet) loadCatalog() (*assets.Source, *animation.Catalog, error) {
	src, err := assets.Open(p.baseDir, p.cfg.Assets)
	if err != nil {
		return nil, nil, err
	}
	cat := animation.NewCatalog(loader.NewFSBuilder(src.FS), animation.CatalogOptions{
		Workers: p.cfg.LoadWorkers,
		Logger:  p.log,
	})
	if err := loader.Load(cat, src.FS, p.log, src.Roots...); err != nil {
		p.log.Warn("some clips failed to load", slog.Any("error", err))
	}
	if len(cat.Candidates("default", p.cfg.DefaultMode)) == 0 {
		_ = cat.Close()
		return nil, nil, fmt.Errorf("pet %s: no playable clips in %v", p.cfg.Name, p.cfg.Assets)
	}
	return src, cat, nil
}

// reload rebuilds the catalog after asset changes and swaps it in. Frames
// already queued keep playing from the old catalog.
func (p *Pet) reload(paths []string) {
	p.log.Info("assets changed, reloading", slog.Int("changes", len(paths)))
	_, cat, err := p.loadCatalog()
	if err != nil {
		p.log.Error("reload failed", slog.Any("error", err))
		return
	}
	p.sched.SetCatalog(cat)
	p.sink.Reset()

	p.catMu.Lock()
	old := p.catalog
	p.catalog = cat
	p.catMu.Unlock()
	if err := old.Close(); err != nil {
		p.log.Debug("old catalog closed with errors", slog.Any("error", err))
	}
}

func (p *Pet) SetMode(mode string) {
	p.routine.SetMode(mode)
}

func (p *Pet) Mode() string {
	return p.routine.Mode()
}

func (p *Pet) Playing() string {
	return p.sched.Playing()
}

func (p *Pet) Close() error {
	if p.watcher != nil {
		_ = p.watcher.Close()
	}
	p.cancel()
	err := p.sched.Close()
	p.wg.Wait()

	p.catMu.Lock()
	defer p.catMu.Unlock()
	return errors.Join(err, p.catalog.Close())
}
