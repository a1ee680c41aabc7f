package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/milk9111/vpet/animation"
	"github.com/milk9111/vpet/assets"
	"github.com/milk9111/vpet/config"
	"github.com/milk9111/vpet/loader"
	"github.com/milk9111/vpet/logging"
)

type commandContext struct {
	configFlag *string
	logLevel   *string
}

func newCommandContext(configFlag, logLevel *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevel: logLevel}
}

// petCatalog is a fully loaded catalog plus what built it.
type petCatalog struct {
	cfg     config.Config
	catalog *animation.Catalog
	builder *loader.FSBuilder
	logger  *slog.Logger
	// loadErr collects clips that failed to build; the rest are usable.
	loadErr error
}

func (c *commandContext) load(stderr io.Writer) (*petCatalog, error) {
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: *c.logLevel, Format: cfg.Log.Format, Output: stderr})
	if err != nil {
		return nil, err
	}

	baseDir := "."
	if *c.configFlag != "" {
		baseDir = filepath.Dir(*c.configFlag)
	}
	src, err := assets.Open(baseDir, cfg.Assets)
	if err != nil {
		return nil, err
	}
	builder := loader.NewFSBuilder(src.FS)
	cat := animation.NewCatalog(builder, animation.CatalogOptions{Workers: cfg.LoadWorkers, Logger: logger})
	loadErr := loader.Load(cat, src.FS, logger, src.Roots...)
	if cat.Len() == 0 {
		return nil, fmt.Errorf("no clips found in %v", cfg.Assets)
	}
	return &petCatalog{cfg: cfg, catalog: cat, builder: builder, logger: logger, loadErr: loadErr}, nil
}
