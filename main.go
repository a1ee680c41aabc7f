package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/milk9111/vpet/config"
	"github.com/milk9111/vpet/logging"
)

func main() {
	configPath := flag.String("config", "", "pet config yaml (defaults to the built-in pet)")
	debug := flag.Bool("debug", false, "enable debug logging and show the playing clip")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	mode := flag.String("mode", "", "starting mode: normal, happy, poorcondition or ill")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *mode != "" {
		cfg.DefaultMode = *mode
		if err := cfg.Validate(); err != nil {
			log.Fatal(err)
		}
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatal(err)
	}

	lock := flock.New(filepath.Join(os.TempDir(), "vpet-"+cfg.Name+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		log.Fatalf("acquire lock: %v", err)
	}
	if !ok {
		log.Fatalf("another %s pet is already running", cfg.Name)
	}
	defer lock.Unlock()

	baseDir := "."
	if *configPath != "" {
		baseDir = filepath.Dir(*configPath)
	}
	pet, err := NewPet(cfg, baseDir, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := pet.Close(); err != nil {
			logger.Warn("shutdown", slog.Any("error", err))
		}
	}()

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}
	ebiten.SetWindowDecorated(false)
	ebiten.SetWindowFloating(true)
	ebiten.SetWindowTitle(cfg.Name)
	ebiten.SetWindowSize(menuWidth, menuHeight)
	ebiten.SetTPS(30)

	game := NewGame(pet, cfg.Scale, *debug, logger)
	logger.Info("pet started", slog.String("name", cfg.Name), slog.String("mode", cfg.DefaultMode))

	err = ebiten.RunGameWithOptions(game, &ebiten.RunGameOptions{ScreenTransparent: true})
	if err != nil && !errors.Is(err, ebiten.Termination) {
		logger.Error("game loop", slog.Any("error", err))
	}
}
