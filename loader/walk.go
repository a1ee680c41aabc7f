package loader

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/milk9111/vpet/animation"
)

// AddFunc registers one clip directory under name and reports whether it
// held any frames.
type AddFunc func(dir, name string) bool

// Walk visits every directory below root depth first. Each sub-directory is
// recursed into before it is offered to add, named by joining the directory
// names from root with underscores. root itself is never offered.
func Walk(fsys fs.FS, root, prefix string, add AddFunc) (int, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return 0, fmt.Errorf("loader: walk %s: %w", root, err)
	}
	added := 0
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := path.Join(root, e.Name())
		name := prefix + "_" + e.Name()
		n, err := Walk(fsys, dir, name, add)
		if err != nil {
			return added, err
		}
		added += n
		if add(dir, strings.TrimPrefix(name, "_")) {
			added++
		}
	}
	return added, nil
}

// Load walks every root into catalog, waits for the builds and arranges the
// families. Build failures are returned joined; clips that did build stay
// usable.
func Load(catalog *animation.Catalog, fsys fs.FS, logger *slog.Logger, roots ...string) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}
	for _, root := range roots {
		n, err := Walk(fsys, root, "", catalog.AddClip)
		if err != nil {
			return err
		}
		logger.Info("clips discovered", slog.String("root", root), slog.Int("clips", n))
	}
	err := catalog.Wait()
	catalog.Arrange()
	logger.Info("catalog loaded",
		slog.Int("clips", catalog.Len()),
		slog.Int("families", len(catalog.Families())),
		slog.Int("frames", catalog.Cache().Len()),
	)
	return err
}
