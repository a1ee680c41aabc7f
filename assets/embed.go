package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/milk9111/vpet/loader"
)

// BuiltinDir is the asset directory name that falls back to the embedded pet
// when it does not exist on disk.
const BuiltinDir = "assets/pet"

//go:embed all:pet
var petFS embed.FS

// Pet returns the embedded pet rooted at its clip directories.
func Pet() fs.FS {
	sub, err := fs.Sub(petFS, "pet")
	if err != nil {
		log.Fatalf("embed: pet: %v", err)
	}
	return sub
}

// Source is a set of asset trees ready to be walked into a catalog.
type Source struct {
	FS    loader.Mounts
	Roots []string
	// Dirs are the on-disk directories behind FS, for watching.
	Dirs []string
}

// Open mounts every asset directory, resolved against baseDir. A directory
// missing on disk is an error unless it names the embedded pet.
func Open(baseDir string, dirs []string) (*Source, error) {
	src := &Source{FS: loader.Mounts{}}
	for _, dir := range dirs {
		full := filepath.Join(baseDir, filepath.FromSlash(dir))
		if info, err := os.Stat(full); err == nil && info.IsDir() {
			src.Roots = append(src.Roots, src.FS.Mount(dir, os.DirFS(full)))
			src.Dirs = append(src.Dirs, full)
			continue
		}
		if cleanAssetPath(dir) != BuiltinDir {
			return nil, fmt.Errorf("assets: %s is not a directory", full)
		}
		src.Roots = append(src.Roots, src.FS.Mount(dir, Pet()))
	}
	return src, nil
}

func cleanAssetPath(p string) string {
	if p == "" {
		return ""
	}
	s := path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(s, "./")
}
