package loader

import (
	"io/fs"
	"path"
	"strconv"
	"strings"
)

// Mounts combines several asset trees into one fs.FS. Each tree is reached
// through its mount name as the first path element, so clip directories and
// frame paths stay unique across trees.
type Mounts map[string]fs.FS

func (m Mounts) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	mount, rest, _ := strings.Cut(name, "/")
	fsys, ok := m[mount]
	if !ok || name == "." {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if rest == "" {
		rest = "."
	}
	return fsys.Open(rest)
}

// Mount adds fsys under a name derived from dir and returns that name.
func (m Mounts) Mount(dir string, fsys fs.FS) string {
	base := path.Base(strings.Trim(strings.ReplaceAll(dir, "\\", "/"), "/"))
	if base == "." || base == "" {
		base = "assets"
	}
	name := base
	for i := 2; ; i++ {
		if _, taken := m[name]; !taken {
			break
		}
		name = base + "~" + strconv.Itoa(i)
	}
	m[name] = fsys
	return name
}
