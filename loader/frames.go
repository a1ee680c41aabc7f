package loader

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/milk9111/vpet/animation"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrBadFrameName = errors.New("loader: frame name has no duration suffix")

var frameExts = map[string]bool{
	".png":  true,
	".webp": true,
	".bmp":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsFrameFile reports whether name has an image extension the loader decodes.
func IsFrameFile(name string) bool {
	return frameExts[strings.ToLower(path.Ext(name))]
}

// ParseFrameDuration reads the display time from a frame file name. The
// duration is the last underscore-separated token of the stem, in
// milliseconds: "walk_001_125.png" shows for 125ms.
func ParseFrameDuration(name string) (int, error) {
	base := path.Base(name)
	stem := strings.TrimSuffix(base, path.Ext(base))
	i := strings.LastIndexByte(stem, '_')
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrBadFrameName, base)
	}
	ms, err := strconv.Atoi(stem[i+1:])
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("%w: %s", ErrBadFrameName, base)
	}
	return ms, nil
}

// FSBuilder builds clip frames from image files in an fs.FS. Frame images are
// decoded lazily from the same filesystem.
type FSBuilder struct {
	fsys fs.FS
}

func NewFSBuilder(fsys fs.FS) *FSBuilder {
	return &FSBuilder{fsys: fsys}
}

func (b *FSBuilder) frameEntries(dir string) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(b.fsys, dir)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if !e.IsDir() && IsFrameFile(e.Name()) {
			out = append(out, e)
		}
	}
	return out, nil
}

// HasFrames reports whether dir directly contains at least one image file.
func (b *FSBuilder) HasFrames(dir string) bool {
	entries, err := b.frameEntries(dir)
	return err == nil && len(entries) > 0
}

// BuildFrames returns the frames of dir ordered by file name. Any file whose
// name carries no duration fails the whole clip.
func (b *FSBuilder) BuildFrames(dir string) ([]*animation.Frame, error) {
	entries, err := b.frameEntries(dir)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", dir, err)
	}
	frames := make([]*animation.Frame, 0, len(entries))
	for i, e := range entries {
		ms, err := ParseFrameDuration(e.Name())
		if err != nil {
			return nil, err
		}
		p := path.Join(dir, e.Name())
		frames = append(frames, animation.NewFrame(p, ms, i, b.decoder(p)))
	}
	return frames, nil
}

func (b *FSBuilder) decoder(p string) animation.DecodeFunc {
	return func() (image.Image, error) {
		f, err := b.fsys.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}
}

// Size returns the on-disk size of a frame file, or -1 when it cannot be
// stat'ed.
func (b *FSBuilder) Size(p string) int64 {
	info, err := fs.Stat(b.fsys, p)
	if err != nil {
		return -1
	}
	return info.Size()
}
