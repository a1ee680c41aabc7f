package animation

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/remeh/sizedwaitgroup"
)

// FrameBuilder lists and builds the frames stored in one clip directory.
type FrameBuilder interface {
	HasFrames(dir string) bool
	BuildFrames(dir string) ([]*Frame, error)
}

// CatalogOptions tunes catalog loading.
type CatalogOptions struct {
	// Workers bounds concurrent clip builds. Defaults to runtime.NumCPU().
	Workers int
	Logger  *slog.Logger
}

// Catalog holds every clip discovered from the asset directories and
// resolves fuzzy playback requests against them.
type Catalog struct {
	builder FrameBuilder
	log     *slog.Logger
	cache   *FrameCache
	pool    sizedwaitgroup.SizedWaitGroup

	mu       sync.RWMutex
	clips    []*Clip
	families []string
	closed   bool

	errMu sync.Mutex
	errs  []error
}

// Variant is the sticky random choice shared by one family of clips.
type Variant struct {
	FamilyKey string
	Index     int
}

// NewCatalog creates an empty catalog that builds clips with builder.
func NewCatalog(builder FrameBuilder, opts CatalogOptions) *Catalog {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{
		builder: builder,
		log:     logger,
		cache:   NewFrameCache(),
		pool:    sizedwaitgroup.New(workers),
	}
}

// Cache exposes the path-keyed frame cache.
func (c *Catalog) Cache() *FrameCache {
	return c.cache
}

// AddClip registers a clip for dir and builds its frames in the background.
// It returns false when dir has no frame files. When all workers are busy the
// call waits for a free slot; the build itself never runs on the caller.
func (c *Catalog) AddClip(dir, name string) bool {
	if c == nil || c.builder == nil || !c.builder.HasFrames(dir) {
		return false
	}
	clip := NewClip(name, dir)

	c.pool.Add()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.pool.Done()
		c.recordErr(fmt.Errorf("%w: add %s", ErrCatalogClosed, name))
		return false
	}
	c.clips = append(c.clips, clip)
	c.mu.Unlock()

	go func() {
		defer c.pool.Done()
		c.build(clip)
	}()
	return true
}

// AddReadyClip registers a clip whose frames are already built.
func (c *Catalog) AddReadyClip(clip *Clip) error {
	if clip == nil {
		return fmt.Errorf("animation: add nil clip")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCatalogClosed
	}
	if err := c.cacheFrames(clip.Frames()); err != nil {
		return err
	}
	c.clips = append(c.clips, clip)
	return nil
}

func (c *Catalog) build(clip *Clip) {
	frames, err := c.builder.BuildFrames(clip.Dir)
	if err == nil {
		err = c.cacheFrames(frames)
	}
	if err != nil {
		err = fmt.Errorf("animation: build clip %s: %w", clip.Name, err)
		c.log.Error("clip build failed", slog.String("clip", clip.Name), slog.Any("error", err))
		c.recordErr(err)
	}
	clip.complete(frames, err)
	if err == nil && !clip.Ready() {
		c.recordErr(fmt.Errorf("animation: build clip %s: %w", clip.Name, ErrEmptyClip))
	}
}

// cacheFrames adds every frame or none of them.
func (c *Catalog) cacheFrames(frames []*Frame) error {
	for i, f := range frames {
		if err := c.cache.Add(f); err != nil {
			for _, added := range frames[:i] {
				c.cache.Remove(added)
			}
			return err
		}
	}
	return nil
}

func (c *Catalog) recordErr(err error) {
	c.errMu.Lock()
	c.errs = append(c.errs, err)
	c.errMu.Unlock()
}

// Wait blocks until every pending build finished and returns the joined
// build errors collected so far.
func (c *Catalog) Wait() error {
	c.pool.Wait()
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return errors.Join(c.errs...)
}

// Arrange recomputes the family list from the registered clips. Clips still
// loading are counted too; clips added afterwards are not.
func (c *Catalog) Arrange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool, len(c.clips))
	families := make([]string, 0, len(c.clips))
	for _, clip := range c.clips {
		key := clip.FamilyKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		families = append(families, key)
	}
	sort.Strings(families)
	c.families = families
	c.log.Debug("catalog arranged", slog.Int("clips", len(c.clips)), slog.Int("families", len(families)))
}

// Families returns the family keys computed by the last Arrange.
func (c *Catalog) Families() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.families...)
}

// Clips returns every registered clip in registration order.
func (c *Catalog) Clips() []*Clip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Clip(nil), c.clips...)
}

// Len returns the number of registered clips.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clips)
}

type matchStep func(c *Clip, name, mode string) bool

// resolveSteps is the fallback chain; the first step with a match wins.
var resolveSteps = []matchStep{
	func(c *Clip, name, mode string) bool { return c.contains(name) && c.contains(mode) },
	func(c *Clip, name, _ string) bool {
		return c.contains(name) && (c.contains(ModeNormal) || c.contains(modeNormalLegacy))
	},
	func(c *Clip, name, _ string) bool { return c.contains(name) && c.contains(ModeHappy) },
	func(c *Clip, name, _ string) bool { return c.contains(name) && c.contains(ModeIll) },
	func(c *Clip, name, _ string) bool { return c.contains(name) },
	func(c *Clip, _, _ string) bool { return c.contains("default") },
}

// Candidates returns the ready clips matched by the first fallback step that
// matches anything. Matching is case-insensitive substring containment.
func (c *Catalog) Candidates(name, mode string) []*Clip {
	if c == nil {
		return nil
	}
	name = strings.ToLower(name)
	mode = strings.ToLower(mode)
	clips := c.Clips()
	for _, step := range resolveSteps {
		var out []*Clip
		for _, clip := range clips {
			if clip.Ready() && step(clip, name, mode) {
				out = append(out, clip)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Resolve picks one clip for a request. v carries the sticky family choice
// between calls and is updated with the pick; intn defaults to rand.IntN.
// It returns nil when nothing in the catalog matches.
func (c *Catalog) Resolve(name, mode string, v *Variant, intn func(int) int) *Clip {
	return PickVariant(c.Candidates(name, mode), name, v, intn)
}

// PickVariant selects among candidates. Requests in the family recorded in v
// reuse its index, stepped down until it fits the new set; other requests
// pick uniformly at random.
func PickVariant(candidates []*Clip, name string, v *Variant, intn func(int) int) *Clip {
	if len(candidates) == 0 {
		return nil
	}
	if intn == nil {
		intn = rand.IntN
	}
	key := FamilyKey(name)
	var idx int
	if v != nil && v.FamilyKey != "" && v.FamilyKey == key {
		idx = v.Index
	} else {
		idx = intn(len(candidates))
	}
	for idx >= len(candidates) {
		idx--
	}
	if idx < 0 {
		idx = 0
	}
	if v != nil {
		v.FamilyKey = key
		v.Index = idx
	}
	return candidates[idx]
}

// Exist reports whether a clip matches both name and mode exactly.
func (c *Catalog) Exist(name, mode string) bool {
	if c == nil {
		return false
	}
	name = strings.ToLower(name)
	mode = strings.ToLower(mode)
	for _, clip := range c.Clips() {
		if clip.Ready() && resolveSteps[0](clip, name, mode) {
			return true
		}
	}
	return false
}

// Close waits for pending builds and drops every clip and cached frame.
func (c *Catalog) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	err := c.Wait()

	c.mu.Lock()
	c.clips = nil
	c.families = nil
	c.mu.Unlock()
	c.cache.Reset()
	return err
}
