// Package fsys locates a tileset's on-disk inputs — the layered PNGs,
// attributes CSV, and animation directory — behind an injectable
// afero.Fs, generalizing the teacher's direct os.Open/os.ReadFile calls
// (pkg/gam.go) into something testable against an in-memory filesystem.
package fsys

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Layout names the conventional files and directories a single tileset
// (primary or secondary) is assembled from, rooted at one directory.
type Layout struct {
	Bottom         string
	Middle         string
	Top            string
	AttributesCsv  string
	AnimsDir       string
}

// Locator resolves a Layout against an afero.Fs, so tests can substitute
// afero.NewMemMapFs() for the real disk.
type Locator struct {
	Fs afero.Fs
}

// New wraps the OS filesystem.
func New() Locator {
	return Locator{Fs: afero.NewOsFs()}
}

// NewWithFs wraps an arbitrary afero.Fs, e.g. an in-memory one for tests.
func NewWithFs(fs afero.Fs) Locator {
	return Locator{Fs: fs}
}

// Discover builds the conventional Layout under root: bottom.png,
// middle.png, top.png, attributes.csv, and an anims/ subdirectory. It
// only builds the paths and does not check whether any of them exist;
// Exists does that.
func (l Locator) Discover(root string) Layout {
	return Layout{
		Bottom:        filepath.Join(root, "bottom.png"),
		Middle:        filepath.Join(root, "middle.png"),
		Top:           filepath.Join(root, "top.png"),
		AttributesCsv: filepath.Join(root, "attributes.csv"),
		AnimsDir:      filepath.Join(root, "anims"),
	}
}

// Exists reports whether path is present on the locator's filesystem.
func (l Locator) Exists(path string) bool {
	ok, err := afero.Exists(l.Fs, path)
	return err == nil && ok
}

// Open opens path for reading.
func (l Locator) Open(path string) (afero.File, error) {
	f, err := l.Fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// Create opens path for writing, creating parent directories as needed.
func (l Locator) Create(path string) (afero.File, error) {
	if err := l.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := l.Fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// AnimationDirs lists the immediate subdirectories of animsDir in sorted
// order, each one an animation's name; every animation's frame PNGs then
// live directly inside it (spec.md §6's DecompiledTileset.Animations,
// "each: name + frames").
func (l Locator) AnimationDirs(animsDir string) ([]string, error) {
	if !l.Exists(animsDir) {
		return nil, nil
	}
	entries, err := afero.ReadDir(l.Fs, animsDir)
	if err != nil {
		return nil, fmt.Errorf("reading animations directory %s: %w", animsDir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// AnimationFrameFiles lists the PNG frame files within one animation's
// directory, in filename sort order; spec.md §4.9 requires the first
// frame (alphabetically, by the reference compiler's convention) be
// treated as the key frame.
func (l Locator) AnimationFrameFiles(animDir string) ([]string, error) {
	entries, err := afero.ReadDir(l.Fs, animDir)
	if err != nil {
		return nil, fmt.Errorf("reading animation directory %s: %w", animDir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".png" {
			files = append(files, filepath.Join(animDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
