package spec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// specGlob matches spec documents at any depth below the specs directory.
const specGlob = "**/*.{yaml,yml,json,cue}"

// Discover returns the spec files under dir in sorted order.
func Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: ErrNotFound, Path: dir, Message: "specs directory not found"}
		}
		return nil, &Error{Kind: ErrNotFound, Path: dir, Message: err.Error()}
	}
	if !info.IsDir() {
		return nil, &Error{Kind: ErrNotFound, Path: dir, Message: "not a directory"}
	}

	matches, err := doublestar.Glob(os.DirFS(dir), specGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	slices.Sort(paths)
	return paths, nil
}

// LoadDir discovers and loads every spec under dir. It stops at the first
// invalid spec.
func LoadDir(dir string) ([]*Spec, error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	specs := make([]*Spec, 0, len(paths))
	for _, p := range paths {
		s, err := Load(p)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}
