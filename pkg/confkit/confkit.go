// Package confkit is the shared config-file plumbing for the agent: path
// resolution relative to the main config, .env bootstrap, and file-backed
// sections so subsystem configs (LLM endpoint, perp venues) live in their
// own YAML files.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeromicro/go-zero/core/conf"
)

// ResolvePath expands environment variables in file and, unless the result
// is already absolute, anchors it at base. Section references in the main
// config are written relative to the config's own directory.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory holding the main config file; section paths
// resolve against it.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// LoadFile decodes a config file into T through go-zero's conf.Load,
// optionally with environment substitution.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var cfg T
	opts := []conf.Option{}
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// Section points the main config at a standalone file for one subsystem.
// File names the YAML file; Value holds the decoded config once Hydrate has
// run, and stays nil when no file is referenced.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate resolves File against base, runs the subsystem's own loader on it,
// and fills Value. A Section with an empty File is a disabled subsystem and
// hydrates to nothing.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}
