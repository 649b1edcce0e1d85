package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// header is read first so a file can extend an already registered profile.
type header struct {
	Name    string `yaml:"name"`
	Extends string `yaml:"extends"`
}

// Decode parses one YAML profile. When the document names a profile to
// extend, fields present in the document override a copy of that profile.
func (r *Registry) Decode(data []byte) (*Profile, error) {
	var h header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse profile header: %w", err)
	}
	if h.Name == "" {
		return nil, errors.New("profile has no name")
	}

	p := &Profile{}
	if h.Extends != "" {
		base, ok := r.Get(h.Extends)
		if !ok {
			return nil, fmt.Errorf("profile %q extends unknown profile %q", h.Name, h.Extends)
		}
		cp := *base
		p = &cp
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", h.Name, err)
	}
	p.Name = h.Name
	return p, nil
}

// LoadFile decodes and registers one profile file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p, err := r.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	p.Source = path
	return r.Add(p)
}

// LoadDir registers every .yaml/.yml file in dir in lexical order. A missing
// directory is not an error.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := r.LoadFile(path); err != nil {
			return n, err
		}
		slog.Info("profile loaded", "path", path)
		n++
	}
	return n, nil
}
