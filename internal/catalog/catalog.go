package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"depcoord/internal/dependency"
	"depcoord/internal/spec"
	"depcoord/internal/supervisor"
	"depcoord/pkg/logging"
)

// Definition is one YAML-described catalog entry: an id, an optional start
// target (the id when empty), and its statically declared needs, by the
// ids of other entries.
type Definition struct {
	ID      string   `yaml:"id"`
	Target  string   `yaml:"target,omitempty"`
	Needs   []string `yaml:"needs,omitempty"`
	Restart string   `yaml:"restart,omitempty"`
}

type file struct {
	Services []Definition `yaml:"services"`
}

// Catalog holds statically declared needs (loaded from YAML, keyed by
// entry id) alongside Go-level dynamic needs providers registered by
// RegisterService (keyed by target name). A spec matching neither its
// target in the providers nor its id in the definitions resolves to "no needs",
// matching spec.md §4.2 ("missing needs is treated as empty").
type Catalog struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	impls map[string]interface{}
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		defs:  make(map[string]Definition),
		impls: make(map[string]interface{}),
	}
}

// Load reads a YAML catalog file from path and returns a populated
// Catalog. A missing file is not an error; it yields an empty catalog,
// mirroring muster's LoadConfig treatment of a missing config.yaml.
func Load(path string) (*Catalog, error) {
	c := New()
	if err := c.loadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Info("catalog", "no catalog file at %s, starting empty", path)
			return nil
		}
		return fmt.Errorf("catalog: reading %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("catalog: parsing %s: %w", path, err)
	}

	defs := make(map[string]Definition, len(f.Services))
	for _, d := range f.Services {
		if d.ID == "" {
			return fmt.Errorf("catalog: %s: entry with empty id", path)
		}
		defs[d.ID] = d
	}

	c.mu.Lock()
	c.defs = defs
	c.mu.Unlock()
	logging.Info("catalog", "loaded %d service definitions from %s", len(defs), path)
	return nil
}

// SpecOf builds the normalized spec.Spec for a catalog entry by id, running
// its stored Definition through spec.RawSpec and spec.Normalize — the
// catalog's own exercise of Normalize's pre-built structural input shape
// (spec.md §4.1 shape (c)), the same shape a caller can also hand Normalize
// directly. An id with no matching Definition is a catalog lookup failure,
// reported before Normalize is ever called.
func (c *Catalog) SpecOf(id string) (spec.Spec, error) {
	c.mu.RLock()
	def, ok := c.defs[id]
	c.mu.RUnlock()
	if !ok {
		return spec.Spec{}, fmt.Errorf("catalog: no entry for %q", id)
	}

	restart, err := spec.ParseRestartPolicy(def.Restart)
	if err != nil {
		return spec.Spec{}, fmt.Errorf("catalog: %s: %w", id, err)
	}

	return spec.Normalize(&spec.RawSpec{
		ID:      def.ID,
		Target:  def.Target,
		Args:    nil,
		Restart: restart,
	})
}

// RegisterService associates target with impl, which may implement
// supervisor.NeedsProvider and/or supervisor.NeedsWithArgsProvider. This
// is how dynamic, argument-dependent needs (spec.md §8 scenario 2's H)
// are wired in without a YAML declaration.
func (c *Catalog) RegisterService(target string, impl interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.impls[target] = impl
}

// NeedsFunc adapts the Catalog into a dependency.NeedsFunc.
func (c *Catalog) NeedsFunc() dependency.NeedsFunc {
	return func(ctx context.Context, s spec.Spec) ([]spec.Spec, error) {
		c.mu.RLock()
		impl, hasImpl := c.impls[s.Start.Target]
		def, hasDef := c.defs[s.ID]
		c.mu.RUnlock()

		if hasImpl {
			return needsFromImpl(ctx, impl, s)
		}
		if hasDef {
			out := make([]spec.Spec, 0, len(def.Needs))
			for _, id := range def.Needs {
				n, err := spec.Normalize(id)
				if err != nil {
					return nil, err
				}
				out = append(out, n)
			}
			return out, nil
		}
		return nil, nil
	}
}

func needsFromImpl(ctx context.Context, impl interface{}, s spec.Spec) ([]spec.Spec, error) {
	var raw []interface{}
	var err error

	if len(s.Start.Args) > 0 {
		if p, ok := impl.(supervisor.NeedsWithArgsProvider); ok {
			raw, err = p.NeedsWithArgs(ctx, s.Start.Args)
		} else if p, ok := impl.(supervisor.NeedsProvider); ok {
			raw, err = p.Needs(ctx)
		}
	} else if p, ok := impl.(supervisor.NeedsProvider); ok {
		raw, err = p.Needs(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: needs for %s: %w", s.ID, err)
	}

	out := make([]spec.Spec, 0, len(raw))
	for _, r := range raw {
		n, err := spec.Normalize(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Watch reloads path on every filesystem write or create event, invoking
// onReload with the freshly loaded Catalog. It returns an error if the
// watcher cannot be set up; otherwise the watch runs until ctx is canceled
// or the watcher's channels close. A Coordinator keeps the Needs function
// it was constructed with; a reload does not change it.
func Watch(ctx context.Context, path string, onReload func(*Catalog)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: starting watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return fmt.Errorf("catalog: watching %s: %w", path, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				c, err := Load(path)
				if err != nil {
					logging.Warn("catalog", "reload of %s failed: %v", path, err)
					continue
				}
				onReload(c)
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				logging.Warn("catalog", "watcher error for %s: %v", path, werr)
			}
		}
	}()

	return nil
}
