package watch

import (
	"path/filepath"
	"sort"
	"sync"
)

// Graph reports which files transitively depend on a path.
type Graph interface {
	Dependents(path string) []string
}

// MemoryGraph is an in-memory module dependency graph.
type MemoryGraph struct {
	mux       sync.RWMutex
	importers map[string]map[string]struct{}
}

// NewMemoryGraph creates an empty graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{importers: map[string]map[string]struct{}{}}
}

// AddDependency records that from imports to.
func (g *MemoryGraph) AddDependency(from string, to ...string) {
	g.mux.Lock()
	defer g.mux.Unlock()
	from = filepath.Clean(from)
	for _, dependency := range to {
		dependency = filepath.Clean(dependency)
		importers, ok := g.importers[dependency]
		if !ok {
			importers = map[string]struct{}{}
			g.importers[dependency] = importers
		}
		importers[from] = struct{}{}
	}
}

// RemoveFile drops every edge from or to path.
func (g *MemoryGraph) RemoveFile(path string) {
	g.mux.Lock()
	defer g.mux.Unlock()
	path = filepath.Clean(path)
	delete(g.importers, path)
	for _, importers := range g.importers {
		delete(importers, path)
	}
}

// Dependents returns every file that imports path directly or transitively,
// sorted.
func (g *MemoryGraph) Dependents(path string) []string {
	g.mux.RLock()
	defer g.mux.RUnlock()
	path = filepath.Clean(path)
	visited := map[string]bool{path: true}
	queue := []string{path}
	var ret []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for importer := range g.importers[current] {
			if visited[importer] {
				continue
			}
			visited[importer] = true
			ret = append(ret, importer)
			queue = append(queue, importer)
		}
	}
	sort.Strings(ret)
	return ret
}
