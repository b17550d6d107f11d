package graph

import (
	"sort"
	"sync"

	"github.com/tristendillon/stager/core/logger"
)

// DependencyNode is one script file in the import graph.
type DependencyNode struct {
	FilePath     string
	Dependencies []string // files this imports
	Dependents   []string // files that import this
}

// DependencyGraph records the import edges discovered while building a closure.
// Cycles are legal; they are only reported.
type DependencyGraph struct {
	nodes map[string]*DependencyNode
	order []string
	mutex sync.RWMutex
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*DependencyNode),
	}
}

// AddNode registers a file without edges. Returns false if it was known.
func (dg *DependencyGraph) AddNode(filePath string) bool {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()
	return dg.ensureNode(filePath)
}

// AddEdge records that from imports to.
func (dg *DependencyGraph) AddEdge(from, to string) {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()

	dg.ensureNode(from)
	dg.ensureNode(to)

	fromNode := dg.nodes[from]
	if !contains(fromNode.Dependencies, to) {
		fromNode.Dependencies = append(fromNode.Dependencies, to)
	}

	toNode := dg.nodes[to]
	if !contains(toNode.Dependents, from) {
		toNode.Dependents = append(toNode.Dependents, from)
	}
}

// Nodes returns every file in insertion order.
func (dg *DependencyGraph) Nodes() []string {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	nodes := make([]string, len(dg.order))
	copy(nodes, dg.order)
	return nodes
}

func (dg *DependencyGraph) HasNode(filePath string) bool {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()
	_, exists := dg.nodes[filePath]
	return exists
}

// GetDependencies returns direct imports of a file.
func (dg *DependencyGraph) GetDependencies(filePath string) []string {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	node, exists := dg.nodes[filePath]
	if !exists {
		return []string{}
	}

	dependencies := make([]string, len(node.Dependencies))
	copy(dependencies, node.Dependencies)
	return dependencies
}

// GetDependents returns files that import this file.
func (dg *DependencyGraph) GetDependents(filePath string) []string {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	node, exists := dg.nodes[filePath]
	if !exists {
		return []string{}
	}

	dependents := make([]string, len(node.Dependents))
	copy(dependents, node.Dependents)
	return dependents
}

// GetAffectedFiles returns every file that transitively imports changedFile.
func (dg *DependencyGraph) GetAffectedFiles(changedFile string) []string {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	visited := make(map[string]bool)
	var affected []string
	dg.dfsVisitDependents(changedFile, visited, &affected)

	logger.Debug("DependencyGraph: %s affects %d files", changedFile, len(affected))
	return affected
}

// DetectCycles returns one path per import cycle found, each starting and
// ending at the same file. Self-imports are reported as a one-node cycle.
func (dg *DependencyGraph) DetectCycles() [][]string {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	for _, filePath := range dg.order {
		if !visited[filePath] {
			dg.dfsFindCycles(filePath, visited, onStack, nil, &cycles)
		}
	}

	if len(cycles) > 0 {
		logger.Debug("DependencyGraph: Detected %d cycles", len(cycles))
	}
	return cycles
}

// EdgeCount is the number of distinct import edges.
func (dg *DependencyGraph) EdgeCount() int {
	dg.mutex.RLock()
	defer dg.mutex.RUnlock()

	total := 0
	for _, node := range dg.nodes {
		total += len(node.Dependencies)
	}
	return total
}

func (dg *DependencyGraph) Clear() {
	dg.mutex.Lock()
	defer dg.mutex.Unlock()

	dg.nodes = make(map[string]*DependencyNode)
	dg.order = nil
}

// ensureNode must be called with the write lock held.
func (dg *DependencyGraph) ensureNode(filePath string) bool {
	if _, exists := dg.nodes[filePath]; exists {
		return false
	}
	dg.nodes[filePath] = &DependencyNode{
		FilePath:     filePath,
		Dependencies: []string{},
		Dependents:   []string{},
	}
	dg.order = append(dg.order, filePath)
	return true
}

func (dg *DependencyGraph) dfsVisitDependents(filePath string, visited map[string]bool, affected *[]string) {
	if visited[filePath] {
		return
	}
	visited[filePath] = true

	node, exists := dg.nodes[filePath]
	if !exists {
		return
	}

	dependents := make([]string, len(node.Dependents))
	copy(dependents, node.Dependents)
	sort.Strings(dependents)

	for _, dependent := range dependents {
		if visited[dependent] {
			continue
		}
		*affected = append(*affected, dependent)
		dg.dfsVisitDependents(dependent, visited, affected)
	}
}

func (dg *DependencyGraph) dfsFindCycles(filePath string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[filePath] = true
	onStack[filePath] = true
	path = append(path, filePath)

	for _, dep := range dg.nodes[filePath].Dependencies {
		if !visited[dep] {
			dg.dfsFindCycles(dep, visited, onStack, path, cycles)
			continue
		}
		if !onStack[dep] {
			continue
		}

		for i, p := range path {
			if p == dep {
				cycle := make([]string, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, dep)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	onStack[filePath] = false
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
