package models

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/tristendillon/stager/core/logger"
)

// ClosureNode is one directory or file in the per-repository view of a closure.
type ClosureNode struct {
	Name     string
	Children map[string]*ClosureNode
	Parent   *ClosureNode
	Depth    int
	File     *ResolvedFile
}

// ClosureTree groups closure files by repository and internal directory for display.
type ClosureTree struct {
	Root *ClosureNode
}

func NewClosureTree() *ClosureTree {
	return &ClosureTree{
		Root: &ClosureNode{
			Children: make(map[string]*ClosureNode),
		},
	}
}

func (ct *ClosureTree) Reset() {
	ct.Root = &ClosureNode{
		Children: make(map[string]*ClosureNode),
	}
}

// AddFile inserts a file under <repo>/<internal segments>.
func (ct *ClosureTree) AddFile(file ResolvedFile) {
	parts := []string{file.Repo}
	for _, part := range strings.Split(filepath.ToSlash(file.Internal), "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}

	current := ct.Root
	for i, part := range parts {
		child, exists := current.Children[part]
		if !exists {
			child = &ClosureNode{
				Name:     part,
				Children: make(map[string]*ClosureNode),
				Parent:   current,
				Depth:    i + 1,
			}
			current.Children[part] = child
		}
		current = child
	}

	f := file
	current.File = &f
}

func (ct *ClosureTree) PrintTree(level logger.LogLevel) {
	ct.printNode(ct.Root, "", level)
}

func (ct *ClosureTree) printNode(node *ClosureNode, prefix string, level logger.LogLevel) {
	if node != ct.Root {
		if node.File != nil {
			logger.GetLogFromLevel(level)("%s%s (depth %d)", prefix, node.Name, node.File.Depth)
		} else {
			logger.GetLogFromLevel(level)("%s%s/", prefix, node.Name)
		}
	}

	keys := make([]string, 0, len(node.Children))
	for k := range node.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	childPrefix := prefix
	if node != ct.Root {
		childPrefix += "  "
	}
	for _, key := range keys {
		ct.printNode(node.Children[key], childPrefix, level)
	}
}

// BuildClosureTree is a convenience for rendering a whole closure.
func BuildClosureTree(c *Closure) *ClosureTree {
	tree := NewClosureTree()
	for _, f := range c.Files {
		tree.AddFile(f)
	}
	return tree
}
