// Package tree projects the flat path index into a directory hierarchy.
package tree

import (
	"sort"
	"strings"
)

// Node is a file or directory in the derived tree. Directory nodes own a
// name-keyed child map; file nodes have nil Children.
type Node struct {
	Name     string
	Path     string
	IsDir    bool
	Children map[string]*Node
}

func newDir(name, path string) *Node {
	return &Node{Name: name, Path: path, IsDir: true, Children: make(map[string]*Node)}
}

// Build derives the tree for paths. The root is a directory with an empty
// name; an empty input yields a root with no children.
func Build(paths []string) *Node {
	root := newDir("", "")
	for _, p := range paths {
		insert(root, p)
	}
	return root
}

func insert(root *Node, p string) {
	segments := splitPath(p)
	if len(segments) == 0 {
		return
	}

	current := root
	for i, seg := range segments {
		childPath := BuildChildPath(current.Path, seg)
		last := i == len(segments)-1

		child, ok := current.Children[seg]
		if !ok {
			if last {
				child = &Node{Name: seg, Path: childPath}
			} else {
				child = newDir(seg, childPath)
			}
			current.Children[seg] = child
		}
		if last {
			return
		}
		if !child.IsDir {
			// A path nests under something already seen as a file; the
			// directory view wins so the deeper path stays reachable.
			child.IsDir = true
			child.Children = make(map[string]*Node)
		}
		current = child
	}
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// BuildChildPath constructs a child path from parent + name.
func BuildChildPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + "/" + name
}

// Sorted returns the children in display order: directories first, then
// by name.
func (n *Node) Sorted() []*Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Walk visits every node below n in display order. depth is 0 for the
// direct children of n. Returning false from fn skips that node's subtree.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	for _, c := range n.Sorted() {
		if fn(c, depth) && c.IsDir {
			c.walk(fn, depth+1)
		}
	}
}

// Find resolves a path in the tree.
func (n *Node) Find(p string) *Node {
	current := n
	for _, seg := range splitPath(p) {
		if current == nil || !current.IsDir {
			return nil
		}
		current = current.Children[seg]
	}
	return current
}

// CountFiles counts the file leaves below n.
func (n *Node) CountFiles() int {
	if n == nil {
		return 0
	}
	if !n.IsDir {
		return 1
	}
	count := 0
	for _, c := range n.Children {
		count += c.CountFiles()
	}
	return count
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Path != b.Path || a.IsDir != b.IsDir {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for name, ca := range a.Children {
		cb, ok := b.Children[name]
		if !ok || !Equal(ca, cb) {
			return false
		}
	}
	return true
}

// Render draws the tree below root, one node per line.
func Render(root *Node) string {
	var b strings.Builder
	render(&b, root, "")
	return b.String()
}

func render(b *strings.Builder, n *Node, prefix string) {
	children := n.Sorted()
	for i, c := range children {
		connector, next := "├── ", "│   "
		if i == len(children)-1 {
			connector, next = "└── ", "    "
		}
		name := c.Name
		if c.IsDir {
			name += "/"
		}
		b.WriteString(prefix + connector + name + "\n")
		if c.IsDir {
			render(b, c, prefix+next)
		}
	}
}
