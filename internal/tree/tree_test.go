package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRoundTrip(t *testing.T) {
	root := Build([]string{"src/a.js", "src/b/c.css", "readme.md"})

	require.True(t, root.IsDir)
	require.Len(t, root.Children, 2)

	src := root.Children["src"]
	require.NotNil(t, src)
	assert.True(t, src.IsDir)
	assert.Equal(t, "src", src.Path)

	readme := root.Children["readme.md"]
	require.NotNil(t, readme)
	assert.False(t, readme.IsDir)
	assert.Nil(t, readme.Children)

	require.Len(t, src.Children, 2)
	a := src.Children["a.js"]
	require.NotNil(t, a)
	assert.False(t, a.IsDir)
	assert.Equal(t, "src/a.js", a.Path)

	b := src.Children["b"]
	require.NotNil(t, b)
	assert.True(t, b.IsDir)
	require.Len(t, b.Children, 1)

	c := b.Children["c.css"]
	require.NotNil(t, c)
	assert.False(t, c.IsDir)
	assert.Equal(t, "src/b/c.css", c.Path)
}

func TestBuildEmpty(t *testing.T) {
	root := Build(nil)
	require.NotNil(t, root)
	assert.True(t, root.IsDir)
	assert.NotNil(t, root.Children)
	assert.Empty(t, root.Children)
	assert.Equal(t, 0, root.CountFiles())
}

func TestBuildDeterministic(t *testing.T) {
	paths := []string{"z/y/x.go", "a.txt", "z/b.go", "m/n/o/p.md", "z/y/w.go"}
	first := Build(paths)
	second := Build(paths)
	assert.True(t, Equal(first, second))

	reversed := make([]string, len(paths))
	for i, p := range paths {
		reversed[len(paths)-1-i] = p
	}
	assert.True(t, Equal(first, Build(reversed)))
	assert.False(t, Equal(first, Build(paths[1:])))
}

func TestBuildReusesDirectories(t *testing.T) {
	root := Build([]string{"src/a.js", "src/b.js", "src/lib/c.js", "src/lib/d.js"})
	require.Len(t, root.Children, 1)
	src := root.Children["src"]
	assert.Len(t, src.Children, 3)
	assert.Len(t, src.Children["lib"].Children, 2)
	assert.Equal(t, 4, root.CountFiles())
}

func TestSortedDirectoriesFirst(t *testing.T) {
	root := Build([]string{"b.txt", "a.txt", "zdir/x", "adir/y"})

	var names []string
	for _, n := range root.Sorted() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"adir", "zdir", "a.txt", "b.txt"}, names)
}

func TestWalkDisplayOrder(t *testing.T) {
	root := Build([]string{"src/a.js", "src/b/c.css", "readme.md"})

	var visited []string
	var depths []int
	root.Walk(func(n *Node, depth int) bool {
		visited = append(visited, n.Path)
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"src", "src/b", "src/b/c.css", "src/a.js", "readme.md"}, visited)
	assert.Equal(t, []int{0, 1, 2, 1, 0}, depths)
}

func TestFind(t *testing.T) {
	root := Build([]string{"src/b/c.css"})
	assert.Equal(t, "src/b/c.css", root.Find("src/b/c.css").Path)
	assert.True(t, root.Find("src/b").IsDir)
	assert.Nil(t, root.Find("src/missing"))
	assert.Nil(t, root.Find("src/b/c.css/deeper"))
}

func TestRender(t *testing.T) {
	root := Build([]string{"src/a.js", "src/b/c.css", "readme.md"})
	want := "" +
		"├── src/\n" +
		"│   ├── b/\n" +
		"│   │   └── c.css\n" +
		"│   └── a.js\n" +
		"└── readme.md\n"
	assert.Equal(t, want, Render(root))
}
