package teamspeak

import (
	"context"
	"errors"
	"strings"
)

// SkipChildren is returned by a WalkFunc to skip the children of the node
// just visited.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every node below the walk root.
//
// siblings has one element per level from the first level below the root
// down to n. For each ancestor level it reports whether that level has
// siblings left to visit; the last element reports whether n is the last of
// its siblings. Viewers use it to draw tree connectors.
type WalkFunc func(n Node, siblings []bool) error

// Walk visits the subtree of root in pre-order, root excluded, loading
// child collections on demand. The traversal keeps its own stack of
// cursors and recomputes siblings at every node.
func Walk(ctx context.Context, root Node, fn WalkFunc) error {
	top, err := NewCursor(ctx, root)
	if err != nil {
		return err
	}

	stack := []*Cursor{top}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		if !cur.Valid() {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				stack[len(stack)-1].Next()
			}
			continue
		}

		n := cur.Node()
		depth := len(stack) - 1
		siblings := make([]bool, depth+1)
		for level := 0; level < depth; level++ {
			siblings[level] = stack[level].HasNext()
		}
		siblings[depth] = !cur.HasNext()

		if err := fn(n, siblings); err != nil {
			if errors.Is(err, SkipChildren) {
				cur.Next()
				continue
			}
			return err
		}

		child, err := NewCursor(ctx, n)
		if err != nil {
			return err
		}
		if child.Len() == 0 {
			cur.Next()
			continue
		}
		stack = append(stack, child)
	}
	return nil
}

// Viewer renders nodes for display. FetchObject is called with a nil
// siblings slice for the root.
type Viewer interface {
	FetchObject(n Node, siblings []bool) string
}

// Render walks the subtree of root and concatenates the viewer fragments,
// root first. When every fragment is empty and the viewer implements
// fmt.Stringer, its String result is returned instead.
func Render(ctx context.Context, root Node, viewer Viewer) (string, error) {
	var b strings.Builder
	b.WriteString(viewer.FetchObject(root, nil))

	err := Walk(ctx, root, func(n Node, siblings []bool) error {
		b.WriteString(viewer.FetchObject(n, siblings))
		return nil
	})
	if err != nil {
		return "", err
	}

	if b.Len() == 0 {
		if s, ok := viewer.(interface{ String() string }); ok {
			return s.String(), nil
		}
	}
	return b.String(), nil
}
