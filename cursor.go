package teamspeak

import "context"

// Cursor iterates over a snapshot of a node's children by index. Cursors
// hold no state in the node, so any number of them can walk the same node
// at once.
type Cursor struct {
	nodes []Node
	pos   int
}

// NewCursor loads the children of n and positions a cursor on the first.
func NewCursor(ctx context.Context, n Node) (*Cursor, error) {
	children, err := n.Children(ctx)
	if err != nil {
		return nil, err
	}
	return &Cursor{nodes: children}, nil
}

// Valid reports whether the cursor points at a child.
func (c *Cursor) Valid() bool { return c.pos < len(c.nodes) }

// Node returns the current child. It panics when the cursor is not valid.
func (c *Cursor) Node() Node { return c.nodes[c.pos] }

// Index returns the position of the current child.
func (c *Cursor) Index() int { return c.pos }

// HasNext reports whether another child follows the current one.
func (c *Cursor) HasNext() bool { return c.pos+1 < len(c.nodes) }

// Next advances to the following child.
func (c *Cursor) Next() { c.pos++ }

// Rewind moves back to the first child.
func (c *Cursor) Rewind() { c.pos = 0 }

// Len returns the number of children in the snapshot.
func (c *Cursor) Len() int { return len(c.nodes) }
