// Package tree keeps extracted page content as typed ordered tree so string
// fields can be located, replaced in place and written back without
// changing document shape.
package tree

import "fmt"

// Kind of the tree node.
type Kind int

const (
	// String is text value, the only kind which may be styled.
	String Kind = iota
	// List is ordered sequence of nodes.
	List
	// Map is object with ordered keys.
	Map
	// Literal is any other scalar (number, boolean, null) kept verbatim.
	Literal
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case List:
		return "list"
	case Map:
		return "map"
	case Literal:
		return "literal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is single key/value pair of Map node.
type Field struct {
	Key   string
	Value *Node
}

// Node is tagged variant: only members matching Kind are meaningful.
type Node struct {
	Kind   Kind
	Str    string
	Raw    string
	Items  []*Node
	Fields []Field
}

func NewString(s string) *Node {
	return &Node{Kind: String, Str: s}
}

func NewList(items ...*Node) *Node {
	return &Node{Kind: List, Items: items}
}

func NewMap(fields ...Field) *Node {
	return &Node{Kind: Map, Fields: fields}
}

func NewLiteral(raw string) *Node {
	return &Node{Kind: Literal, Raw: raw}
}

// Get returns value stored under key in Map node.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != Map {
		return nil, false
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// set stores value under key preserving position of existing key.
func (n *Node) set(key string, value *Node) {
	for i := range n.Fields {
		if n.Fields[i].Key == key {
			n.Fields[i].Value = value
			return
		}
	}
	n.Fields = append(n.Fields, Field{Key: key, Value: value})
}
