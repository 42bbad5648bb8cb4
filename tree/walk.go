package tree

import (
	"slices"
	"strconv"
	"strings"
)

// Keys tells which string values of the tree are subject to styling.
type Keys struct {
	// Fields are map keys whose string values are styled.
	Fields []string
	// Lists are map keys whose values are lists of styled strings.
	Lists []string
}

func (k Keys) field(key string) bool {
	return slices.Contains(k.Fields, key)
}

func (k Keys) list(key string) bool {
	return slices.Contains(k.Lists, key)
}

// Ref addresses string value inside its parent container: by Key when
// parent is Map, by Index when parent is List.
type Ref struct {
	Parent *Node
	Key    string
	Index  int
	// Path is human readable location, used for diagnostics only.
	Path string
}

func (r Ref) node() *Node {
	if r.Parent.Kind == List {
		return r.Parent.Items[r.Index]
	}
	n, _ := r.Parent.Get(r.Key)
	return n
}

// Text returns current value of referenced string.
func (r Ref) Text() string {
	return r.node().Str
}

// Replace stores new value in place of referenced string.
func (r Ref) Replace(s string) {
	if r.Parent.Kind == List {
		r.Parent.Items[r.Index] = NewString(s)
		return
	}
	r.Parent.set(r.Key, NewString(s))
}

// Collect walks tree depth first in document order and returns references
// to all styled strings. Lists under list keys contribute their string items
// only, other items are not descended into. Anything else not matched is
// searched recursively.
func Collect(root *Node, keys Keys) []Ref {
	var refs []Ref
	collect(root, keys, "$", &refs)
	return refs
}

func collect(n *Node, keys Keys, path string, refs *[]Ref) {
	if n == nil {
		return
	}
	switch n.Kind {
	case Map:
		for _, f := range n.Fields {
			fpath := path + "." + f.Key
			switch {
			case f.Value == nil:
				continue
			case keys.field(f.Key) && f.Value.Kind == String:
				*refs = append(*refs, Ref{Parent: n, Key: f.Key, Path: fpath})
			case keys.list(f.Key) && f.Value.Kind == List:
				for i, item := range f.Value.Items {
					if item.Kind == String {
						*refs = append(*refs, Ref{Parent: f.Value, Index: i, Path: indexPath(fpath, i)})
					}
				}
			default:
				collect(f.Value, keys, fpath, refs)
			}
		}
	case List:
		for i, item := range n.Items {
			collect(item, keys, indexPath(path, i), refs)
		}
	}
}

func indexPath(path string, i int) string {
	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(i))
	b.WriteByte(']')
	return b.String()
}
