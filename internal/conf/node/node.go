// Package node provides the tagged-union structured value used for
// non-textual get/set between the configuration engine and embedding hosts.
//
// A Node is either a scalar (string, flag, integer, float), an array, or an
// ordered map. Maps preserve insertion order so profile listings and option
// dumps come out in a stable order.
package node

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies what a Node holds.
type Kind uint8

const (
	// KindNone is the zero Node.
	KindNone Kind = iota
	// KindString holds a string.
	KindString
	// KindFlag holds a boolean.
	KindFlag
	// KindInt holds an int64.
	KindInt
	// KindFloat holds a float64.
	KindFloat
	// KindArray holds an ordered list of child nodes.
	KindArray
	// KindMap holds an ordered list of key/child pairs.
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindFlag:
		return "flag"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Entry is one key/value pair of a map node.
type Entry struct {
	Key   string
	Value Node
}

// Node is a tagged union value. Exactly the field selected by Kind is
// meaningful; the others hold their zero value.
type Node struct {
	Kind  Kind
	Str   string
	Flag  bool
	Int   int64
	Float float64
	Array []Node
	Map   []Entry
}

// String creates a string node.
func String(s string) Node { return Node{Kind: KindString, Str: s} }

// Flag creates a flag node.
func Flag(b bool) Node { return Node{Kind: KindFlag, Flag: b} }

// Int creates an integer node.
func Int(i int64) Node { return Node{Kind: KindInt, Int: i} }

// Float creates a float node.
func Float(f float64) Node { return Node{Kind: KindFloat, Float: f} }

// Array creates an array node from the given children.
func Array(children ...Node) Node {
	return Node{Kind: KindArray, Array: children}
}

// Map creates an empty map node.
func Map() Node { return Node{Kind: KindMap} }

// Add appends a child to an array node and returns the updated node.
// Calling Add on a non-array node is a programming error.
func (n *Node) Add(child Node) {
	if n.Kind != KindArray {
		panic("node: Add on non-array node")
	}
	n.Array = append(n.Array, child)
}

// Set appends a key/value pair to a map node.
// Calling Set on a non-map node is a programming error.
func (n *Node) Set(key string, value Node) {
	if n.Kind != KindMap {
		panic("node: Set on non-map node")
	}
	n.Map = append(n.Map, Entry{Key: key, Value: value})
}

// Get returns the value for a key of a map node.
func (n Node) Get(key string) (Node, bool) {
	if n.Kind != KindMap {
		return Node{}, false
	}
	for _, e := range n.Map {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Array != nil {
		out.Array = make([]Node, len(n.Array))
		for i, c := range n.Array {
			out.Array[i] = c.Clone()
		}
	}
	if n.Map != nil {
		out.Map = make([]Entry, len(n.Map))
		for i, e := range n.Map {
			out.Map[i] = Entry{Key: e.Key, Value: e.Value.Clone()}
		}
	}
	return out
}

// Equal reports whether two nodes are structurally equal.
func (n Node) Equal(other Node) bool {
	if n.Kind != other.Kind {
		return false
	}
	switch n.Kind {
	case KindNone:
		return true
	case KindString:
		return n.Str == other.Str
	case KindFlag:
		return n.Flag == other.Flag
	case KindInt:
		return n.Int == other.Int
	case KindFloat:
		return n.Float == other.Float
	case KindArray:
		if len(n.Array) != len(other.Array) {
			return false
		}
		for i := range n.Array {
			if !n.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(n.Map) != len(other.Map) {
			return false
		}
		for i := range n.Map {
			if n.Map[i].Key != other.Map[i].Key {
				return false
			}
			if !n.Map[i].Value.Equal(other.Map[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// String returns a human-readable rendering, mainly for logs and tests.
func (n Node) String() string {
	switch n.Kind {
	case KindNone:
		return "<none>"
	case KindString:
		return strconv.Quote(n.Str)
	case KindFlag:
		if n.Flag {
			return "yes"
		}
		return "no"
	case KindInt:
		return strconv.FormatInt(n.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(n.Float, 'g', -1, 64)
	case KindArray:
		var b strings.Builder
		b.WriteByte('[')
		for i, c := range n.Array {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.String())
		}
		b.WriteByte(']')
		return b.String()
	case KindMap:
		var b strings.Builder
		b.WriteByte('{')
		for i, e := range n.Map {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", e.Key, e.Value.String())
		}
		b.WriteByte('}')
		return b.String()
	}
	return "<invalid>"
}
