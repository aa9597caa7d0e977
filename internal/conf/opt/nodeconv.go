package opt

import (
	"fmt"
	"strconv"

	"github.com/dshills/conftree/internal/conf/node"
)

// ValueToNode converts a stored value to its structured representation. The
// mapping follows the option's type: flags become flag nodes, numeric types
// become int or float nodes, everything else becomes a string node.
func ValueToNode(o *Option, v Value) node.Node {
	switch o.Type {
	case TypeFlag:
		return node.Flag(v.Flag)
	case TypeInt, TypeDuration:
		return node.Int(v.Int)
	case TypeFloat, TypeAspect:
		return node.Float(v.Float)
	case TypeStringList:
		out := node.Array()
		for _, s := range v.List {
			out.Add(node.String(s))
		}
		return out
	default:
		return node.String(o.Type.Print(v))
	}
}

// ValueFromNode converts a structured value back to storage form. Exact-kind
// matches convert directly; any other node is printed to text and run through
// the option type's parser, so a string node "42" satisfies an integer
// option.
func ValueFromNode(o *Option, n node.Node) (Value, error) {
	switch o.Type {
	case TypeFlag:
		if n.Kind == node.KindFlag {
			return Value{Flag: n.Flag}, nil
		}
	case TypeInt, TypeDuration:
		if n.Kind == node.KindInt {
			if o.Type == TypeInt {
				if err := checkRange(o, o.Name, float64(n.Int)); err != nil {
					return Value{}, err
				}
			}
			return Value{Int: n.Int}, nil
		}
	case TypeFloat:
		switch n.Kind {
		case node.KindFloat:
			if err := checkRange(o, o.Name, n.Float); err != nil {
				return Value{}, err
			}
			return Value{Float: n.Float}, nil
		case node.KindInt:
			if err := checkRange(o, o.Name, float64(n.Int)); err != nil {
				return Value{}, err
			}
			return Value{Float: float64(n.Int)}, nil
		}
	case TypeStringList:
		if n.Kind == node.KindArray {
			list := make([]string, 0, len(n.Array))
			for _, c := range n.Array {
				if c.Kind != node.KindString {
					return Value{}, fmt.Errorf("%w: option %s: list elements must be strings",
						ErrInvalidValue, o.Name)
				}
				list = append(list, c.Str)
			}
			return Value{List: list}, nil
		}
	}
	text, ok := nodeText(n)
	if !ok {
		return Value{}, fmt.Errorf("%w: option %s: unsupported value kind",
			ErrInvalidValue, o.Name)
	}
	return o.Type.Parse(o, o.Name, text)
}

// nodeText flattens a scalar node to the textual form the type parsers
// accept. Composite nodes have no textual form.
func nodeText(n node.Node) (string, bool) {
	switch n.Kind {
	case node.KindString:
		return n.Str, true
	case node.KindFlag:
		if n.Flag {
			return "yes", true
		}
		return "no", true
	case node.KindInt:
		return strconv.FormatInt(n.Int, 10), true
	case node.KindFloat:
		return strconv.FormatFloat(n.Float, 'g', -1, 64), true
	}
	return "", false
}
