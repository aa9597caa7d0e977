package node

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrBadJSON indicates the input could not be parsed as JSON.
var ErrBadJSON = errors.New("invalid JSON")

// FromJSON parses a JSON document into a Node tree.
// JSON booleans become flag nodes, numbers become int nodes when they have no
// fractional part and float nodes otherwise.
func FromJSON(data string) (Node, error) {
	if !gjson.Valid(data) {
		return Node{}, ErrBadJSON
	}
	return fromResult(gjson.Parse(data)), nil
}

func fromResult(r gjson.Result) Node {
	switch r.Type {
	case gjson.String:
		return String(r.Str)
	case gjson.True:
		return Flag(true)
	case gjson.False:
		return Flag(false)
	case gjson.Number:
		if f := r.Float(); f == float64(int64(f)) {
			return Int(int64(f))
		}
		return Float(r.Float())
	case gjson.JSON:
		if r.IsArray() {
			out := Array()
			r.ForEach(func(_, value gjson.Result) bool {
				out.Add(fromResult(value))
				return true
			})
			return out
		}
		out := Map()
		r.ForEach(func(key, value gjson.Result) bool {
			out.Set(key.String(), fromResult(value))
			return true
		})
		return out
	default:
		return Node{}
	}
}

// JSON serializes the node as a JSON document.
func (n Node) JSON() (string, error) {
	switch n.Kind {
	case KindNone:
		return "null", nil
	case KindString:
		return strconv.Quote(n.Str), nil
	case KindFlag:
		if n.Flag {
			return "true", nil
		}
		return "false", nil
	case KindInt:
		return strconv.FormatInt(n.Int, 10), nil
	case KindFloat:
		return strconv.FormatFloat(n.Float, 'g', -1, 64), nil
	case KindArray:
		out := "[]"
		for _, c := range n.Array {
			raw, err := c.JSON()
			if err != nil {
				return "", err
			}
			var err2 error
			out, err2 = sjson.SetRaw(out, "-1", raw)
			if err2 != nil {
				return "", err2
			}
		}
		return out, nil
	case KindMap:
		out := "{}"
		for _, e := range n.Map {
			raw, err := e.Value.JSON()
			if err != nil {
				return "", err
			}
			var err2 error
			out, err2 = sjson.SetRaw(out, escapeKey(e.Key), raw)
			if err2 != nil {
				return "", err2
			}
		}
		return out, nil
	}
	return "", ErrBadJSON
}

// escapeKey escapes sjson path metacharacters in a literal map key.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
