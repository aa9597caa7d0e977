package opt

import (
	"errors"
	"testing"

	"github.com/dshills/conftree/internal/conf/node"
)

func TestValueToNode(t *testing.T) {
	tests := []struct {
		name string
		o    *Option
		v    Value
		want node.Node
	}{
		{"flag", &Option{Name: "cache", Type: TypeFlag}, Value{Flag: true}, node.Flag(true)},
		{"int", &Option{Name: "n", Type: TypeInt}, Value{Int: 7}, node.Int(7)},
		{"float", &Option{Name: "f", Type: TypeFloat}, Value{Float: 1.5}, node.Float(1.5)},
		{"string", &Option{Name: "s", Type: TypeString}, Value{Str: "x"}, node.String("x")},
		{"choice", &Option{Name: "c", Type: TypeChoice, Choices: []string{"a"}}, Value{Str: "a"}, node.String("a")},
		{"list", &Option{Name: "l", Type: TypeStringList}, Value{List: []string{"a", "b"}},
			node.Array(node.String("a"), node.String("b"))},
	}

	for _, tt := range tests {
		if got := ValueToNode(tt.o, tt.v); !got.Equal(tt.want) {
			t.Errorf("%s: ValueToNode = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestValueFromNode_ExactKinds(t *testing.T) {
	if v, err := ValueFromNode(&Option{Name: "cache", Type: TypeFlag}, node.Flag(true)); err != nil || !v.Flag {
		t.Errorf("flag: %v, %v", v, err)
	}
	if v, err := ValueFromNode(&Option{Name: "n", Type: TypeInt}, node.Int(7)); err != nil || v.Int != 7 {
		t.Errorf("int: %v, %v", v, err)
	}
	if v, err := ValueFromNode(&Option{Name: "f", Type: TypeFloat}, node.Int(2)); err != nil || v.Float != 2 {
		t.Errorf("float from int: %v, %v", v, err)
	}
	v, err := ValueFromNode(&Option{Name: "l", Type: TypeStringList},
		node.Array(node.String("a"), node.String("b")))
	if err != nil || len(v.List) != 2 {
		t.Errorf("list: %v, %v", v, err)
	}
}

func TestValueFromNode_TextFallback(t *testing.T) {
	o := &Option{Name: "n", Type: TypeInt, Min: 0, Max: 100, HasMin: true, HasMax: true}

	v, err := ValueFromNode(o, node.String("42"))
	if err != nil || v.Int != 42 {
		t.Errorf("string node on int option: %v, %v", v, err)
	}
	if _, err := ValueFromNode(o, node.String("200")); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("out-of-range error = %v, want ErrInvalidValue", err)
	}

	// Flag nodes print as yes/no for textual parsing.
	c := &Option{Name: "mode", Type: TypeChoice, Choices: []string{"yes", "no"}}
	cv, err := ValueFromNode(c, node.Flag(false))
	if err != nil || cv.Str != "no" {
		t.Errorf("flag node on choice option: %v, %v", cv, err)
	}
}

func TestValueFromNode_RangeChecked(t *testing.T) {
	o := &Option{Name: "n", Type: TypeInt, Min: 0, Max: 10, HasMin: true, HasMax: true}
	if _, err := ValueFromNode(o, node.Int(99)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("error = %v, want ErrInvalidValue", err)
	}
}

func TestValueFromNode_Unsupported(t *testing.T) {
	o := &Option{Name: "n", Type: TypeInt}
	m := node.Map()
	if _, err := ValueFromNode(o, m); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("map node error = %v, want ErrInvalidValue", err)
	}

	l := &Option{Name: "l", Type: TypeStringList}
	if _, err := ValueFromNode(l, node.Array(node.Int(1))); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("non-string list element error = %v, want ErrInvalidValue", err)
	}
}
