package opt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidValue indicates that a textual value was rejected by the
// option's type.
var ErrInvalidValue = errors.New("invalid option value")

// TypeFlags carries per-type capability flags.
type TypeFlags uint8

const (
	// FlagHasChild marks types that nest a child descriptor table.
	FlagHasChild TypeFlags = 1 << iota

	// FlagAllowWildcard lets entries of this type match by prefix when
	// their name ends with "*".
	FlagAllowWildcard

	// FlagBoolLike marks types that accept the textual value "no", making
	// the "no-<name>" spelling applicable.
	FlagBoolLike

	// FlagNoParam marks types that accept an empty parameter.
	FlagNoParam

	// FlagNoStorage marks types that never store a value (alias, removed).
	FlagNoStorage
)

// Type is the value contract for one option kind. Implementations are
// stateless singletons; all per-option configuration (bounds, choices)
// comes from the Option passed in.
type Type interface {
	// Name is the human-readable type name used in option listings.
	Name() string

	// Flags returns the type's capability flags.
	Flags() TypeFlags

	// Parse converts a textual value. The name is the full option name, for
	// error messages only.
	Parse(o *Option, name, param string) (Value, error)

	// Copy deep-copies a value so the result shares no dynamic sub-data
	// with the source.
	Copy(v Value) Value

	// Print formats a value back to text. Print(Parse(x)) round-trips for
	// all accepted inputs.
	Print(v Value) string

	// Equal reports whether two values are equal under this type.
	Equal(a, b Value) bool
}

// Singleton type implementations. Comparing an Option's Type against these
// identifies its kind.
var (
	TypeFlag       Type = flagType{}
	TypeInt        Type = intType{}
	TypeFloat      Type = floatType{}
	TypeString     Type = stringType{}
	TypeStringList Type = stringListType{}
	TypeDuration   Type = durationType{}
	TypeChoice     Type = choiceType{}
	TypeAspect     Type = aspectType{}
	TypeAlias      Type = aliasType{}
	TypeRemoved    Type = removedType{}
	TypeSubConfig  Type = subConfigType{}
)

type flagType struct{}

func (flagType) Name() string { return "Flag" }
func (flagType) Flags() TypeFlags { return FlagBoolLike | FlagNoParam }

func (flagType) Parse(o *Option, name, param string) (Value, error) {
	switch param {
	case "", "yes", "true", "on":
		return Value{Flag: true}, nil
	case "no", "false", "off":
		return Value{Flag: false}, nil
	}
	return Value{}, fmt.Errorf("%w: option %s: %q is not a flag value (yes/no)",
		ErrInvalidValue, name, param)
}

func (flagType) Copy(v Value) Value { return copyValue(v) }

func (flagType) Print(v Value) string {
	if v.Flag {
		return "yes"
	}
	return "no"
}

func (flagType) Equal(a, b Value) bool { return valueEqual(a, b) }

type intType struct{}

func (intType) Name() string { return "Integer" }
func (intType) Flags() TypeFlags { return 0 }

func (intType) Parse(o *Option, name, param string) (Value, error) {
	i, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: option %s: %q is not an integer",
			ErrInvalidValue, name, param)
	}
	if err := checkRange(o, name, float64(i)); err != nil {
		return Value{}, err
	}
	return Value{Int: i}, nil
}

func (intType) Copy(v Value) Value { return copyValue(v) }
func (intType) Print(v Value) string { return strconv.FormatInt(v.Int, 10) }
func (intType) Equal(a, b Value) bool { return valueEqual(a, b) }

type floatType struct{}

func (floatType) Name() string { return "Float" }
func (floatType) Flags() TypeFlags { return 0 }

func (floatType) Parse(o *Option, name, param string) (Value, error) {
	f, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: option %s: %q is not a number",
			ErrInvalidValue, name, param)
	}
	if err := checkRange(o, name, f); err != nil {
		return Value{}, err
	}
	return Value{Float: f}, nil
}

func (floatType) Copy(v Value) Value { return copyValue(v) }

func (floatType) Print(v Value) string {
	return strconv.FormatFloat(v.Float, 'g', -1, 64)
}

func (floatType) Equal(a, b Value) bool { return valueEqual(a, b) }

type stringType struct{}

func (stringType) Name() string { return "String" }
func (stringType) Flags() TypeFlags { return 0 }

func (stringType) Parse(o *Option, name, param string) (Value, error) {
	return Value{Str: param}, nil
}

func (stringType) Copy(v Value) Value { return copyValue(v) }
func (stringType) Print(v Value) string { return v.Str }
func (stringType) Equal(a, b Value) bool { return valueEqual(a, b) }

type stringListType struct{}

func (stringListType) Name() string { return "String list" }
func (stringListType) Flags() TypeFlags { return FlagAllowWildcard }

func (stringListType) Parse(o *Option, name, param string) (Value, error) {
	if param == "" {
		return Value{}, nil
	}
	parts := strings.Split(param, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			list = append(list, p)
		}
	}
	return Value{List: list}, nil
}

func (stringListType) Copy(v Value) Value { return copyValue(v) }

func (stringListType) Print(v Value) string {
	return strings.Join(v.List, ",")
}

func (stringListType) Equal(a, b Value) bool { return valueEqual(a, b) }

type durationType struct{}

func (durationType) Name() string { return "Duration" }
func (durationType) Flags() TypeFlags { return 0 }

// Parse accepts Go duration strings ("500ms") or bare numbers interpreted
// as seconds. The value is stored as nanoseconds.
func (durationType) Parse(o *Option, name, param string) (Value, error) {
	if d, err := time.ParseDuration(param); err == nil {
		return Value{Int: int64(d)}, nil
	}
	if f, err := strconv.ParseFloat(param, 64); err == nil {
		if err := checkRange(o, name, f); err != nil {
			return Value{}, err
		}
		return Value{Int: int64(f * float64(time.Second))}, nil
	}
	return Value{}, fmt.Errorf("%w: option %s: %q is not a duration",
		ErrInvalidValue, name, param)
}

func (durationType) Copy(v Value) Value { return copyValue(v) }

func (durationType) Print(v Value) string {
	return time.Duration(v.Int).String()
}

func (durationType) Equal(a, b Value) bool { return valueEqual(a, b) }

type choiceType struct{}

func (choiceType) Name() string { return "Choice" }
func (choiceType) Flags() TypeFlags { return FlagBoolLike }

// Parse accepts one of the option's declared choices, or, when the option
// declares numeric bounds, an integer within them. Not every choice option
// includes "no"; negating one that doesn't simply fails to parse.
func (choiceType) Parse(o *Option, name, param string) (Value, error) {
	for _, c := range o.Choices {
		if c == param {
			return Value{Str: param}, nil
		}
	}
	if o.HasMin || o.HasMax {
		if i, err := strconv.ParseInt(param, 10, 64); err == nil {
			if err := checkRange(o, name, float64(i)); err != nil {
				return Value{}, err
			}
			return Value{Str: param, Int: i}, nil
		}
	}
	return Value{}, fmt.Errorf("%w: option %s: %q is not one of %v",
		ErrInvalidValue, name, param, o.Choices)
}

func (choiceType) Copy(v Value) Value { return copyValue(v) }
func (choiceType) Print(v Value) string { return v.Str }
func (choiceType) Equal(a, b Value) bool { return valueEqual(a, b) }

type aspectType struct{}

func (aspectType) Name() string { return "Aspect" }
func (aspectType) Flags() TypeFlags { return FlagBoolLike }

// Parse accepts "w:h" ratios, plain floats, or "no" (stored as -1).
func (aspectType) Parse(o *Option, name, param string) (Value, error) {
	if param == "no" {
		return Value{Float: -1}, nil
	}
	if w, h, ok := strings.Cut(param, ":"); ok {
		wf, err1 := strconv.ParseFloat(w, 64)
		hf, err2 := strconv.ParseFloat(h, 64)
		if err1 == nil && err2 == nil && hf != 0 {
			return Value{Float: wf / hf}, nil
		}
		return Value{}, fmt.Errorf("%w: option %s: %q is not an aspect ratio",
			ErrInvalidValue, name, param)
	}
	f, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: option %s: %q is not an aspect ratio",
			ErrInvalidValue, name, param)
	}
	return Value{Float: f}, nil
}

func (aspectType) Copy(v Value) Value { return copyValue(v) }

func (aspectType) Print(v Value) string {
	if v.Float == -1 {
		return "no"
	}
	return strconv.FormatFloat(v.Float, 'g', -1, 64)
}

func (aspectType) Equal(a, b Value) bool { return valueEqual(a, b) }

type aliasType struct{}

func (aliasType) Name() string { return "Alias" }
func (aliasType) Flags() TypeFlags { return FlagNoStorage }

// Parse is never reached; resolution redirects before parsing.
func (aliasType) Parse(o *Option, name, param string) (Value, error) {
	return Value{}, fmt.Errorf("%w: option %s is an alias", ErrInvalidValue, name)
}

func (aliasType) Copy(v Value) Value { return copyValue(v) }
func (aliasType) Print(v Value) string { return "" }
func (aliasType) Equal(a, b Value) bool { return valueEqual(a, b) }

type removedType struct{}

func (removedType) Name() string { return "Removed" }
func (removedType) Flags() TypeFlags { return FlagNoStorage }

// Parse is never reached; resolution fails before parsing.
func (removedType) Parse(o *Option, name, param string) (Value, error) {
	return Value{}, fmt.Errorf("%w: option %s was removed", ErrInvalidValue, name)
}

func (removedType) Copy(v Value) Value { return copyValue(v) }
func (removedType) Print(v Value) string { return "" }
func (removedType) Equal(a, b Value) bool { return valueEqual(a, b) }

type subConfigType struct{}

func (subConfigType) Name() string { return "Subconfig" }
func (subConfigType) Flags() TypeFlags { return FlagHasChild }

// Parse is never reached; the access layer splits flattened sub-option
// strings itself.
func (subConfigType) Parse(o *Option, name, param string) (Value, error) {
	return Value{}, fmt.Errorf("%w: option %s takes sub-options", ErrInvalidValue, name)
}

func (subConfigType) Copy(v Value) Value { return copyValue(v) }
func (subConfigType) Print(v Value) string { return "" }
func (subConfigType) Equal(a, b Value) bool { return valueEqual(a, b) }

// checkRange enforces the option's declared numeric bounds.
func checkRange(o *Option, name string, f float64) error {
	if o.HasMin && f < o.Min {
		return fmt.Errorf("%w: option %s: %v is less than minimum %v",
			ErrInvalidValue, name, f, o.Min)
	}
	if o.HasMax && f > o.Max {
		return fmt.Errorf("%w: option %s: %v is greater than maximum %v",
			ErrInvalidValue, name, f, o.Max)
	}
	return nil
}
