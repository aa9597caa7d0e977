package opt

// Value is the storage slot for one option of any type. It is a small union:
// each Type uses the field(s) matching its kind and leaves the rest zero.
// Copying a Value with plain assignment aliases the List field; use
// Type.Copy for deep-copy semantics.
type Value struct {
	Flag  bool
	Int   int64
	Float float64
	Str   string
	List  []string
}

// copyValue deep-copies v so mutating or releasing one copy never affects
// the other.
func copyValue(v Value) Value {
	out := v
	if v.List != nil {
		out.List = make([]string, len(v.List))
		copy(out.List, v.List)
	}
	return out
}

// valueEqual reports whether two values are equal field by field.
func valueEqual(a, b Value) bool {
	if a.Flag != b.Flag || a.Int != b.Int || a.Float != b.Float || a.Str != b.Str {
		return false
	}
	if len(a.List) != len(b.List) {
		return false
	}
	for i := range a.List {
		if a.List[i] != b.List[i] {
			return false
		}
	}
	return true
}
