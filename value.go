package ks

// Kind enumerates the shapes a Value can take.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindSeq
	KindMap
)

// Value is the typed intermediate form of a record:
// a tagged union of null, boolean, integer, float, text,
// sequence, and text-keyed mapping.
// Converting loosely-typed input (such as parsed JSON) to Values
// happens before canonical encoding,
// which frees the codec from source-format ambiguity:
// whitespace, key order, and numeric literal spelling are already gone.
//
// Kind selects which of the other fields is meaningful.
// The zero Value is null.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	Text   string
	Elems  []Value          // KindSeq
	Fields map[string]Value // KindMap
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Boolean returns a boolean Value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Integer returns an integer Value.
func Integer(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Text returns a text Value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Seq returns a sequence Value with the given elements, in order.
// Sequence order is semantically meaningful and is preserved.
func Seq(elems ...Value) Value { return Value{Kind: KindSeq, Elems: elems} }

// Map returns a mapping Value with the given fields.
// Key order is not semantically meaningful;
// the canonical codec imposes its own total order when encoding.
func Map(fields map[string]Value) Value { return Value{Kind: KindMap, Fields: fields} }

// Get returns the field of a mapping Value by key.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMap {
		return Value{}, false
	}
	got, ok := v.Fields[key]
	return got, ok
}

// Equal reports semantic equality:
// same kind, same scalar value, same sequence elements in the same order,
// same mapping fields in any order.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindText:
		return v.Text == other.Text
	case KindSeq:
		if len(v.Elems) != len(other.Elems) {
			return false
		}
		for i, e := range v.Elems {
			if !e.Equal(other.Elems[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Fields) != len(other.Fields) {
			return false
		}
		for k, e := range v.Fields {
			o, ok := other.Fields[k]
			if !ok || !e.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}
