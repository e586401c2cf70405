// Package codec implements the canonical encoding of Values.
//
// The encoding is deterministic DAG-CBOR:
// RFC 8949 CBOR restricted to definite lengths and no tags,
// with map keys sorted in RFC 7049 §3.9 canonical order
// (shorter keys first, ties broken bytewise),
// integers in their smallest width,
// and every float as a big-endian IEEE-754 binary64
// whether or not it would fit in fewer bits.
// Non-finite floats are rejected.
// Under these rules a Value has exactly one encoding,
// on every machine, in every run.
package codec

import (
	"bytes"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/knos/ks"
)

// encMode is the CBOR encoder pinned to the canonical profile above.
// Same logical value always produces identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder for canonical bytes.
// It enforces what it can structurally
// (no duplicate keys, no indefinite lengths, no tags,
// integers within int64);
// Decode rejects the rest by re-encoding.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		ShortestFloat: cbor.ShortestFloatNone,
		NaNConvert:    cbor.NaNConvertReject,
		InfConvert:    cbor.InfConvertReject,
		IndefLength:   cbor.IndefLengthForbidden,
		TagsMd:        cbor.TagsForbidden,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		IndefLength:    cbor.IndefLengthForbidden,
		TagsMd:         cbor.TagsForbidden,
		IntDec:         cbor.IntDecConvertSignedOrFail,
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode produces the canonical byte encoding of v.
// It is pure and deterministic:
// two semantically equal Values encode to identical bytes.
// It returns ks.ErrEncoding for values the canonical profile
// cannot represent, such as NaN or infinite floats.
func Encode(v ks.Value) (ks.Blob, error) {
	raw, err := toWire(v)
	if err != nil {
		return nil, err
	}
	b, err := encMode.Marshal(raw)
	if err != nil {
		return nil, errors.Wrapf(ks.ErrEncoding, "%v", err)
	}
	return b, nil
}

// Decode is the exact inverse of Encode.
// It returns ks.ErrDecode for any bytes Encode could not have produced,
// including well-formed CBOR in a non-canonical form.
func Decode(b ks.Blob) (ks.Value, error) {
	var raw interface{}
	err := decMode.Unmarshal(b, &raw)
	if err != nil {
		return ks.Value{}, errors.Wrapf(ks.ErrDecode, "%v", err)
	}
	v, err := fromWire(raw)
	if err != nil {
		return ks.Value{}, err
	}

	// Structural checks above admit some non-canonical spellings
	// (e.g. a float32-width float, or unsorted map keys).
	// Re-encoding and comparing closes the gap.
	reenc, err := Encode(v)
	if err != nil {
		return ks.Value{}, errors.Wrapf(ks.ErrDecode, "re-encoding: %v", err)
	}
	if !bytes.Equal(reenc, b) {
		return ks.Value{}, errors.Wrap(ks.ErrDecode, "non-canonical form")
	}
	return v, nil
}

func toWire(v ks.Value) (interface{}, error) {
	switch v.Kind {
	case ks.KindNull:
		return nil, nil
	case ks.KindBool:
		return v.Bool, nil
	case ks.KindInt:
		return v.Int, nil
	case ks.KindFloat:
		if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
			return nil, errors.Wrap(ks.ErrEncoding, "non-finite float")
		}
		return v.Float, nil
	case ks.KindText:
		return v.Text, nil

	case ks.KindSeq:
		elems := make([]interface{}, 0, len(v.Elems))
		for _, e := range v.Elems {
			raw, err := toWire(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, raw)
		}
		return elems, nil

	case ks.KindMap:
		fields := make(map[string]interface{}, len(v.Fields))
		for k, e := range v.Fields {
			raw, err := toWire(e)
			if err != nil {
				return nil, err
			}
			fields[k] = raw
		}
		return fields, nil
	}

	return nil, errors.Wrapf(ks.ErrEncoding, "unknown kind %d", v.Kind)
}

func fromWire(raw interface{}) (ks.Value, error) {
	switch x := raw.(type) {
	case nil:
		return ks.Null(), nil
	case bool:
		return ks.Boolean(x), nil
	case int64:
		return ks.Integer(x), nil
	case float64:
		return ks.Float(x), nil
	case string:
		return ks.Text(x), nil

	case []interface{}:
		elems := make([]ks.Value, 0, len(x))
		for _, e := range x {
			v, err := fromWire(e)
			if err != nil {
				return ks.Value{}, err
			}
			elems = append(elems, v)
		}
		return ks.Seq(elems...), nil

	case map[string]interface{}:
		fields := make(map[string]ks.Value, len(x))
		for k, e := range x {
			v, err := fromWire(e)
			if err != nil {
				return ks.Value{}, err
			}
			fields[k] = v
		}
		return ks.Map(fields), nil
	}

	// Byte strings and anything else CBOR can carry
	// have no Value kind and cannot appear in canonical bytes.
	return ks.Value{}, errors.Wrapf(ks.ErrDecode, "unsupported item of type %T", raw)
}
