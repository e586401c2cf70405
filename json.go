package ks

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FromJSON converts a JSON document into a Value.
// This is the upstream conversion stage for loosely-typed input:
// numbers without a fraction or exponent become integers,
// all others become floats,
// so "1" and "1.0" convert to distinct Values
// (and distinct canonical encodings).
// An integer literal too wide for an int64 is an error,
// never a silent rounding to float.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	err := dec.Decode(&raw)
	if err != nil {
		return Value{}, errors.Wrap(err, "decoding JSON")
	}
	if dec.More() {
		return Value{}, errors.New("trailing data after JSON document")
	}
	return fromJSON(raw)
}

func fromJSON(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil

	case bool:
		return Boolean(x), nil

	case json.Number:
		if !strings.ContainsAny(string(x), ".eE") {
			i, err := strconv.ParseInt(string(x), 10, 64)
			if err != nil {
				return Value{}, errors.Wrapf(err, "parsing integer %s", x)
			}
			return Integer(i), nil
		}
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parsing number %s", x)
		}
		return Float(f), nil

	case string:
		return Text(x), nil

	case []interface{}:
		elems := make([]Value, 0, len(x))
		for i, e := range x {
			v, err := fromJSON(e)
			if err != nil {
				return Value{}, errors.Wrapf(err, "converting element %d", i)
			}
			elems = append(elems, v)
		}
		return Seq(elems...), nil

	case map[string]interface{}:
		fields := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := fromJSON(e)
			if err != nil {
				return Value{}, errors.Wrapf(err, "converting field %q", k)
			}
			fields[k] = v
		}
		return Map(fields), nil
	}

	return Value{}, errors.Errorf("unsupported JSON value %v", raw)
}

// ToJSON renders a Value as indented JSON, for display and tooling.
// It is not the canonical encoding:
// JSON cannot distinguish the integer 1 from the float 1.0,
// so a Value does not round-trip through ToJSON in general.
func ToJSON(v Value) ([]byte, error) {
	raw, err := toJSON(v)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(raw, "", "  ")
}

func toJSON(v Value) (interface{}, error) {
	switch v.Kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.Bool, nil
	case KindInt:
		return v.Int, nil
	case KindFloat:
		return v.Float, nil
	case KindText:
		return v.Text, nil

	case KindSeq:
		elems := make([]interface{}, 0, len(v.Elems))
		for i, e := range v.Elems {
			raw, err := toJSON(e)
			if err != nil {
				return nil, errors.Wrapf(err, "rendering element %d", i)
			}
			elems = append(elems, raw)
		}
		return elems, nil

	case KindMap:
		fields := make(map[string]interface{}, len(v.Fields))
		for k, e := range v.Fields {
			raw, err := toJSON(e)
			if err != nil {
				return nil, errors.Wrapf(err, "rendering field %q", k)
			}
			fields[k] = raw
		}
		return fields, nil
	}

	return nil, errors.Errorf("unknown kind %d", v.Kind)
}
