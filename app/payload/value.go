// Package payload models the untyped JSON documents HolestPay exchanges with the
// store: webhook bodies, accumulated order metadata and POS configuration.
package payload

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a single JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	obj  *Object
	arr  []Value
}

func Null() Value {
	return Value{}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func Number(n json.Number) Value {
	if n == "" {
		n = "0"
	}
	return Value{kind: KindNumber, num: n}
}

func Int(n int64) Value {
	return Number(json.Number(strconv.FormatInt(n, 10)))
}

func Float(f float64) Value {
	return Number(json.Number(strconv.FormatFloat(f, 'f', -1, 64)))
}

func String(s string) Value {
	return Value{kind: KindString, str: s}
}

func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsNumber() (json.Number, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Text renders scalars as plain strings. Containers and null render empty.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		if v.b {
			return "1"
		}
		return ""
	default:
		return ""
	}
}

// Float reads numbers and numeric strings.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		f, err := v.num.Float64()
		return f, err == nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f, err == nil
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Truthy follows the loose flag semantics HolestPay uses for switches like Enabled.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		f, err := v.num.Float64()
		return err == nil && f != 0
	case KindString:
		s := strings.TrimSpace(strings.ToLower(v.str))
		return s != "" && s != "0" && s != "false"
	case KindObject:
		return v.obj.Len() > 0
	case KindArray:
		return len(v.arr) > 0
	default:
		return false
	}
}

func (v Value) Clone() Value {
	switch v.kind {
	case KindObject:
		return ObjectValue(v.obj.Clone())
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Array(items...)
	default:
		return v
	}
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindObject:
		return v.obj.Equal(other.obj)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts the value to plain Go types. Numbers become float64.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		f, _ := v.num.Float64()
		return f
	case KindString:
		return v.str
	case KindObject:
		return v.obj.Map()
	case KindArray:
		items := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Interface()
		}
		return items
	default:
		return nil
	}
}

// FromInterface builds a Value from decoded Go data. Map keys are sorted so the
// result is deterministic.
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Number(json.Number(strconv.FormatUint(t, 10))), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, key := range keys {
			item, err := FromInterface(t[key])
			if err != nil {
				return Value{}, err
			}
			obj.Set(key, item)
		}
		return ObjectValue(obj), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, raw := range t {
			item, err := FromInterface(raw)
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return Array(items...), nil
	default:
		return Value{}, fmt.Errorf("payload: unsupported type %T", x)
	}
}
