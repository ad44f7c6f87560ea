package payload

// Object is a JSON object that keeps key insertion order. A nil *Object reads
// as empty.
type Object struct {
	keys   []string
	values map[string]Value
}

func NewObject() *Object {
	return &Object{values: map[string]Value{}}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.values[key]
	return v, ok
}

func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores value under key. Existing keys keep their position.
func (o *Object) Set(key string, value Value) {
	if o.values == nil {
		o.values = map[string]Value{}
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *Object) SetString(key, value string) {
	o.Set(key, String(value))
}

func (o *Object) Delete(key string) {
	if o == nil {
		return
	}
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Text returns the scalar under key as a string, or "" when absent.
func (o *Object) Text(key string) string {
	v, _ := o.Get(key)
	return v.Text()
}

func (o *Object) Object(key string) (*Object, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	return v.AsObject()
}

func (o *Object) Array(key string) ([]Value, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	return v.AsArray()
}

func (o *Object) Clone() *Object {
	out := NewObject()
	if o == nil {
		return out
	}
	out.keys = make([]string, len(o.keys))
	copy(out.keys, o.keys)
	for key, value := range o.values {
		out.values[key] = value.Clone()
	}
	return out
}

func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for _, key := range o.Keys() {
		a, _ := o.Get(key)
		b, ok := other.Get(key)
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

func (o *Object) Map() map[string]interface{} {
	out := make(map[string]interface{}, o.Len())
	for _, key := range o.Keys() {
		v, _ := o.Get(key)
		out[key] = v.Interface()
	}
	return out
}
