package store

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// DefaultKey is the identity field used when none is configured.
const DefaultKey = "id"

// Identity reads and writes the identity value of a record. An empty string
// means the record has no identity.
type Identity[T any] struct {
	Get func(T) string
	Set func(*T, string)
}

// FieldIdentity resolves identities through the named field. Structs (and
// pointers to structs) match the field by JSON tag name first and then by Go
// field name, case-insensitively. Maps with string keys use the key directly.
//
// Set never mutates shared memory: pointer records are shallow-copied and map
// records are cloned before the identity is written. Only string-kinded
// struct fields can be set.
func FieldIdentity[T any](field string) Identity[T] {
	field = strings.TrimSpace(field)
	if field == "" {
		field = DefaultKey
	}
	r := &fieldResolver{field: field}
	return Identity[T]{
		Get: func(item T) string {
			return formatID(r.lookup(reflect.ValueOf(&item).Elem()))
		},
		Set: func(item *T, id string) {
			if item == nil {
				return
			}
			r.assign(reflect.ValueOf(item).Elem(), id)
		},
	}
}

type fieldResolver struct {
	field string
	cache sync.Map // reflect.Type -> int (struct field index, -1 when missing)
}

// lookup returns the field value for v, or an invalid Value when absent.
func (r *fieldResolver) lookup(v reflect.Value) reflect.Value {
	v = indirect(v)
	if !v.IsValid() {
		return reflect.Value{}
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String || v.IsNil() {
			return reflect.Value{}
		}
		return v.MapIndex(reflect.ValueOf(r.field).Convert(v.Type().Key()))
	case reflect.Struct:
		idx := r.index(v.Type())
		if idx < 0 {
			return reflect.Value{}
		}
		return v.Field(idx)
	default:
		return reflect.Value{}
	}
}

// assign writes id into the record held by slot (an addressable value of T).
func (r *fieldResolver) assign(slot reflect.Value, id string) {
	switch slot.Kind() {
	case reflect.Interface:
		if slot.IsNil() {
			return
		}
		inner := reflect.New(slot.Elem().Type()).Elem()
		inner.Set(slot.Elem())
		r.assign(inner, id)
		slot.Set(inner)
	case reflect.Pointer:
		if slot.IsNil() {
			return
		}
		clone := reflect.New(slot.Type().Elem())
		clone.Elem().Set(slot.Elem())
		r.assign(clone.Elem(), id)
		slot.Set(clone)
	case reflect.Map:
		if slot.Type().Key().Kind() != reflect.String {
			return
		}
		clone := reflect.MakeMapWithSize(slot.Type(), slot.Len()+1)
		if !slot.IsNil() {
			iter := slot.MapRange()
			for iter.Next() {
				clone.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		value := reflect.ValueOf(id)
		if !value.Type().AssignableTo(slot.Type().Elem()) {
			if !value.Type().ConvertibleTo(slot.Type().Elem()) {
				return
			}
			value = value.Convert(slot.Type().Elem())
		}
		clone.SetMapIndex(reflect.ValueOf(r.field).Convert(slot.Type().Key()), value)
		slot.Set(clone)
	case reflect.Struct:
		idx := r.index(slot.Type())
		if idx < 0 {
			return
		}
		f := slot.Field(idx)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(id)
		}
	}
}

func (r *fieldResolver) index(t reflect.Type) int {
	if cached, ok := r.cache.Load(t); ok {
		return cached.(int)
	}
	idx := -1
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name == r.field {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.IsExported() && strings.EqualFold(sf.Name, r.field) {
				idx = i
				break
			}
		}
	}
	r.cache.Store(t, idx)
	return idx
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func formatID(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() || v.IsZero() {
		return ""
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	default:
		return fmt.Sprint(v.Interface())
	}
}
