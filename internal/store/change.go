package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	jsonpatch "github.com/evanphx/json-patch"
)

// ErrPatch is returned when a Patch change cannot be applied to a record.
var ErrPatch = errors.New("store: patch failed")

type changeKind int

const (
	changeMerge changeKind = iota
	changePatch
	changeTransform
)

// Change describes how Update derives the next record from the current one.
// Build it with Merge, Patch, or Transform.
type Change[T any] struct {
	kind    changeKind
	partial T
	fields  map[string]any
	fn      func(current *T) T
}

// Merge overlays the non-zero top-level fields of partial onto the current
// record. When there is no current record, partial becomes the record.
func Merge[T any](partial T) Change[T] {
	return Change[T]{kind: changeMerge, partial: partial}
}

// Patch applies fields as a JSON merge patch (RFC 7386) to the JSON form of
// the current record. Unlike Merge it can set zero values, and a null field
// value deletes the field.
func Patch[T any](fields map[string]any) Change[T] {
	return Change[T]{kind: changePatch, fields: fields}
}

// Transform computes the full next record. current is nil when no record
// matches.
func Transform[T any](fn func(current *T) T) Change[T] {
	return Change[T]{kind: changeTransform, fn: fn}
}

// Partial returns the record carried by a Merge change.
func (c Change[T]) Partial() (T, bool) {
	if c.kind != changeMerge {
		var zero T
		return zero, false
	}
	return c.partial, true
}

func (c Change[T]) apply(current *T) (T, error) {
	switch c.kind {
	case changeTransform:
		if c.fn == nil {
			if current != nil {
				return *current, nil
			}
			var zero T
			return zero, nil
		}
		return c.fn(current), nil
	case changePatch:
		return applyPatch(current, c.fields)
	default:
		if current == nil {
			return c.partial, nil
		}
		return shallowMerge(*current, c.partial), nil
	}
}

func applyPatch[T any](current *T, fields map[string]any) (T, error) {
	var zero T
	doc := []byte("{}")
	if current != nil {
		encoded, err := json.Marshal(*current)
		if err != nil {
			return zero, fmt.Errorf("%w: encode record: %v", ErrPatch, err)
		}
		doc = encoded
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return zero, fmt.Errorf("%w: encode patch: %v", ErrPatch, err)
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrPatch, err)
	}
	var next T
	if err := json.Unmarshal(merged, &next); err != nil {
		return zero, fmt.Errorf("%w: decode record: %v", ErrPatch, err)
	}
	return next, nil
}

// shallowMerge returns base with every non-zero top-level field of overlay
// copied over it. Nested values are replaced, not merged.
func shallowMerge[T any](base, overlay T) T {
	merged := mergeTop(reflect.ValueOf(&base).Elem(), reflect.ValueOf(&overlay).Elem())
	if !merged.IsValid() {
		return overlay
	}
	return merged.Interface().(T)
}

func mergeTop(base, overlay reflect.Value) reflect.Value {
	switch overlay.Kind() {
	case reflect.Interface:
		if overlay.IsNil() {
			return base
		}
		if base.IsNil() || base.Elem().Type() != overlay.Elem().Type() {
			return overlay
		}
		merged := mergeTop(base.Elem(), overlay.Elem())
		out := reflect.New(overlay.Type()).Elem()
		out.Set(merged)
		return out
	case reflect.Pointer:
		if overlay.IsNil() {
			return base
		}
		if base.IsNil() {
			return overlay
		}
		out := reflect.New(overlay.Type().Elem())
		out.Elem().Set(mergeTop(base.Elem(), overlay.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(base.Type()).Elem()
		out.Set(base)
		for i := 0; i < overlay.NumField(); i++ {
			f := out.Field(i)
			if !f.CanSet() {
				continue
			}
			if v := overlay.Field(i); !v.IsZero() {
				f.Set(v)
			}
		}
		return out
	case reflect.Map:
		if overlay.IsNil() {
			return base
		}
		out := reflect.MakeMapWithSize(overlay.Type(), base.Len()+overlay.Len())
		if !base.IsNil() {
			iter := base.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		iter := overlay.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out
	default:
		if overlay.IsZero() {
			return base
		}
		return overlay
	}
}
