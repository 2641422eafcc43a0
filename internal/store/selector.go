package store

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Predicate reports whether a record matches.
type Predicate[T any] func(T) bool

// Selector picks the records Remove acts on: either an exact identity match or
// a predicate. A Where selector with a nil predicate matches nothing.
type Selector[T any] struct {
	byID bool
	id   string
	pred Predicate[T]
}

// ID selects records whose identity equals id.
func ID[T any](id string) Selector[T] {
	return Selector[T]{byID: true, id: id}
}

// Where selects records accepted by pred.
func Where[T any](pred Predicate[T]) Selector[T] {
	return Selector[T]{pred: pred}
}

// Identity returns the identity an ID selector matches.
func (s Selector[T]) Identity() (string, bool) {
	return s.id, s.byID
}

// Predicate returns the predicate of a Where selector, or nil.
func (s Selector[T]) Predicate() Predicate[T] {
	return s.pred
}

func (s Selector[T]) matches(item T, identity func(T) string) bool {
	if s.byID {
		return s.id != "" && identity(item) == s.id
	}
	return s.pred != nil && s.pred(item)
}

// CompileFilter compiles a boolean expr-lang expression into a Predicate. The
// record is the expression environment, so struct fields are addressed by
// their Go names (or `expr` tags) and map records by their keys:
//
//	completed == false && priority > 2
//	title contains "milk"
//
// Records the program fails on are treated as non-matching.
func CompileFilter[T any](expression string) (Predicate[T], error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("compile filter: expression is empty")
	}

	options := []expr.Option{expr.AsBool()}
	var zero T
	if t := reflect.TypeOf(&zero).Elem(); derefType(t).Kind() == reflect.Struct {
		options = append(options, expr.Env(reflect.New(derefType(t)).Elem().Interface()))
	} else {
		options = append(options, expr.AllowUndefinedVariables())
	}

	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}
	return func(item T) bool {
		return runFilter(program, item)
	}, nil
}

func runFilter(program *vm.Program, item any) bool {
	env := indirect(reflect.ValueOf(item))
	if !env.IsValid() {
		return false
	}
	out, err := expr.Run(program, env.Interface())
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
