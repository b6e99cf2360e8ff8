package record

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"runtime"
	"strings"

	"record-mapper/utils"
)

var (
	ErrNotATransformer          = errors.New("provided function is not a recognizable transformer")
	ErrTransformerIsNotFunction = errors.New("provided transformer is not a function")
)

var (
	stringType = reflect.TypeFor[string]()
	errorType  = reflect.TypeFor[error]()
)

// Transformer is a user function building a field value from raw strings.
type Transformer struct {
	Name         string
	PackageAlias string
	Arity        int // -1 for variadic ...string
	Out          reflect.Type
	HasBool      bool
	HasErr       bool

	fn reflect.Value
}

// ParseTransformer inspects fn and returns a Transformer if it is a valid transformer function.
//
// Supports signatures:
//   - func(a, b string) (dst Type)
//   - func(a, b string) (dst Type, bool)
//   - func(a, b string) (dst Type, error)
//   - func(a, b string) (dst Type, bool, error)
//   - func(raw ...string) with any of the results above
//
// A false bool result means "no value".
func ParseTransformer(fn any) (*Transformer, error) {
	if fn == nil {
		return nil, ErrTransformerIsNotFunction
	}

	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, ErrTransformerIsNotFunction
	}

	if fnType.NumOut() == 0 {
		return nil, ErrNotATransformer
	}

	arity := fnType.NumIn()
	if fnType.IsVariadic() {
		if arity != 1 || fnType.In(0).Elem() != stringType {
			return nil, ErrNotATransformer
		}

		arity = -1
	} else {
		for i := range arity {
			if fnType.In(i) != stringType {
				return nil, ErrNotATransformer
			}
		}
	}

	// "module/pkg.Func" or "github.com/org/pkg.Func"
	_, base := path.Split(runtime.FuncForPC(fnVal.Pointer()).Name())
	alias, name := utils.Unpack2(strings.SplitN(base, ".", 2))

	t := &Transformer{
		Name:         name,
		PackageAlias: alias,
		Arity:        arity,
		Out:          fnType.Out(0),
		fn:           fnVal,
	}

	switch fnType.NumOut() {
	default:
		return nil, ErrNotATransformer

	case 1:
		return t, nil

	case 2:
		last := fnType.Out(1)

		switch {
		default:
			return nil, ErrNotATransformer
		case last.Kind() == reflect.Bool:
			t.HasBool = true
		case last == errorType:
			t.HasErr = true
		}

		return t, nil

	case 3:
		if fnType.Out(1).Kind() != reflect.Bool || fnType.Out(2) != errorType {
			return nil, ErrNotATransformer
		}

		t.HasBool = true
		t.HasErr = true

		return t, nil
	}
}

// Accepts reports whether the transformer can be called with n raw values.
func (t *Transformer) Accepts(n int) bool {
	return t.Arity < 0 || t.Arity == n
}

// Call applies the transformer. ok is false when the transformer reports no
// value. A panic inside the transformer is returned as an error.
func (t *Transformer) Call(raw []string) (out reflect.Value, ok bool, err error) {
	if !t.Accepts(len(raw)) {
		return reflect.Value{}, false, fmt.Errorf("transformer %s expects %d values, got %d", t.Name, t.Arity, len(raw))
	}

	defer func() {
		if r := recover(); r != nil {
			out, ok, err = reflect.Value{}, false, fmt.Errorf("transformer %s panicked: %v", t.Name, r)
		}
	}()

	args := make([]reflect.Value, len(raw))
	for i, s := range raw {
		args[i] = reflect.ValueOf(s)
	}

	results := t.fn.Call(args)
	out, ok = results[0], true

	if t.HasBool {
		ok = results[1].Bool()
	}

	if t.HasErr {
		if e := results[len(results)-1]; !e.IsNil() {
			return reflect.Value{}, false, e.Interface().(error)
		}
	}

	if ok && isNilValue(out) {
		ok = false
	}

	return out, ok, nil
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
