package assert

import "reflect"

// NotNil panics when value is nil, including a typed nil pointer, map,
// slice, func or channel stored in an interface. Constructors call it on
// their collaborators.
func NotNil(value any) {
	if value == nil {
		panic("assert: expected a non-nil value")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic("assert: expected a non-nil " + v.Type().String())
		}
	}
}
