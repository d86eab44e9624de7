package reactive

import "reflect"

// Identical reports whether a and b should be treated as the same value for
// recomputation purposes.
//
// Maps, slices, pointers, channels and funcs compare by reference. Comparable
// values compare with ==. Anything else (structs holding slices, arrays of
// maps) falls back to reflect.DeepEqual.
func Identical(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if va.Type().Comparable() {
		// Interface fields may still hold uncomparable dynamic values.
		defer func() {
			if recover() != nil {
				same = reflect.DeepEqual(a, b)
			}
		}()
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
