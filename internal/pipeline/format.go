package pipeline

import (
	"math"
	"reflect"
)

// maxPrecision caps requested rounding at the limit of float64 decimal
// digits.
const maxPrecision = 15

// formatResult rounds every float64 in the result tree to the requested
// precision and normalizes infinities to NaN, the in-memory absent
// marker. Result's JSON encoding turns those into null.
func formatResult(result interface{}, precision int) {
	if precision > maxPrecision {
		precision = maxPrecision
	}
	scale := math.Pow(10, float64(precision))
	walkFloats(reflect.ValueOf(result), scale)
}

func walkFloats(v reflect.Value, scale float64) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			walkFloats(v.Elem(), scale)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			walkFloats(v.Field(i), scale)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walkFloats(v.Index(i), scale)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			value := iter.Value()
			if value.Kind() == reflect.Float64 && value.CanInterface() {
				v.SetMapIndex(iter.Key(), reflect.ValueOf(cleanFloat(value.Float(), scale)))
			}
		}
	case reflect.Float64:
		if v.CanSet() {
			v.SetFloat(cleanFloat(v.Float(), scale))
		}
	}
}

func cleanFloat(f, scale float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return math.NaN()
	}
	return math.Round(f*scale) / scale
}
