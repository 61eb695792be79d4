package assign

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sanitizable is the contract between the parameter layer and model
// binding: a filtered parameter set that knows whether it passed a permit
// filter. The params.Params tree satisfies it.
type Sanitizable interface {
	Permitted() bool
	ToMap() map[string]any
}

// Struct assigns the source's entries onto the struct dst points to. An
// unpermitted source is rejected with a ForbiddenAttributesError before
// dst is touched; this is the guard that makes unfiltered request data
// unable to reach a model.
//
// It supports struct tags for custom field names:
//   - `params:"name"` - binds to the parameter "name"
//   - `params:"-"` - skips the field
//   - no tag - binds to the lowercased field name
//
// Supported conversions:
//   - Basic types: string, bool, all int/uint/float kinds with overflow checks
//   - time.Time (RFC 3339 or date-only strings), uuid.UUID, decimal.Decimal
//   - Slices of the above from []any values
//   - Pointers for optional fields
//   - Nested structs from nested maps or parameter trees
//
// Missing keys and nil values leave the field at its current value.
//
// Example:
//
//	type UserInput struct {
//		Name     string          `params:"name"`
//		Email    string          `params:"email"`
//		Age      int             `params:"age"`
//		Balance  decimal.Decimal `params:"balance"`
//		Internal string          `params:"-"` // Never bound
//	}
//
//	filtered, err := tree.Permit("name", "email", "age", "balance")
//	if err != nil {
//		return err
//	}
//	var input UserInput
//	if err := assign.Struct(&input, filtered); err != nil {
//		return err
//	}
func Struct(dst any, src Sanitizable) error {
	if src == nil {
		return fmt.Errorf("%w: source must be non-nil", ErrInvalidTarget)
	}
	if !src.Permitted() {
		return newForbidden(src)
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: target must be a non-nil pointer", ErrInvalidTarget)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a pointer to struct", ErrInvalidTarget)
	}

	return bindStruct(rv, src.ToMap())
}

// Map copies the source's entries into dst, last write wins. The same
// permitted-source guard applies as for Struct.
func Map(dst map[string]any, src Sanitizable) error {
	if src == nil {
		return fmt.Errorf("%w: source must be non-nil", ErrInvalidTarget)
	}
	if !src.Permitted() {
		return newForbidden(src)
	}
	if dst == nil {
		return fmt.Errorf("%w: target map must be non-nil", ErrInvalidTarget)
	}

	maps.Copy(dst, src.ToMap())
	return nil
}

func newForbidden(src Sanitizable) error {
	m := src.ToMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &ForbiddenAttributesError{Keys: keys}
}

func bindStruct(rv reflect.Value, values map[string]any) error {
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rt.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		name, skip := parseFieldTag(fieldType)
		if skip {
			continue
		}

		value, exists := values[name]
		if !exists || value == nil {
			// No value provided, leave as-is
			continue
		}

		if err := setValue(field, value); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrAssign, fieldType.Name, err)
		}
	}
	return nil
}

// parseFieldTag returns the parameter key a field binds to and whether
// the field opted out.
func parseFieldTag(field reflect.StructField) (name string, skip bool) {
	tag := field.Tag.Get("params")
	if tag == "" {
		return strings.ToLower(field.Name), false
	}
	if tag == "-" {
		return "", true
	}
	return strings.Split(tag, ",")[0], false
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

func setValue(field reflect.Value, value any) error {
	fieldType := field.Type()

	// Handle pointer targets
	if fieldType.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(fieldType.Elem()))
		}
		return setValue(field.Elem(), value)
	}

	switch fieldType {
	case timeType:
		return setTime(field, value)
	case uuidType:
		return setUUID(field, value)
	case decimalType:
		return setDecimal(field, value)
	}

	if vt := reflect.TypeOf(value); vt.AssignableTo(fieldType) {
		field.Set(reflect.ValueOf(value))
		return nil
	}

	switch fieldType.Kind() {
	case reflect.String:
		return setString(field, value)
	case reflect.Bool:
		return setBool(field, value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(field, value)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return setUint(field, value)
	case reflect.Float32, reflect.Float64:
		return setFloat(field, value)
	case reflect.Slice:
		return setSlice(field, value)
	case reflect.Struct:
		if m, ok := asStringMap(value); ok {
			return bindStruct(field, m)
		}
		return fmt.Errorf("cannot bind %T to struct %s", value, fieldType)
	}

	return fmt.Errorf("unsupported target type %s for %T", fieldType, value)
}

func setString(field reflect.Value, value any) error {
	switch t := value.(type) {
	case string:
		field.SetString(t)
	case []byte:
		field.SetString(string(t))
	case json.Number:
		field.SetString(t.String())
	default:
		return fmt.Errorf("cannot convert %T to string", value)
	}
	return nil
}

func setBool(field reflect.Value, value any) error {
	switch t := value.(type) {
	case bool:
		field.SetBool(t)
		return nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			// Be lenient with form-style boolean values
			switch strings.ToLower(t) {
			case "on", "yes":
				b = true
			case "off", "no", "":
				b = false
			default:
				return fmt.Errorf("invalid bool value %q", t)
			}
		}
		field.SetBool(b)
		return nil
	}
	return fmt.Errorf("cannot convert %T to bool", value)
}

func setInt(field reflect.Value, value any) error {
	n, err := toInt64(value)
	if err != nil {
		return err
	}
	if field.OverflowInt(n) {
		return fmt.Errorf("value %d overflows %s", n, field.Type())
	}
	field.SetInt(n)
	return nil
}

func toInt64(value any) (int64, error) {
	switch t := value.(type) {
	case json.Number:
		return t.Int64()
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid int value %q", t)
		}
		return n, nil
	}

	sv := reflect.ValueOf(value)
	switch {
	case sv.CanInt():
		return sv.Int(), nil
	case sv.CanUint():
		u := sv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case sv.CanFloat():
		f := sv.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("value %v is not an integer", f)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("cannot convert %T to int", value)
}

func setUint(field reflect.Value, value any) error {
	n, err := toInt64(value)
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("negative value %d for %s", n, field.Type())
	}
	u := uint64(n)
	if field.OverflowUint(u) {
		return fmt.Errorf("value %d overflows %s", u, field.Type())
	}
	field.SetUint(u)
	return nil
}

func setFloat(field reflect.Value, value any) error {
	var f float64
	switch t := value.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return fmt.Errorf("invalid float value %q", t)
		}
		f = parsed
	default:
		sv := reflect.ValueOf(value)
		switch {
		case sv.CanFloat():
			f = sv.Float()
		case sv.CanInt():
			f = float64(sv.Int())
		case sv.CanUint():
			f = float64(sv.Uint())
		default:
			return fmt.Errorf("cannot convert %T to float", value)
		}
	}
	if field.OverflowFloat(f) {
		return fmt.Errorf("value %v overflows %s", f, field.Type())
	}
	field.SetFloat(f)
	return nil
}

func setSlice(field reflect.Value, value any) error {
	elems, ok := value.([]any)
	if !ok {
		return fmt.Errorf("cannot convert %T to %s", value, field.Type())
	}

	slice := reflect.MakeSlice(field.Type(), len(elems), len(elems))
	for i, elem := range elems {
		if elem == nil {
			continue
		}
		if err := setValue(slice.Index(i), elem); err != nil {
			return fmt.Errorf("element %d: %v", i, err)
		}
	}
	field.Set(slice)
	return nil
}

func setTime(field reflect.Value, value any) error {
	switch t := value.(type) {
	case time.Time:
		field.Set(reflect.ValueOf(t))
		return nil
	case string:
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if parsed, err := time.Parse(layout, t); err == nil {
				field.Set(reflect.ValueOf(parsed))
				return nil
			}
		}
		return fmt.Errorf("invalid time value %q", t)
	}
	return fmt.Errorf("cannot convert %T to time.Time", value)
}

func setUUID(field reflect.Value, value any) error {
	switch t := value.(type) {
	case uuid.UUID:
		field.Set(reflect.ValueOf(t))
		return nil
	case string:
		id, err := uuid.Parse(t)
		if err != nil {
			return fmt.Errorf("invalid uuid value %q", t)
		}
		field.Set(reflect.ValueOf(id))
		return nil
	case []byte:
		id, err := uuid.FromBytes(t)
		if err != nil {
			return fmt.Errorf("invalid uuid bytes")
		}
		field.Set(reflect.ValueOf(id))
		return nil
	}
	return fmt.Errorf("cannot convert %T to uuid.UUID", value)
}

func setDecimal(field reflect.Value, value any) error {
	switch t := value.(type) {
	case decimal.Decimal:
		field.Set(reflect.ValueOf(t))
		return nil
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return fmt.Errorf("invalid decimal value %q", t)
		}
		field.Set(reflect.ValueOf(d))
		return nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return fmt.Errorf("invalid decimal value %q", t.String())
		}
		field.Set(reflect.ValueOf(d))
		return nil
	case float64:
		field.Set(reflect.ValueOf(decimal.NewFromFloat(t)))
		return nil
	case int:
		field.Set(reflect.ValueOf(decimal.NewFromInt(int64(t))))
		return nil
	case int64:
		field.Set(reflect.ValueOf(decimal.NewFromInt(t)))
		return nil
	}
	return fmt.Errorf("cannot convert %T to decimal.Decimal", value)
}

// asStringMap widens map-shaped values for nested struct binding. Trees
// exported through ToMap arrive as plain map[string]any; the ToMap
// assertion additionally covers nested Sanitizable implementations
// without importing them.
func asStringMap(value any) (map[string]any, bool) {
	switch t := value.(type) {
	case map[string]any:
		return t, true
	case interface{ ToMap() map[string]any }:
		return t.ToMap(), true
	}
	return nil, false
}
