package params

import (
	"encoding/json"
	"io"
	"math/big"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The scalar whitelist is the single place that defines what counts as safe
// to mass-assign. Arrays, maps and parameter trees are never scalars; every
// leaf that passes a filter must satisfy IsScalar. Adapters may widen the
// whitelist (for upload-file types and similar) through RegisterScalarType
// or RegisterScalarCheck; entries can never be removed.
var (
	scalarMu     sync.RWMutex
	scalarTypes  = make(map[reflect.Type]struct{})
	scalarChecks []func(any) bool
)

// IsScalar reports whether v is an acceptable leaf value: nil, string-like,
// boolean, any numeric (including big.* and arbitrary-precision decimals),
// date/time-like, stream-like (io.Reader), or a registered extension type.
func IsScalar(v any) bool {
	if v == nil {
		return true
	}

	switch v.(type) {
	case string, []byte, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		json.Number, decimal.Decimal, uuid.UUID,
		*big.Int, *big.Float, *big.Rat,
		time.Time, time.Duration:
		return true
	}

	if _, ok := v.(io.Reader); ok {
		return true
	}

	return isRegisteredScalar(v)
}

// RegisterScalarType widens the scalar whitelist with a concrete type.
// Registration is union-only: there is no way to remove a type. Nil types
// are ignored. Safe for concurrent use, though registration is expected at
// process start.
func RegisterScalarType(t reflect.Type) {
	if t == nil {
		return
	}
	scalarMu.Lock()
	defer scalarMu.Unlock()
	scalarTypes[t] = struct{}{}
}

// RegisterScalarCheck widens the scalar whitelist with a predicate, for
// extensions that match an interface rather than a concrete type. Nil
// predicates are ignored.
func RegisterScalarCheck(fn func(any) bool) {
	if fn == nil {
		return
	}
	scalarMu.Lock()
	defer scalarMu.Unlock()
	scalarChecks = append(scalarChecks, fn)
}

func isRegisteredScalar(v any) bool {
	scalarMu.RLock()
	defer scalarMu.RUnlock()

	if len(scalarTypes) > 0 {
		if _, ok := scalarTypes[reflect.TypeOf(v)]; ok {
			return true
		}
	}
	for _, check := range scalarChecks {
		if check(v) {
			return true
		}
	}
	return false
}

// isArrayOfPermittedScalars reports whether every element of arr passes
// IsScalar. An empty array qualifies vacuously.
func isArrayOfPermittedScalars(arr []any) bool {
	for _, v := range arr {
		if !IsScalar(v) {
			return false
		}
	}
	return true
}
