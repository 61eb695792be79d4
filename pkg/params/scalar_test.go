package params_test

import (
	"bytes"
	"encoding/json"
	"math/big"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/durable-oss/durable-parameters/pkg/params"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsScalar(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{name: "nil", value: nil, expected: true},
		{name: "string", value: "hello", expected: true},
		{name: "byte slice", value: []byte("raw"), expected: true},
		{name: "bool", value: true, expected: true},
		{name: "int", value: 42, expected: true},
		{name: "int64", value: int64(42), expected: true},
		{name: "uint8", value: uint8(1), expected: true},
		{name: "float64", value: 4.2, expected: true},
		{name: "json number", value: json.Number("42"), expected: true},
		{name: "decimal", value: decimal.NewFromInt(10), expected: true},
		{name: "uuid", value: uuid.Nil, expected: true},
		{name: "big int", value: big.NewInt(7), expected: true},
		{name: "big float", value: big.NewFloat(7.5), expected: true},
		{name: "big rat", value: big.NewRat(1, 3), expected: true},
		{name: "time", value: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), expected: true},
		{name: "duration", value: time.Minute, expected: true},
		{name: "reader", value: strings.NewReader("upload"), expected: true},
		{name: "buffer is a reader", value: &bytes.Buffer{}, expected: true},
		{name: "string map", value: map[string]any{}, expected: false},
		{name: "any slice", value: []any{}, expected: false},
		{name: "string slice", value: []string{"a"}, expected: false},
		{name: "params tree", value: params.New(nil), expected: false},
		{name: "struct", value: struct{ A int }{A: 1}, expected: false},
		{name: "complex", value: complex(1, 2), expected: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, params.IsScalar(tt.value))
		})
	}
}

type customUploadedFile struct {
	path string
}

type customMoney struct {
	cents int64
}

func TestRegisterScalarType(t *testing.T) {
	t.Parallel()

	assert.False(t, params.IsScalar(customUploadedFile{path: "/tmp/a"}))
	params.RegisterScalarType(reflect.TypeOf(customUploadedFile{}))
	assert.True(t, params.IsScalar(customUploadedFile{path: "/tmp/a"}))

	// Nil registrations are ignored.
	params.RegisterScalarType(nil)
	assert.True(t, params.IsScalar("still fine"))
}

func TestRegisterScalarCheck(t *testing.T) {
	t.Parallel()

	assert.False(t, params.IsScalar(customMoney{cents: 100}))
	params.RegisterScalarCheck(func(v any) bool {
		_, ok := v.(customMoney)
		return ok
	})
	assert.True(t, params.IsScalar(customMoney{cents: 100}))

	params.RegisterScalarCheck(nil)
	assert.True(t, params.IsScalar("still fine"))
}

func TestRegisteredScalarsFlowThroughPermit(t *testing.T) {
	t.Parallel()

	type attachment struct{ name string }
	params.RegisterScalarType(reflect.TypeOf(attachment{}))

	p := params.New(map[string]any{"avatar": attachment{name: "a.png"}})
	clean, err := p.Permit("avatar")
	assert.NoError(t, err)
	assert.Equal(t, attachment{name: "a.png"}, clean.Get("avatar"))
}

type concurrentProbe struct {
	id int
}

func TestScalarRegistryConcurrency(t *testing.T) {
	t.Parallel()

	const goroutines = 50
	const operations = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				switch j % 4 {
				case 0:
					params.IsScalar("probe")
				case 1:
					params.IsScalar(map[string]any{})
				case 2:
					params.RegisterScalarCheck(func(v any) bool {
						p, ok := v.(concurrentProbe)
						return ok && p.id == id
					})
				default:
					params.IsScalar(concurrentProbe{id: id})
				}
			}
		}(i)
	}

	wg.Wait()
	assert.True(t, params.IsScalar(concurrentProbe{id: 0}))
	assert.False(t, params.IsScalar(struct{ other bool }{}))
}
