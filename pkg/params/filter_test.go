package params_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/durable-oss/durable-parameters/pkg/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermitScalars(t *testing.T) {
	t.Parallel()

	t.Run("keeps declared scalar keys only", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"name":  "ada",
			"email": "a@b.c",
			"admin": true,
		})

		clean, err := p.Permit("name", "email")
		require.NoError(t, err)
		assert.True(t, clean.Permitted())
		assert.Equal(t, "ada", clean.Get("name"))
		assert.Equal(t, "a@b.c", clean.Get("email"))
		assert.False(t, clean.Has("admin"))
	})

	t.Run("declared key with non-scalar value is dropped", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"name": map[string]any{"sneaky": true},
		})

		clean, err := p.Permit("name")
		require.NoError(t, err)
		assert.False(t, clean.Has("name"))
	})

	t.Run("filters are key-indifferent", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"1": "one"})
		clean, err := p.Permit(1)
		require.NoError(t, err)
		assert.Equal(t, "one", clean.Get("1"))
	})

	t.Run("filter slices are spliced", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"a": 1, "b": 2, "c": 3})
		clean, err := p.Permit([]string{"a", "b"}, "c")
		require.NoError(t, err)
		assert.Equal(t, 3, clean.Len())
	})

	t.Run("required marker is carried onto the result", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"name": "ada"})
		p.SetRequiredKey("user")
		clean, err := p.Permit("name")
		require.NoError(t, err)
		assert.Equal(t, "user", clean.RequiredKey())
	})
}

func TestPermitGroupedKeys(t *testing.T) {
	t.Parallel()

	p := params.New(map[string]any{
		"published_at(1i)": "2024",
		"published_at(2i)": "06",
		"published_at(3i)": "15",
		"published":        "yes",
		"published_later":  "no",
	})

	clean, err := p.Permit("published_at")
	require.NoError(t, err)

	assert.Equal(t, []string{"published_at(1i)", "published_at(2i)", "published_at(3i)"}, clean.Keys())
	assert.Equal(t, "2024", clean.Get("published_at(1i)"))
	assert.False(t, clean.Has("published"))
	assert.False(t, clean.Has("published_later"))

	t.Run("base key and grouped siblings together", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"date":     "whole",
			"date(1i)": "2024",
			"dates":    "plural",
		})
		clean, err := p.Permit("date")
		require.NoError(t, err)
		assert.Equal(t, []string{"date", "date(1i)"}, clean.Keys())
	})

	t.Run("grouped sibling with non-scalar value is dropped", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"date(1i)": map[string]any{"bad": true},
			"date(2i)": "06",
		})
		clean, err := p.Permit("date")
		require.NoError(t, err)
		assert.Equal(t, []string{"date(2i)"}, clean.Keys())
	})
}

func TestPermitArrayOfScalars(t *testing.T) {
	t.Parallel()

	t.Run("array of scalars passes", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"tags": []any{"go", "web", 3}})
		clean, err := p.Permit(map[string]any{"tags": []any{}})
		require.NoError(t, err)
		assert.Equal(t, []any{"go", "web", 3}, clean.Get("tags"))
	})

	t.Run("one bad element rejects the whole array", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"tags": []any{"go", map[string]any{"sneaky": true}},
		})
		clean, err := p.Permit(map[string]any{"tags": []any{}})
		require.NoError(t, err)
		assert.False(t, clean.Has("tags"))
	})

	t.Run("empty array qualifies", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"tags": []any{}})
		clean, err := p.Permit(map[string]any{"tags": []any{}})
		require.NoError(t, err)
		assert.True(t, clean.Has("tags"))
		assert.Empty(t, clean.Get("tags"))
	})

	t.Run("non-array value is dropped", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"tags": "go"})
		clean, err := p.Permit(map[string]any{"tags": []any{}})
		require.NoError(t, err)
		assert.False(t, clean.Has("tags"))
	})
}

func TestPermitFreeFormSubtree(t *testing.T) {
	t.Parallel()

	t.Run("scalars arrays and trees survive", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"prefs": map[string]any{
				"theme": "dark",
				"flags": map[string]any{"beta": true},
				"list":  []any{"x", map[string]any{"b": 2}, []any{"deep"}},
				"weird": struct{}{},
			},
		})

		clean, err := p.Permit(map[string]any{"prefs": map[string]any{}})
		require.NoError(t, err)

		prefs, ok := clean.Get("prefs").(*params.Params)
		require.True(t, ok)
		assert.True(t, prefs.Permitted())
		assert.Equal(t, "dark", prefs.Get("theme"))

		flags := prefs.Get("flags").(*params.Params)
		assert.True(t, flags.Permitted())
		assert.Equal(t, true, flags.Get("beta"))

		// Nested arrays inside the list and non-scalar leaves are dropped.
		list := prefs.Get("list").([]any)
		require.Len(t, list, 2)
		assert.Equal(t, "x", list[0])
		assert.Equal(t, 2, list[1].(*params.Params).Get("b"))
		assert.False(t, prefs.Has("weird"))
	})

	t.Run("scalar under a free-form spec is dropped", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"prefs": "dark"})
		clean, err := p.Permit(map[string]any{"prefs": map[string]any{}})
		require.NoError(t, err)
		assert.False(t, clean.Has("prefs"))
	})
}

func TestPermitNested(t *testing.T) {
	t.Parallel()

	t.Run("single nested tree", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"user": map[string]any{"name": "ada", "role": "admin"},
		})

		clean, err := p.Permit(map[string]any{"user": []any{"name"}})
		require.NoError(t, err)

		user := clean.Get("user").(*params.Params)
		assert.True(t, user.Permitted())
		assert.Equal(t, "ada", user.Get("name"))
		assert.False(t, user.Has("role"))
	})

	t.Run("single string sub-filter", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"user": map[string]any{"name": "ada", "role": "admin"},
		})

		clean, err := p.Permit(map[string]any{"user": "name"})
		require.NoError(t, err)
		assert.Equal(t, "ada", clean.Get("user").(*params.Params).Get("name"))
	})

	t.Run("array of trees filters element-wise", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"posts": []any{
				map[string]any{"title": "first", "secret": true},
				"not a tree",
				map[string]any{"title": "second"},
			},
		})

		clean, err := p.Permit(map[string]any{"posts": []any{"title"}})
		require.NoError(t, err)

		posts := clean.Get("posts").([]any)
		require.Len(t, posts, 2)
		first := posts[0].(*params.Params)
		assert.Equal(t, "first", first.Get("title"))
		assert.False(t, first.Has("secret"))
		assert.Equal(t, "second", posts[1].(*params.Params).Get("title"))
	})

	t.Run("scalar under a structured filter is dropped", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"user": "ada"})
		clean, err := p.Permit(map[string]any{"user": []any{"name"}})
		require.NoError(t, err)
		assert.False(t, clean.Has("user"))
	})

	t.Run("deep nesting", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"user": map[string]any{
				"name": "ada",
				"address": map[string]any{
					"city":   "london",
					"secret": "drop me",
				},
			},
		})

		clean, err := p.Permit(map[string]any{
			"user": []any{"name", map[string]any{"address": []any{"city"}}},
		})
		require.NoError(t, err)

		user := clean.Get("user").(*params.Params)
		address := user.Get("address").(*params.Params)
		assert.True(t, address.Permitted())
		assert.Equal(t, "london", address.Get("city"))
		assert.False(t, address.Has("secret"))
	})

	t.Run("nil value under a declared key is skipped", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"user": nil})
		clean, err := p.Permit(map[string]any{"user": []any{"name"}})
		require.NoError(t, err)
		assert.False(t, clean.Has("user"))
	})
}

func TestRequireThenPermit(t *testing.T) {
	t.Parallel()

	p := params.New(map[string]any{
		"user": map[string]any{"name": "John", "admin": true},
	})

	user, err := p.RequireParams("user")
	require.NoError(t, err)

	clean, err := user.Permit("name")
	require.NoError(t, err)

	assert.True(t, clean.Permitted())
	assert.Equal(t, "John", clean.Get("name"))
	assert.False(t, clean.Has("admin"))
}

func TestPermitIndexedCollection(t *testing.T) {
	t.Parallel()

	t.Run("all-numeric keys with tree values filter per element", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"addresses": map[string]any{
				"0": map[string]any{"city": "london", "secret": true},
				"1": map[string]any{"city": "paris"},
			},
		})

		clean, err := p.Permit(map[string]any{"addresses": []any{"city"}})
		require.NoError(t, err)

		addresses := clean.Get("addresses").(*params.Params)
		assert.Equal(t, []string{"0", "1"}, addresses.Keys())

		first := addresses.Get("0").(*params.Params)
		assert.Equal(t, "london", first.Get("city"))
		assert.False(t, first.Has("secret"))
		assert.Equal(t, "paris", addresses.Get("1").(*params.Params).Get("city"))
	})

	t.Run("negative indexes count as numeric", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"rows": map[string]any{
				"-1": map[string]any{"city": "oslo"},
				"2":  map[string]any{"city": "rome"},
			},
		})

		clean, err := p.Permit(map[string]any{"rows": []any{"city"}})
		require.NoError(t, err)

		rows := clean.Get("rows").(*params.Params)
		assert.Equal(t, "oslo", rows.Get("-1").(*params.Params).Get("city"))
		assert.Equal(t, "rome", rows.Get("2").(*params.Params).Get("city"))
	})

	t.Run("mixed keys fall back to plain nested filtering", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"rows": map[string]any{
				"0":     map[string]any{"city": "oslo"},
				"extra": map[string]any{"city": "rome"},
			},
		})

		clean, err := p.Permit(map[string]any{"rows": []any{"city"}})
		require.NoError(t, err)

		// The collection shape is not recognized, so the filter applies to
		// the outer tree, where neither "0" nor "extra" is declared.
		rows := clean.Get("rows").(*params.Params)
		assert.Equal(t, 0, rows.Len())
	})

	t.Run("numeric key with scalar value is not a collection", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"rows": map[string]any{"0": "scalar"},
		})

		clean, err := p.Permit(map[string]any{"rows": []any{"city"}})
		require.NoError(t, err)
		assert.Equal(t, 0, clean.Get("rows").(*params.Params).Len())
	})
}

func TestPermitNoFilters(t *testing.T) {
	t.Parallel()

	p := params.New(map[string]any{"a": 1, "b": 2})
	clean, err := p.Permit()
	require.NoError(t, err)
	assert.True(t, clean.Permitted())
	assert.True(t, clean.IsEmpty())
}

func TestPermitIdempotent(t *testing.T) {
	t.Parallel()

	p := params.New(map[string]any{
		"name": "ada",
		"tags": []any{"go"},
		"user": map[string]any{"role": "admin", "sneaky": true},
	})
	filters := []any{
		"name",
		map[string]any{"tags": []any{}, "user": []any{"role"}},
	}

	once, err := p.Permit(filters...)
	require.NoError(t, err)
	twice, err := once.Permit(filters...)
	require.NoError(t, err)

	assert.Equal(t, once.ToMap(), twice.ToMap())
	assert.Equal(t, once.Keys(), twice.Keys())
}

func TestPermitDeterministicOrder(t *testing.T) {
	t.Parallel()

	t.Run("bare names follow filter order", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{"a": 1, "b": 2, "c": 3})
		clean, err := p.Permit("c", "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, clean.Keys())
	})

	t.Run("map specs follow source order", func(t *testing.T) {
		t.Parallel()
		p := params.New(map[string]any{
			"b": map[string]any{"x": 1},
			"a": map[string]any{"x": 2},
		})
		clean, err := p.Permit(map[string]any{
			"a": []any{"x"},
			"b": []any{"x"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, clean.Keys())
	})
}

func TestPermitLeavesSourceUntouched(t *testing.T) {
	t.Parallel()

	p := params.New(map[string]any{
		"name": "ada",
		"user": map[string]any{"role": "admin"},
	})

	clean, err := p.Permit("name")
	require.NoError(t, err)
	require.True(t, clean.Permitted())

	assert.False(t, p.Permitted())
	assert.Equal(t, 2, p.Len())
	assert.False(t, p.Get("user").(*params.Params).Permitted())
}

func TestPermitUnicodeKeys(t *testing.T) {
	t.Parallel()

	p := params.New(map[string]any{"café": "espresso"})
	clean, err := p.Permit("café")
	require.NoError(t, err)
	assert.Equal(t, "espresso", clean.Get("café"))
}

func TestPermitRaisePolicy(t *testing.T) {
	t.Cleanup(func() { params.SetPolicy(params.DefaultPolicy()) })
	params.SetPolicy(params.Policy{OnUnpermitted: params.UnpermittedRaise})

	t.Run("top-level undeclared keys fail the call", func(t *testing.T) {
		p := params.New(map[string]any{"name": "ada", "admin": true, "zz": 1})
		clean, err := p.Permit("name")
		require.ErrorIs(t, err, params.ErrUnpermittedParameters)
		assert.Nil(t, clean)

		var unpermitted *params.UnpermittedParametersError
		require.ErrorAs(t, err, &unpermitted)
		assert.Equal(t, []string{"admin", "zz"}, unpermitted.Keys)
	})

	t.Run("nested levels apply the policy too", func(t *testing.T) {
		p := params.New(map[string]any{
			"user": map[string]any{"name": "ada", "role": "admin"},
		})
		_, err := p.Permit(map[string]any{"user": []any{"name"}})
		require.ErrorIs(t, err, params.ErrUnpermittedParameters)

		var unpermitted *params.UnpermittedParametersError
		require.ErrorAs(t, err, &unpermitted)
		assert.Equal(t, []string{"role"}, unpermitted.Keys)
	})

	t.Run("fully declared trees pass", func(t *testing.T) {
		p := params.New(map[string]any{"name": "ada"})
		clean, err := p.Permit("name")
		require.NoError(t, err)
		assert.Equal(t, "ada", clean.Get("name"))
	})
}

func TestPermitLogPolicy(t *testing.T) {
	t.Cleanup(func() { params.SetPolicy(params.DefaultPolicy()) })

	t.Run("handler receives the rejected keys", func(t *testing.T) {
		var captured [][]string
		params.SetPolicy(params.Policy{
			OnUnpermitted: params.UnpermittedLog,
			Handler:       func(keys []string) { captured = append(captured, keys) },
		})

		p := params.New(map[string]any{"name": "ada", "admin": true})
		clean, err := p.Permit("name")
		require.NoError(t, err)
		assert.False(t, clean.Has("admin"))
		assert.Equal(t, [][]string{{"admin"}}, captured)
	})

	t.Run("handler panic does not abort the call", func(t *testing.T) {
		params.SetPolicy(params.Policy{
			OnUnpermitted: params.UnpermittedLog,
			Handler:       func([]string) { panic("boom") },
		})

		p := params.New(map[string]any{"name": "ada", "admin": true})
		clean, err := p.Permit("name")
		require.NoError(t, err)
		assert.True(t, clean.Permitted())
	})

	t.Run("without a handler the keys go to the logger", func(t *testing.T) {
		var buf bytes.Buffer
		params.SetPolicy(params.Policy{
			OnUnpermitted: params.UnpermittedLog,
			Logger:        slog.New(slog.NewTextHandler(&buf, nil)),
		})

		p := params.New(map[string]any{"name": "ada", "admin": true})
		_, err := p.Permit("name")
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "unpermitted parameters")
		assert.Contains(t, buf.String(), "admin")
	})
}

func TestPermitAlwaysPermitted(t *testing.T) {
	t.Cleanup(func() { params.SetPolicy(params.DefaultPolicy()) })
	params.SetPolicy(params.Policy{
		OnUnpermitted:   params.UnpermittedRaise,
		AlwaysPermitted: []string{"controller", "action"},
	})

	t.Run("routing keys never count as unpermitted", func(t *testing.T) {
		p := params.New(map[string]any{
			"name":       "ada",
			"controller": "users",
			"action":     "create",
		})
		clean, err := p.Permit("name")
		require.NoError(t, err)
		assert.False(t, clean.Has("controller"))
	})

	t.Run("other keys still fail", func(t *testing.T) {
		p := params.New(map[string]any{
			"name":       "ada",
			"controller": "users",
			"admin":      true,
		})
		_, err := p.Permit("name")

		var unpermitted *params.UnpermittedParametersError
		require.ErrorAs(t, err, &unpermitted)
		assert.Equal(t, []string{"admin"}, unpermitted.Keys)
	})
}
