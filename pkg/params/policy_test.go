package params_test

import (
	"os"
	"testing"

	"github.com/durable-oss/durable-parameters/pkg/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpermittedActionUnmarshalText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected params.UnpermittedAction
		wantErr  bool
	}{
		{name: "empty", input: "", expected: params.UnpermittedNone},
		{name: "off", input: "off", expected: params.UnpermittedNone},
		{name: "log", input: "log", expected: params.UnpermittedLog},
		{name: "raise", input: "raise", expected: params.UnpermittedRaise},
		{name: "uppercase", input: "RAISE", expected: params.UnpermittedRaise},
		{name: "surrounding whitespace", input: "  log  ", expected: params.UnpermittedLog},
		{name: "unknown value", input: "explode", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var action params.UnpermittedAction
			err := action.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				require.ErrorIs(t, err, params.ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, action)
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	policy := params.DefaultPolicy()
	assert.Equal(t, params.UnpermittedNone, policy.OnUnpermitted)
	assert.Equal(t, []string{"controller", "action"}, policy.AlwaysPermitted)
	assert.Nil(t, policy.Handler)
	assert.Nil(t, policy.Logger)
}

func TestSetPolicyAndCurrentPolicy(t *testing.T) {
	t.Cleanup(func() { params.SetPolicy(params.DefaultPolicy()) })

	installed := params.Policy{
		OnUnpermitted:   params.UnpermittedLog,
		AlwaysPermitted: []string{"format"},
	}
	params.SetPolicy(installed)

	current := params.CurrentPolicy()
	assert.Equal(t, params.UnpermittedLog, current.OnUnpermitted)
	assert.Equal(t, []string{"format"}, current.AlwaysPermitted)

	// Mutating the returned slice must not leak into the installed policy.
	current.AlwaysPermitted[0] = "hacked"
	assert.Equal(t, []string{"format"}, params.CurrentPolicy().AlwaysPermitted)

	// Mutating the caller's slice after install must not leak either.
	installed.AlwaysPermitted[0] = "hacked"
	assert.Equal(t, []string{"format"}, params.CurrentPolicy().AlwaysPermitted)
}

func TestLoadPolicy(t *testing.T) {
	t.Run("reads the environment", func(t *testing.T) {
		t.Setenv("PARAMS_ON_UNPERMITTED", "log")
		t.Setenv("PARAMS_ALWAYS_PERMITTED", "controller,action,format")

		policy, err := params.LoadPolicy()
		require.NoError(t, err)
		assert.Equal(t, params.UnpermittedLog, policy.OnUnpermitted)
		assert.Equal(t, []string{"controller", "action", "format"}, policy.AlwaysPermitted)
	})

	t.Run("defaults apply when nothing is set", func(t *testing.T) {
		t.Setenv("PARAMS_ON_UNPERMITTED", "")
		t.Setenv("PARAMS_ALWAYS_PERMITTED", "")
		os.Unsetenv("PARAMS_ON_UNPERMITTED")
		os.Unsetenv("PARAMS_ALWAYS_PERMITTED")

		policy, err := params.LoadPolicy()
		require.NoError(t, err)
		assert.Equal(t, params.UnpermittedNone, policy.OnUnpermitted)
		assert.Equal(t, []string{"controller", "action"}, policy.AlwaysPermitted)
	})

	t.Run("rejects unknown actions", func(t *testing.T) {
		t.Setenv("PARAMS_ON_UNPERMITTED", "explode")

		_, err := params.LoadPolicy()
		require.ErrorIs(t, err, params.ErrInvalidPolicy)
	})

	t.Run("result is not installed automatically", func(t *testing.T) {
		t.Setenv("PARAMS_ON_UNPERMITTED", "raise")

		_, err := params.LoadPolicy()
		require.NoError(t, err)
		assert.Equal(t, params.UnpermittedNone, params.CurrentPolicy().OnUnpermitted)
	})
}
