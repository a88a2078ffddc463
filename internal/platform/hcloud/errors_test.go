package hcloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud"
)

func apiError(code hcloud.ErrorCode) error {
	return hcloud.Error{Code: code, Message: string(code)}
}

func TestIsResourceLocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("something went wrong"), false},
		{"locked", apiError(hcloud.ErrorCodeLocked), true},
		{"conflict", apiError(hcloud.ErrorCodeConflict), true},
		{"resource locked", apiError(hcloud.ErrorCodeResourceLocked), true},
		{"resource unavailable", apiError(hcloud.ErrorCodeResourceUnavailable), true},
		{"not found", apiError(hcloud.ErrorCodeNotFound), false},
		{"wrapped locked", fmt.Errorf("delete: %w", apiError(hcloud.ErrorCodeLocked)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, isResourceLocked(tt.err))
		})
	}
}

func TestIsInvalidParameter(t *testing.T) {
	t.Parallel()

	assert.True(t, isInvalidParameter(apiError(hcloud.ErrorCodeInvalidInput)))
	assert.True(t, isInvalidParameter(apiError(hcloud.ErrorCodeInvalidServerType)))
	assert.True(t, isInvalidParameter(apiError(hcloud.ErrorCodeNotFound)))
	assert.False(t, isInvalidParameter(apiError(hcloud.ErrorCodeLocked)))
	assert.False(t, isInvalidParameter(nil))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want cloud.Kind
	}{
		{"not found", apiError(hcloud.ErrorCodeNotFound), cloud.KindNotFound},
		{"conflict", apiError(hcloud.ErrorCodeConflict), cloud.KindConflict},
		{"locked", apiError(hcloud.ErrorCodeLocked), cloud.KindConflict},
		{"in use", apiError(hcloud.ErrorCodeResourceInUse), cloud.KindConflict},
		{"rate limited", apiError(hcloud.ErrorCodeRateLimitExceeded), cloud.KindTransient},
		{"unavailable", apiError(hcloud.ErrorCodeResourceUnavailable), cloud.KindTransient},
		{"invalid input", apiError(hcloud.ErrorCodeInvalidInput), cloud.KindFatal},
		{"network timeout", timeoutErr{}, cloud.KindTransient},
		{"plain", errors.New("boom"), cloud.KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := classify("get server", "web-1", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.want, cloud.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_KeepsExistingKind(t *testing.T) {
	t.Parallel()

	orig := cloud.NotFound("get image", "42")
	assert.Same(t, orig, classify("other op", "x", orig))
	assert.NoError(t, classify("op", "x", nil))
}
