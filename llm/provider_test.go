package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want FailureKind
	}{
		{ErrUnauthorized, FailureAuth},
		{ErrForbidden, FailureAuth},
		{ErrRateLimited, FailureRateLimit},
		{ErrQuotaExceeded, FailureRateLimit},
		{ErrCapabilityMismatch, FailureCapability},
		{ErrInvalidRequest, FailureUnknown},
		{ErrUpstreamTimeout, FailureUnknown},
		{ErrUpstreamError, FailureUnknown},
		{ErrRoutingUnavailable, FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			e := &Error{Code: tt.code, Message: "x"}
			assert.Equal(t, tt.want, e.Kind())
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Run("llm error", func(t *testing.T) {
		err := &Error{Code: ErrRateLimited}
		assert.Equal(t, FailureRateLimit, KindOf(err))
	})

	t.Run("wrapped llm error", func(t *testing.T) {
		err := fmt.Errorf("call failed: %w", &Error{Code: ErrUnauthorized})
		assert.Equal(t, FailureAuth, KindOf(err))
	})

	t.Run("plain error is unknown", func(t *testing.T) {
		assert.Equal(t, FailureUnknown, KindOf(errors.New("boom")))
	})
}

func TestModelConfigKey(t *testing.T) {
	cfg := ModelConfig{Provider: "deepseek", Model: "deepseek-chat"}
	assert.Equal(t, "deepseek/deepseek-chat", cfg.Key())
}

func TestChatResponseText(t *testing.T) {
	t.Run("first choice", func(t *testing.T) {
		r := &ChatResponse{Choices: []ChatChoice{
			{Message: NewAssistantMessage("hello")},
			{Message: NewAssistantMessage("other")},
		}}
		assert.Equal(t, "hello", r.Text())
	})

	t.Run("empty choices", func(t *testing.T) {
		assert.Equal(t, "", (&ChatResponse{}).Text())
	})

	t.Run("nil receiver", func(t *testing.T) {
		var r *ChatResponse
		assert.Equal(t, "", r.Text())
	})
}
