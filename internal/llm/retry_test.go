package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func down() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("connection reset")}}
}

func invalid() MockResponse {
	return MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`{"items":"oops"}`), Err: errors.New("schema")}}
}

func ok() MockResponse {
	return MockResponse{Content: json.RawMessage(`{"ok":true}`)}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		responses []MockResponse
		wantCalls int
		wantErr   any // pointer to the expected error type, nil for success
	}{
		{name: "first attempt", responses: []MockResponse{ok()}, wantCalls: 1},
		{name: "transient then success", responses: []MockResponse{down(), ok()}, wantCalls: 2},
		{
			name:      "rate limited then success",
			responses: []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}}, ok()},
			wantCalls: 2,
		},
		{
			name:      "attempts exhausted",
			responses: []MockResponse{down(), down(), down(), ok()},
			wantCalls: 3,
			wantErr:   new(*ErrProviderUnavailable),
		},
		{
			name:      "truncation is final",
			responses: []MockResponse{{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"items":[`)}}, ok()},
			wantCalls: 1,
			wantErr:   new(*ErrMaxTokensExceeded),
		},
		{
			name:      "schema violation retried once",
			responses: []MockResponse{invalid(), invalid(), ok()},
			wantCalls: 2,
			wantErr:   new(*ErrInvalidResponse),
		},
		{
			name:      "schema violation then outage still retries outage",
			responses: []MockResponse{invalid(), down(), ok()},
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			p := WithRetry(mock, retryConfig(), nil)

			resp, err := p.Generate(context.Background(), Request{Messages: UserMessage("generate")})
			assert.Equal(t, tt.wantCalls, mock.CallCount())
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.JSONEq(t, `{"ok":true}`, string(resp.Content))
				return
			}
			require.Error(t, err)
			assert.ErrorAs(t, err, tt.wantErr)
		})
	}
}

func TestRetry_CanceledContextStopsEarly(t *testing.T) {
	mock := NewMockProvider(down(), down(), ok())
	p := WithRetry(mock, retryConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_Backoff(t *testing.T) {
	r := &RetryProvider{config: RetryConfig{
		MaxAttempts: 5,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     time.Second,
		Multiplier:  2,
	}}
	transient := &ErrProviderUnavailable{}

	for attempt, base := range []time.Duration{100, 200, 400, 800, 1000} {
		base *= time.Millisecond
		for range 20 {
			got := r.backoff(attempt, transient)
			assert.GreaterOrEqual(t, got, base*8/10, "attempt %d", attempt)
			assert.LessOrEqual(t, got, base*12/10, "attempt %d", attempt)
		}
	}

	assert.Equal(t, 3*time.Second, r.backoff(0, &ErrRateLimit{RetryAfter: 3 * time.Second}))
}

func TestRetry_Delegates(t *testing.T) {
	p := WithRetry(NewMockProvider(), RetryConfig{}, nil)
	assert.Equal(t, "mock", p.ModelID())
	assert.Equal(t, ProviderMock, p.Name())
}
