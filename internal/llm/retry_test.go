package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RetryClass
	}{
		{"nil", nil, RetryClassNonRetryable},
		{"unreachable", &TransportError{Kind: KindUnreachable, Err: errors.New("dial tcp")}, RetryClassRetryable},
		{"timeout", &TransportError{Kind: KindTimeout, Err: errors.New("slow")}, RetryClassMaybe},
		{"model missing", &TransportError{Kind: KindModelNotFound, Err: errors.New("404")}, RetryClassNonRetryable},
		{"rejected", &TransportError{Kind: KindRejected, Err: errors.New("401")}, RetryClassNonRetryable},
		{"canceled", context.Canceled, RetryClassNonRetryable},
		{"plain 503", errors.New("status 503 service unavailable"), RetryClassRetryable},
		{"plain unknown", errors.New("weird"), RetryClassNonRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestKindFromStatus(t *testing.T) {
	assert.Equal(t, KindModelNotFound, KindFromStatus(404))
	assert.Equal(t, KindTimeout, KindFromStatus(504))
	assert.Equal(t, KindUnreachable, KindFromStatus(503))
	assert.Equal(t, KindUnreachable, KindFromStatus(0))
	assert.Equal(t, KindRejected, KindFromStatus(401))
}

func TestRetryingRecoversFromUnreachable(t *testing.T) {
	calls := 0
	g := GeneratorFunc(func(ctx context.Context, prompt, system string, history []Message) (string, error) {
		calls++
		if calls < 3 {
			return "", &TransportError{Kind: KindUnreachable, Err: errors.New("connection refused")}
		}
		return "ok", nil
	})

	var retries []int
	r := NewRetrying(g, fastPolicy(3))
	r.OnRetry = func(attempt int, _ time.Duration, _ error) { retries = append(retries, attempt) }

	out, err := r.Generate(context.Background(), "p", "s", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetryingDoesNotRetryMissingModel(t *testing.T) {
	calls := 0
	g := GeneratorFunc(func(ctx context.Context, prompt, system string, history []Message) (string, error) {
		calls++
		return "", &TransportError{Kind: KindModelNotFound, Model: "llama3.2", Err: errors.New("404")}
	})

	_, err := NewRetrying(g, fastPolicy(3)).Generate(context.Background(), "p", "", nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindModelNotFound, te.Kind)
}

func TestRetryingExhausted(t *testing.T) {
	calls := 0
	g := GeneratorFunc(func(ctx context.Context, prompt, system string, history []Message) (string, error) {
		calls++
		return "", &TransportError{Kind: KindUnreachable, Err: errors.New("down")}
	})

	_, err := NewRetrying(g, fastPolicy(2)).Generate(context.Background(), "p", "", nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindUnreachable, te.Kind)
}

func TestRetryingHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := GeneratorFunc(func(ctx context.Context, prompt, system string, history []Message) (string, error) {
		cancel()
		return "", &TransportError{Kind: KindUnreachable, Err: errors.New("down")}
	})

	policy := fastPolicy(5)
	policy.InitialDelay = time.Second
	policy.MaxDelay = time.Second

	_, err := NewRetrying(g, policy).Generate(ctx, "p", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelayCapsAndHonorsRetryAfter(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 4 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, calculateDelay(p, 0, errors.New("x")))
	assert.Equal(t, 4*time.Second, calculateDelay(p, 5, errors.New("x")))

	withHint := &TransportError{Kind: KindUnreachable, RetryAfter: 2 * time.Second, Err: errors.New("429")}
	assert.Equal(t, 2*time.Second, calculateDelay(p, 0, withHint))
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("next", "sys", []Message{{Role: RoleUser, Content: "a"}, {Role: RoleAssistant, Content: "b"}})
	require.Len(t, msgs, 4)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "next", msgs[3].Content)
	assert.Len(t, BuildMessages("", "", nil), 0)
}
