package generative

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, _, _ string) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func Test_Chain_WhenFirstProviderFails_ShouldUseNext(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("quota exceeded")}
	second := &stubProvider{name: "second", text: "hello"}

	text, err := NewChain(time.Second, first, second).Generate(context.Background(), "p", "s")

	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func Test_Chain_WhenProviderReturnsBlank_ShouldTreatAsFailure(t *testing.T) {
	first := &stubProvider{name: "first", text: "   "}
	second := &stubProvider{name: "second", text: "ok"}

	text, err := NewChain(0, first, second).Generate(context.Background(), "p", "")

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func Test_Chain_WhenAllFail_ShouldReturnUnavailable(t *testing.T) {
	chain := NewChain(0, &stubProvider{name: "a", err: errors.New("boom")})

	_, err := chain.Generate(context.Background(), "p", "")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func Test_Chain_WhenEmpty_ShouldReturnUnavailable(t *testing.T) {
	_, err := NewChain(0).Generate(context.Background(), "p", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func Test_Chain_WhenAttemptTimesOut_ShouldMoveOn(t *testing.T) {
	slow := &stubProvider{name: "slow", text: "late", delay: time.Second}
	fast := &stubProvider{name: "fast", text: "on time"}

	text, err := NewChain(20*time.Millisecond, slow, fast).Generate(context.Background(), "p", "")

	require.NoError(t, err)
	assert.Equal(t, "on time", text)
}
