package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScenario(participants ...string) model.Scenario {
	return model.Scenario{
		ID:               "scn-1",
		Domain:           model.DomainSecurity,
		Complexity:       model.ComplexityBasic,
		TimeLimitSeconds: 300,
		Participants:     participants,
	}
}

func answer(text string) Responder {
	return ResponderFunc(func(context.Context, model.Scenario) (string, error) {
		return text, nil
	})
}

func fail(err error) Responder {
	return ResponderFunc(func(context.Context, model.Scenario) (string, error) {
		return "", err
	})
}

func TestDispatch_TimeoutStillCoversEveryParticipant(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	hung := ResponderFunc(func(context.Context, model.Scenario) (string, error) {
		<-release
		return "too late", nil
	})

	start := time.Now()
	got := New(50*time.Millisecond).Dispatch(context.Background(), testScenario("fast", "slow"), map[string]Responder{
		"fast": answer("isolate the host"),
		"slow": hung,
	})

	require.Len(t, got, 2)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, "isolate the host", got["fast"].Content)
	assert.Equal(t, MethodPrimary, got["fast"].ResponseMethod)
	assert.Empty(t, got["fast"].Error)

	assert.True(t, got["slow"].IsFallback())
	assert.Equal(t, FallbackResponse("slow", testScenario()), got["slow"].Content)
	assert.Contains(t, got["slow"].Error, context.DeadlineExceeded.Error())
}

func TestDispatch_FallbackCases(t *testing.T) {
	t.Parallel()

	got := New(time.Second).Dispatch(context.Background(), testScenario("err", "empty", "missing", "panics"), map[string]Responder{
		"err":   fail(errors.New("exit status 1")),
		"empty": answer("   \n"),
		"panics": ResponderFunc(func(context.Context, model.Scenario) (string, error) {
			panic("boom")
		}),
	})

	require.Len(t, got, 4)
	for id, rec := range got {
		assert.True(t, rec.IsFallback(), id)
		assert.Equal(t, id, rec.AgentID)
		assert.Equal(t, "scn-1", rec.ScenarioID)
		assert.NotEmpty(t, rec.Content, id)
	}
	assert.Equal(t, ErrEmptyResponse.Error(), got["empty"].Error)
	assert.Equal(t, ErrNoResponder.Error(), got["missing"].Error)
	assert.Contains(t, got["panics"].Error, "boom")
}

func TestDispatch_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking := ResponderFunc(func(ctx context.Context, _ model.Scenario) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	got := New(time.Minute).Dispatch(ctx, testScenario("a", "b"), map[string]Responder{"a": blocking, "b": blocking})

	require.Len(t, got, 2)
	assert.True(t, got["a"].IsFallback())
	assert.True(t, got["b"].IsFallback())
}

func TestTiers_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	tiers := Tiers{
		{Name: "gemini", Responder: fail(errors.New("quota"))},
		{Name: "exec", Responder: answer("")},
		{Name: "static", Responder: answer("checklist")},
		{Name: "never", Responder: fail(errors.New("must not be called"))},
	}

	got := New(time.Second).Dispatch(context.Background(), testScenario("guardian"), map[string]Responder{"guardian": tiers})

	assert.Equal(t, "checklist", got["guardian"].Content)
	assert.Equal(t, "static", got["guardian"].ResponseMethod)
}

func TestTiers_AllFail(t *testing.T) {
	t.Parallel()

	_, _, err := Tiers{
		{Name: "a", Responder: fail(errors.New("down"))},
		{Name: "b", Responder: answer(" ")},
	}.RespondMethod(context.Background(), testScenario())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Contains(t, err.Error(), "tier a: down")
}

func TestFallbackResponse_Deterministic(t *testing.T) {
	t.Parallel()

	s := testScenario()
	assert.Equal(t, FallbackResponse("guardian", s), FallbackResponse("guardian", s))
	assert.Contains(t, FallbackResponse("guardian", s), "security challenges")

	other := s
	other.Domain = model.DomainCreative
	assert.NotEqual(t, FallbackResponse("guardian", s), FallbackResponse("guardian", other))
}
