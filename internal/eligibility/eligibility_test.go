package eligibility

import (
	"context"
	"errors"
	"testing"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDeniesUnknownContext(t *testing.T) {
	r := NewRouter().Register(conversation.ContextJob, AllowAll())

	decision, err := r.Check(context.Background(), conversation.ContextBusiness, "b1", uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "business")
}

func TestRouterDispatchesByContext(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	var gotRef string
	r := NewRouter().
		Register(conversation.ContextJob, AllowAll()).
		Register(conversation.ContextMatrimonial, CheckerFunc(func(_ context.Context, ref string, x, y uuid.UUID) (services.EligibilityDecision, error) {
			gotRef = ref
			assert.Equal(t, a, x)
			assert.Equal(t, b, y)
			return services.Deny("no mutual interest"), nil
		}))

	decision, err := r.Check(context.Background(), conversation.ContextMatrimonial, "profile-7", a, b)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "no mutual interest", decision.Reason)
	assert.Equal(t, "profile-7", gotRef)

	decision, err = r.Check(context.Background(), conversation.ContextJob, "", a, b)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRouterPropagatesCheckerError(t *testing.T) {
	boom := errors.New("owner module unavailable")
	r := NewRouter().Register(conversation.ContextJob, CheckerFunc(func(context.Context, string, uuid.UUID, uuid.UUID) (services.EligibilityDecision, error) {
		return services.EligibilityDecision{}, boom
	}))

	_, err := r.Check(context.Background(), conversation.ContextJob, "j1", uuid.New(), uuid.New())
	assert.ErrorIs(t, err, boom)
}

func TestPermissiveAllowsKnownContexts(t *testing.T) {
	r := Permissive()
	for _, ct := range []conversation.ContextType{conversation.ContextMatrimonial, conversation.ContextJob, conversation.ContextBusiness} {
		decision, err := r.Check(context.Background(), ct, "", uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.True(t, decision.Allowed, ct)
	}
}
