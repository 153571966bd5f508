// Package eligibility answers whether two parties may open a conversation in
// a given context. Each context is owned by another module; the checkers here
// read that module's tables and never write to them.
package eligibility

import (
	"context"
	"fmt"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/services"

	"github.com/google/uuid"
)

// Checker decides eligibility for one context type.
type Checker interface {
	Check(ctx context.Context, contextRef string, partyA, partyB uuid.UUID) (services.EligibilityDecision, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, contextRef string, partyA, partyB uuid.UUID) (services.EligibilityDecision, error)

func (f CheckerFunc) Check(ctx context.Context, contextRef string, partyA, partyB uuid.UUID) (services.EligibilityDecision, error) {
	return f(ctx, contextRef, partyA, partyB)
}

// Router dispatches to the checker registered for the context type. Unknown
// contexts are denied.
type Router struct {
	checkers map[conversation.ContextType]Checker
}

func NewRouter() *Router {
	return &Router{checkers: make(map[conversation.ContextType]Checker)}
}

func (r *Router) Register(contextType conversation.ContextType, c Checker) *Router {
	r.checkers[contextType] = c
	return r
}

func (r *Router) Check(ctx context.Context, contextType conversation.ContextType, contextRef string, partyA, partyB uuid.UUID) (services.EligibilityDecision, error) {
	c, ok := r.checkers[contextType]
	if !ok {
		return services.Deny(fmt.Sprintf("no eligibility rule for context %q", contextType)), nil
	}
	return c.Check(ctx, contextRef, partyA, partyB)
}

// AllowAll returns a checker that admits every pairing. It backs the memory
// store driver, where the owning modules' tables do not exist.
func AllowAll() Checker {
	return CheckerFunc(func(context.Context, string, uuid.UUID, uuid.UUID) (services.EligibilityDecision, error) {
		return services.Allow(), nil
	})
}

// Permissive builds a router that allows every known context.
func Permissive() *Router {
	r := NewRouter()
	for _, ct := range []conversation.ContextType{conversation.ContextMatrimonial, conversation.ContextJob, conversation.ContextBusiness} {
		r.Register(ct, AllowAll())
	}
	return r
}
