package service

import (
	"context"

	"bepay-gateway/internal/core/domain"
)

// SimulatedAuthorizer stands in for a card network and approves every
// structurally valid charge.
type SimulatedAuthorizer struct{}

// NewSimulatedAuthorizer creates the always-approve authorizer.
func NewSimulatedAuthorizer() *SimulatedAuthorizer {
	return &SimulatedAuthorizer{}
}

func (SimulatedAuthorizer) Authorize(ctx context.Context, _ *domain.Transaction) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}
