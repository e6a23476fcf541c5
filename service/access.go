package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/meikuraledutech/topology/auth"
)

// AccessResult answers whether a token grants access to a topology.
type AccessResult struct {
	TopologyID string `json:"topology_id"`
	Allowed    bool   `json:"allowed"`
	Subject    string `json:"subject,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// AuthEnabled reports whether a JWT secret is configured.
func (s *Service) AuthEnabled() bool {
	return s.verifier != nil
}

// Authenticate verifies a bearer token.
func (s *Service) Authenticate(token string) (auth.Principal, error) {
	if s.verifier == nil {
		return auth.Principal{}, auth.ErrNoSecret
	}
	return s.verifier.Verify(token)
}

// VerifyAccess checks token against topologyID. Bad tokens produce a denied
// result rather than an error; only a missing secret is an error.
func (s *Service) VerifyAccess(ctx context.Context, token, topologyID string) (*AccessResult, error) {
	res := &AccessResult{TopologyID: topologyID}
	p, err := s.Authenticate(token)
	switch {
	case errors.Is(err, auth.ErrNoSecret):
		return nil, err
	case err != nil:
		res.Reason = err.Error()
		return res, nil
	}
	res.Subject = p.Subject
	res.Allowed = p.CanAccess(topologyID)
	if !res.Allowed {
		res.Reason = fmt.Sprintf("%s has no grant for topology %s", p.Subject, topologyID)
	}
	s.log.Debug("access verified", "topology", topologyID, "subject", p.Subject, "allowed", res.Allowed)
	return res, nil
}

// Authorize enforces the principal carried by ctx, if any, on topologyID.
func Authorize(ctx context.Context, topologyID string) error {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return nil
	}
	if !p.CanAccess(topologyID) {
		return fmt.Errorf("%w: %s cannot access %s", auth.ErrForbidden, p.Subject, topologyID)
	}
	return nil
}
