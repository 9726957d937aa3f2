package server

import (
	"context"
	"errors"

	"github.com/davecgh/go-spew/spew"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/poker"
)

// finishContract verifies the completed history, pays the winners and
// terminates c. A history that fails verification refunds everyone and is
// reported as a player action error.
func (s *Server) finishContract(ctx context.Context, c *contract.Contract, fromPID string) (*contract.SettlementReport, error) {
	digest, err := c.History.Digest()
	if err != nil {
		s.ctrcLog.Warnf("Contract %s: no history digest: %v", c.ContractID, err)
	}

	analysis := &contract.Analysis{Private: make(map[string][]poker.Card)}
	if len(c.ActivePlayers()) > 1 {
		analysis, err = contract.AnalyzeCards(c)
		if err != nil {
			return s.rejectHistory(ctx, c, fromPID, digest, err)
		}
	}
	winners, err := contract.ScoreHands(c, analysis)
	if err != nil {
		return s.rejectHistory(ctx, c, fromPID, digest, err)
	}
	analysis.Complete = true
	analysis.Digest = digest
	c.History.Analysis = analysis

	rep, err := c.PlanPayout(winners)
	if err != nil {
		c.Invalid = true
		return nil, errInternal(err, "payout of contract %s", c.ContractID)
	}
	c.Invalid = true
	if err := s.applySettlement(ctx, c, rep); err != nil {
		return rep, errInternal(err, "payout of contract %s", c.ContractID)
	}

	s.ctrcLog.Infof("Contract %s complete: winners %v, digest %s", c.ContractID, winners, digest)
	s.sendContractMessage(NotifyEnd, c, fromPID, timestampPayload(s.cfg.Now(), map[string]interface{}{
		"winners":    winners,
		"settlement": rep,
		"digest":     digest,
	}))
	return rep, nil
}

// rejectHistory refunds every escrow of a contract whose history did not
// verify. The blamed players are recorded but not penalized.
func (s *Server) rejectHistory(ctx context.Context, c *contract.Contract, fromPID, digest string,
	cause error) (*contract.SettlementReport, error) {

	var verr *contract.VerificationError
	if !errors.As(cause, &verr) {
		verr = &contract.VerificationError{Code: contract.CodeStructure, Message: cause.Error()}
	}
	s.ctrcLog.Warnf("Contract %s failed verification: %v (blamed %v)", c.ContractID, verr, verr.FailedPIDs)
	s.ctrcLog.Debugf("Contract %s deck and deals:\n%s", c.ContractID, spew.Sdump(c.History.Deck, c.History.Deals))

	c.History.Analysis = &contract.Analysis{Error: verr, Digest: digest}
	rep, err := c.PlanPenalty(contract.ModeValidate, nil)
	c.Invalid = true
	if err != nil {
		return nil, errInternal(err, "refund of contract %s", c.ContractID)
	}
	c.Penalty = rep
	if err := s.applySettlement(ctx, c, rep); err != nil {
		return rep, errInternal(err, "refund of contract %s", c.ContractID)
	}

	s.sendContractMessage(NotifyEnd, c, fromPID, timestampPayload(s.cfg.Now(), map[string]interface{}{
		"error": map[string]interface{}{
			"message":    verr.Message,
			"code":       verr.Code,
			"failedPIDs": verr.FailedPIDs,
		},
		"settlement": rep,
		"digest":     digest,
	}))
	return rep, &Error{Code: CodePlayerAction, Message: verr.Error(), Data: verr, Err: verr}
}
