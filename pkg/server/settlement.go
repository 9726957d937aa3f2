package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vctt94/pokerreferee/pkg/contract"
)

// Ledger reasons.
const (
	reasonBuyIn    = "buyin"
	reasonRefund   = "refund"
	reasonPayout   = "payout"
	reasonPenalty  = "penalty"
	reasonRollback = "rollback"
)

// addToAccountBalance applies delta to the account funding pid's seat and
// mirrors the new balance onto the player's account snapshot.
func (s *Server) addToAccountBalance(ctx context.Context, c *contract.Contract, pid string,
	delta contract.Amount, reason string) error {

	p, err := c.Player(pid)
	if err != nil {
		return err
	}
	if p.Account == nil {
		return fmt.Errorf("%w: %s has no funding account", ErrAccountNotFound, pid)
	}
	acct, err := s.db.UpdateAccountBalance(ctx, p.Account.Address, delta, reason, c.ContractID)
	if err != nil {
		return err
	}
	p.Account.Balance = acct.Balance
	s.setlLog.Debugf("%s %s on %s for %s, account balance %s", reason, delta, c.ContractID, pid, acct.Balance)
	return nil
}

// deposit moves the buy-in of pid from its account into escrow. On failure
// the escrow is left at zero.
func (s *Server) deposit(ctx context.Context, c *contract.Contract, pid string) error {
	p, err := c.Player(pid)
	if err != nil {
		return err
	}
	buyIn := c.Table.TableInfo.BuyIn
	return newSaga(s.setlLog).
		add("debit account",
			func(ctx context.Context) error {
				return s.addToAccountBalance(ctx, c, pid, buyIn.Neg(), reasonBuyIn)
			},
			func(ctx context.Context) error {
				return s.addToAccountBalance(ctx, c, pid, buyIn, reasonRollback)
			}).
		add("credit escrow",
			func(context.Context) error {
				p.Balance = buyIn
				return nil
			},
			func(context.Context) error {
				p.Balance = contract.NewAmount(0)
				return nil
			}).
		run(ctx)
}

func reasonFor(mode string) string {
	switch mode {
	case contract.ModePayout:
		return reasonPayout
	case contract.ModeTimeout:
		return reasonPenalty
	}
	return reasonRefund
}

// applySettlement credits every account named by rep. All credits are
// attempted; the failures are returned together.
func (s *Server) applySettlement(ctx context.Context, c *contract.Contract, rep *contract.SettlementReport) error {
	var errs []error
	for _, t := range rep.Credits() {
		if err := s.addToAccountBalance(ctx, c, t.PrivateID, t.Amount, reasonFor(rep.Mode)); err != nil {
			s.setlLog.Errorf("Failed to credit %s to %s on %s: %v", t.Amount, t.PrivateID, c.ContractID, err)
			errs = append(errs, fmt.Errorf("credit %s: %w", t.PrivateID, err))
		}
	}
	if rep.Remainder.Sign() > 0 {
		s.setlLog.Infof("Contract %s %s settlement left %s undistributed", c.ContractID, rep.Mode, rep.Remainder)
	}
	return errors.Join(errs...)
}

// cancelContract refunds every escrow and terminates c. Refund failures are
// logged and not retried.
func (s *Server) cancelContract(ctx context.Context, c *contract.Contract) *contract.SettlementReport {
	rep := c.PlanCancel()
	if err := s.applySettlement(ctx, c, rep); err != nil {
		s.setlLog.Warnf("Cancel of contract %s did not refund everyone: %v", c.ContractID, err)
	}
	c.Penalty = rep
	c.Invalid = true
	return rep
}
