package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/poker"
)

func requireActive(c *contract.Contract) error {
	if c.Invalid {
		return errDisallowed(contract.ErrContractInvalid, "contract %s", c.ContractID)
	}
	return nil
}

func requireSeat(c *contract.Contract, pid string) (*contract.Player, error) {
	p, err := c.Player(pid)
	if err != nil {
		return nil, errDisallowed(err, "contract %s", c.ContractID)
	}
	return p, nil
}

func requireAllAgreed(c *contract.Contract) error {
	if !c.AllAgreed() {
		return errDisallowed(nil, "contract %s is waiting for players to agree", c.ContractID)
	}
	return nil
}

func accountSnapshot(acct *Account) *contract.Account {
	return &contract.Account{
		Address: acct.Address,
		Type:    acct.Type,
		Network: acct.Network,
		Balance: acct.Balance,
	}
}

func (s *Server) lookupAccount(ctx context.Context, creds AccountCredentials) (*Account, error) {
	acct, err := s.db.GetAccount(ctx, AccountQuery{
		Address:  creds.Address,
		Type:     creds.Type,
		Network:  creds.Network,
		Password: creds.Password,
	}, true)
	if err != nil {
		return nil, errDisallowed(err, "account %s", creds.Address)
	}
	return acct, nil
}

// handleNew creates a contract owned by pid and deposits the owner's buy-in.
func (s *Server) handleNew(ctx context.Context, pid string, req *NewContractRequest) (*Result, error) {
	c := req.Contract
	if err := contract.ValidateNew(c, pid); err != nil {
		return nil, errInvalidParams(err, "invalid contract")
	}
	acct, err := s.lookupAccount(ctx, req.Account)
	if err != nil {
		return nil, err
	}

	c.Reset(pid, contract.Currency{Type: acct.Type, Network: acct.Network}, s.cfg.Now())
	ref := ContractRef{OwnerPID: pid, ContractID: c.ContractID}

	var res *Result
	err = s.contracts.Create(c, s.cfg.MaxOpenContracts, func(c *contract.Contract) error {
		owner, err := requireSeat(c, pid)
		if err != nil {
			return err
		}
		owner.Account = accountSnapshot(acct)
		defer s.saveContractAsync(ref, ActionNew)

		if err := s.deposit(ctx, c, pid); err != nil {
			owner.Balance = contract.NewAmount(0)
			s.sendContractMessage(NotifyNewFail, c, pid, errorPayload(err))
			s.cancelContract(ctx, c)
			return errDisallowed(err, "buy-in deposit failed")
		}
		owner.Agreed = true
		c.UpdatePlayersTimeout(pid, s.cfg.Now())
		c.History.AddDeck(pid, poker.Mappings(c.CardDecks.Faceup))

		s.ctrcLog.Infof("Contract %s created by %s with %d seats, buy-in %s %s/%s",
			c.ContractID, pid, len(c.Players), c.Table.TableInfo.BuyIn, acct.Type, acct.Network)
		s.sendContractMessage(NotifyNew, c, pid, nil)
		res = &Result{Action: ActionNew, Contract: s.snapshot(c)}
		return nil
	})
	if errors.Is(err, ErrContractExists) || errors.Is(err, ErrContractLimit) {
		return nil, errDisallowed(err, "new")
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// handleAgree seats pid's account on a contract and deposits the buy-in.
func (s *Server) handleAgree(ctx context.Context, pid string, req *AgreeRequest) (*Result, error) {
	var res *Result
	err := s.withContract(req.ContractRef, func(c *contract.Contract) error {
		if err := requireActive(c); err != nil {
			return err
		}
		p, err := requireSeat(c, pid)
		if err != nil {
			return err
		}
		if p.Agreed || p.Balance.Sign() > 0 {
			return errDisallowed(nil, "%s already agreed to contract %s", pid, c.ContractID)
		}
		acct, err := s.lookupAccount(ctx, req.Account)
		if err != nil {
			return err
		}
		defer s.saveContractAsync(req.ContractRef, ActionAgree)

		cur := c.Table.TableInfo.Currency
		if acct.Type != cur.Type || acct.Network != cur.Network {
			err := fmt.Errorf("account currency %s/%s does not match contract currency %s/%s",
				acct.Type, acct.Network, cur.Type, cur.Network)
			s.sendContractMessage(NotifyAgreeFail, c, pid, errorPayload(err))
			return errDisallowed(err, "agree")
		}

		p.Account = accountSnapshot(acct)
		if err := s.deposit(ctx, c, pid); err != nil {
			p.Balance = contract.NewAmount(0)
			s.sendContractMessage(NotifyAgreeFail, c, pid, errorPayload(err))
			s.cancelContract(ctx, c)
			return errDisallowed(err, "buy-in deposit failed")
		}
		p.Agreed = true
		c.UpdatePlayersTimeout(pid, s.cfg.Now())

		s.ctrcLog.Infof("Player %s agreed to contract %s", pid, c.ContractID)
		s.sendContractMessage(NotifyAgree, c, pid, nil)
		res = &Result{Action: ActionAgree, Contract: s.snapshot(c)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// handleBet applies a bet, call, check or fold by pid.
func (s *Server) handleBet(ctx context.Context, pid string, req *BetRequest) (*Result, error) {
	var res *Result
	err := s.withContract(req.ContractRef, func(c *contract.Contract) error {
		if err := requireActive(c); err != nil {
			return err
		}
		p, err := requireSeat(c, pid)
		if err != nil {
			return err
		}
		if err := requireAllAgreed(c); err != nil {
			return err
		}
		if p.Account == nil {
			return errDisallowed(ErrAccountNotFound, "bet")
		}

		br, err := c.ApplyBet(pid, req.Amount)
		if err != nil {
			return errDisallowed(err, "bet")
		}
		c.UpdatePlayersTimeout(pid, s.cfg.Now())
		s.saveContractAsync(req.ContractRef, ActionBet)

		s.ctrcLog.Debugf("Contract %s: %s %s %s, pot %s, next %q, done %v",
			c.ContractID, pid, br.Kind, br.Amount, c.Pot, br.NextPID, br.BettingDone)
		s.sendContractMessage(NotifyBet, c, pid, map[string]interface{}{
			"kind":        br.Kind,
			"amount":      br.Amount,
			"newRound":    br.NewRound,
			"nextPID":     br.NextPID,
			"bettingDone": br.BettingDone,
		})
		res = &Result{Action: ActionBet, Contract: s.snapshot(c), Bet: br}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// handleTimeout penalizes the players that stopped acting. The server runs
// it with asServer set, skipping the seat check.
func (s *Server) handleTimeout(ctx context.Context, pid string, ref ContractRef, asServer bool) (*Result, error) {
	var res *Result
	err := s.withContract(ref, func(c *contract.Contract) error {
		if err := requireActive(c); err != nil {
			return err
		}
		if !asServer {
			if _, err := requireSeat(c, pid); err != nil {
				return err
			}
		}

		res = &Result{Action: ActionTimeout}
		timedOut := c.TimedOutPlayers(s.cfg.Now(), s.cfg.DefaultTimeout)
		if len(timedOut) == 0 {
			res.Contract = s.snapshot(c)
			return nil
		}
		res.TimedOut = timedOut
		defer s.saveContractAsync(ref, ActionTimeout)

		s.ctrcLog.Infof("Contract %s: players %v timed out", c.ContractID, timedOut)
		rep, err := c.PlanPenalty(contract.ModeTimeout, timedOut)
		if err != nil {
			s.setlLog.Errorf("Contract %s: no timeout penalty applied: %v", c.ContractID, err)
		} else {
			if err := s.applySettlement(ctx, c, rep); err != nil {
				s.setlLog.Errorf("Contract %s: timeout penalty partially applied: %v", c.ContractID, err)
			}
			c.Penalty = rep
			res.Settlement = rep
		}
		c.Invalid = true

		s.sendContractMessage(NotifyTimeout, c, pid, timestampPayload(s.cfg.Now(), map[string]interface{}{
			"timedOut": timedOut,
			"penalty":  rep,
		}))
		res.Contract = s.snapshot(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
