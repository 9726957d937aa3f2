package server

import (
	"context"
	"math/big"

	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/poker"
	"github.com/vctt94/pokerreferee/pkg/sra"
)

// handleStore records one step of the card protocol. The last keychain
// settles the contract.
func (s *Server) handleStore(ctx context.Context, pid string, req *StoreRequest) (*Result, error) {
	var res *Result
	err := s.withContract(req.ContractRef, func(c *contract.Contract) error {
		if err := requireActive(c); err != nil {
			return err
		}
		if _, err := requireSeat(c, pid); err != nil {
			return err
		}
		if err := requireAllAgreed(c); err != nil {
			return err
		}
		prime, err := sra.ParsePrime(c.Prime)
		if err != nil {
			return errInternal(err, "contract %s prime", c.ContractID)
		}

		switch req.Type {
		case StoreEncrypt:
			err = storeEncrypt(c, pid, req.Cards, prime)
		case StoreSelect:
			private := req.Private != nil && *req.Private
			err = storeSelect(c, pid, req.Cards, private, prime)
		case StoreDecrypt:
			err = storeDecrypt(c, pid, req.SourcePID, req.Cards, prime)
		case StoreKeychain:
			err = storeKeychain(c, pid, req.Keychain, prime)
		default:
			err = errInvalidParams(nil, "unknown store type %q", req.Type)
		}
		if err != nil {
			return err
		}
		defer s.saveContractAsync(req.ContractRef, string(req.Type))

		s.applyDeckEcho(c, req.CardDecks)
		c.UpdatePlayersTimeout(pid, s.cfg.Now())
		s.ctrcLog.Debugf("Contract %s: %s stored %s", c.ContractID, pid, req.Type)
		s.sendContractMessage(storeNotifications[req.Type], c, pid, map[string]interface{}{
			"storeType": req.Type,
		})

		res = &Result{Action: ActionStore}
		if req.Type == StoreKeychain && c.History.KeychainsComplete(c.Seats()) {
			rep, err := s.finishContract(ctx, c, pid)
			if err != nil {
				return err
			}
			res.Settlement = rep
		}
		res.Contract = s.snapshot(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// canonicalCards normalizes submitted card values and checks they are in
// range for prime.
func canonicalCards(cards []string, prime *big.Int) ([]string, error) {
	out := make([]string, len(cards))
	for i, v := range cards {
		n, err := sra.ParseValue(v, prime)
		if err != nil {
			return nil, errInvalidParams(err, "card %d", i)
		}
		out[i] = n.String()
	}
	return out, nil
}

func storeEncrypt(c *contract.Contract, pid string, cards []string, prime *big.Int) error {
	h := &c.History
	if h.EncryptStages(pid) > 0 {
		return errDisallowed(nil, "%s already encrypted the deck", pid)
	}
	if len(h.Deck)-1 >= len(c.Players) {
		return errDisallowed(nil, "deck is fully encrypted")
	}
	cards, err := canonicalCards(cards, prime)
	if err != nil {
		return err
	}
	if len(cards) != len(c.CardDecks.Facedown) {
		return errInvalidParams(nil, "encrypt: %d cards, deck has %d", len(cards), len(c.CardDecks.Facedown))
	}
	if poker.HasDuplicates(cards) {
		return errInvalidParams(nil, "encrypt: duplicate cards")
	}
	h.AddDeck(pid, cards)
	c.CardDecks.Facedown = cards
	return nil
}

func storeSelect(c *contract.Contract, pid string, cards []string, private bool, prime *big.Int) error {
	if len(c.History.Deck)-1 < len(c.Players) {
		return errDisallowed(nil, "deck is not fully encrypted")
	}
	cards, err := canonicalCards(cards, prime)
	if err != nil {
		return err
	}
	rest, err := poker.RemoveCards(c.CardDecks.Facedown, cards)
	if err != nil {
		return errDisallowed(err, "select")
	}
	c.History.AddDeal(pid, contract.Deal{
		FromPID: pid,
		Type:    contract.DealSelect,
		Private: private,
		Cards:   cards,
	})
	c.CardDecks.Facedown = rest
	return nil
}

func storeDecrypt(c *contract.Contract, pid, sourcePID string, cards []string, prime *big.Int) error {
	if sourcePID == pid {
		return errDisallowed(nil, "decrypt: %s cannot decrypt their own selection", pid)
	}
	if _, err := requireSeat(c, sourcePID); err != nil {
		return err
	}
	if !c.History.HasSelect(sourcePID) {
		return errDisallowed(nil, "decrypt: %s has not selected any cards", sourcePID)
	}
	cards, err := canonicalCards(cards, prime)
	if err != nil {
		return err
	}

	// A decrypt inherits the visibility of the lineage it continues.
	private := false
	deals := c.History.Deals[sourcePID]
	for i := len(deals) - 1; i >= 0; i-- {
		if deals[i].Type == contract.DealSelect {
			private = deals[i].Private
			break
		}
	}
	c.History.AddDeal(sourcePID, contract.Deal{
		FromPID: pid,
		Type:    contract.DealDecrypt,
		Private: private,
		Cards:   cards,
	})
	return nil
}

func storeKeychain(c *contract.Contract, pid string, kc sra.Keychain, prime *big.Int) error {
	if c.History.HasKeychain(pid) {
		return errDisallowed(contract.ErrKeychainExists, "keychain")
	}
	keys, err := kc.Parse()
	if err != nil {
		return errInvalidParams(err, "keychain")
	}
	for i, k := range keys {
		if k.Prime().Cmp(prime) != 0 {
			return errInvalidParams(nil, "keychain: keypair %d uses a different prime", i)
		}
	}
	if err := c.History.SetKeychain(pid, kc); err != nil {
		return errDisallowed(err, "keychain")
	}
	return nil
}

// applyDeckEcho stores the client bookkeeping decks. The faceup deck is
// fixed at creation.
func (s *Server) applyDeckEcho(c *contract.Contract, decks *contract.CardDecks) {
	if decks == nil {
		return
	}
	if decks.Dealt != nil {
		c.CardDecks.Dealt = decks.Dealt
	}
	if decks.Public != nil {
		c.CardDecks.Public = decks.Public
	}
	if len(decks.Faceup) > 0 &&
		!poker.CompareDecks(poker.Mappings(decks.Faceup), poker.Mappings(c.CardDecks.Faceup)) {
		s.ctrcLog.Warnf("Contract %s: ignoring submitted faceup deck that differs from the agreed one",
			c.ContractID)
	}
}
