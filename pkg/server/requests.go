package server

import (
	"encoding/json"
	"fmt"

	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/sra"
)

// Action names accepted by Dispatch.
const (
	ActionNew     = "new"
	ActionAgree   = "agree"
	ActionStore   = "store"
	ActionBet     = "bet"
	ActionTimeout = "timeout"
)

// StoreType selects the protocol step of a store action.
type StoreType string

const (
	StoreEncrypt  StoreType = "encrypt"
	StoreSelect   StoreType = "select"
	StoreDecrypt  StoreType = "decrypt"
	StoreKeychain StoreType = "keychain"
)

// AccountCredentials identify the external account funding a seat.
type AccountCredentials struct {
	Address  string `json:"address"`
	Type     string `json:"type"`
	Network  string `json:"network"`
	Password string `json:"password"`
}

// Envelope is the wire form of every action.
type Envelope struct {
	ServerToken string `json:"server_token"`
	UserToken   string `json:"user_token"`
	Action      string `json:"action"`

	OwnerPID   string              `json:"ownerPID,omitempty"`
	ContractID string              `json:"contractID,omitempty"`
	Contract   json.RawMessage     `json:"contract,omitempty"`
	Account    *AccountCredentials `json:"account,omitempty"`

	Type      StoreType           `json:"type,omitempty"`
	Cards     []string            `json:"cards,omitempty"`
	SourcePID string              `json:"sourcePID,omitempty"`
	Private   *bool               `json:"private,omitempty"`
	Keychain  sra.Keychain        `json:"keychain,omitempty"`
	CardDecks *contract.CardDecks `json:"cardDecks,omitempty"`

	Amount *contract.Amount `json:"amount,omitempty"`
}

// Request is an envelope decoded into the variant of its action.
type Request interface {
	Action() string
}

// ContractRef addresses a contract in the store.
type ContractRef struct {
	OwnerPID   string
	ContractID string
}

func (r ContractRef) key() string {
	return r.OwnerPID + "/" + r.ContractID
}

type NewContractRequest struct {
	Contract *contract.Contract
	Account  AccountCredentials
}

type AgreeRequest struct {
	ContractRef
	Account AccountCredentials
}

// StoreRequest carries one protocol submission. Cards is used by encrypt,
// select and decrypt; SourcePID by decrypt; Private by select; Keychain by
// keychain. CardDecks optionally echoes the client's dealt and public decks.
type StoreRequest struct {
	ContractRef
	Type      StoreType
	Cards     []string
	SourcePID string
	Private   *bool
	Keychain  sra.Keychain
	CardDecks *contract.CardDecks
}

type BetRequest struct {
	ContractRef
	Amount contract.Amount
}

type TimeoutRequest struct {
	ContractRef
}

func (NewContractRequest) Action() string { return ActionNew }
func (AgreeRequest) Action() string       { return ActionAgree }
func (StoreRequest) Action() string       { return ActionStore }
func (BetRequest) Action() string         { return ActionBet }
func (TimeoutRequest) Action() string     { return ActionTimeout }

// ParseEnvelope decodes a raw action.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errInvalidParams(err, "malformed request")
	}
	return &env, nil
}

func (e *Envelope) ref() (ContractRef, error) {
	if e.OwnerPID == "" {
		return ContractRef{}, errInvalidParams(nil, "missing ownerPID")
	}
	if e.ContractID == "" {
		return ContractRef{}, errInvalidParams(nil, "missing contractID")
	}
	return ContractRef{OwnerPID: e.OwnerPID, ContractID: e.ContractID}, nil
}

func (e *Envelope) account() (AccountCredentials, error) {
	if e.Account == nil || e.Account.Address == "" {
		return AccountCredentials{}, errInvalidParams(nil, "missing account")
	}
	return *e.Account, nil
}

// Request returns the typed request of the envelope's action.
func (e *Envelope) Request() (Request, error) {
	switch e.Action {
	case ActionNew:
		if len(e.Contract) == 0 {
			return nil, errInvalidParams(nil, "missing contract")
		}
		var c contract.Contract
		if err := json.Unmarshal(e.Contract, &c); err != nil {
			return nil, errInvalidParams(err, "malformed contract")
		}
		acct, err := e.account()
		if err != nil {
			return nil, err
		}
		return &NewContractRequest{Contract: &c, Account: acct}, nil

	case ActionAgree:
		ref, err := e.ref()
		if err != nil {
			return nil, err
		}
		acct, err := e.account()
		if err != nil {
			return nil, err
		}
		return &AgreeRequest{ContractRef: ref, Account: acct}, nil

	case ActionStore:
		ref, err := e.ref()
		if err != nil {
			return nil, err
		}
		req := &StoreRequest{
			ContractRef: ref,
			Type:        e.Type,
			Cards:       e.Cards,
			SourcePID:   e.SourcePID,
			Private:     e.Private,
			Keychain:    e.Keychain,
			CardDecks:   e.CardDecks,
		}
		switch e.Type {
		case StoreEncrypt, StoreSelect:
			if len(e.Cards) == 0 {
				return nil, errInvalidParams(nil, "%s: missing cards", e.Type)
			}
		case StoreDecrypt:
			if len(e.Cards) == 0 {
				return nil, errInvalidParams(nil, "decrypt: missing cards")
			}
			if e.SourcePID == "" {
				return nil, errInvalidParams(nil, "decrypt: missing sourcePID")
			}
		case StoreKeychain:
			if len(e.Keychain) == 0 {
				return nil, errInvalidParams(nil, "keychain: missing keychain")
			}
		default:
			return nil, errInvalidParams(nil, "unknown store type %q", e.Type)
		}
		return req, nil

	case ActionBet:
		ref, err := e.ref()
		if err != nil {
			return nil, err
		}
		if e.Amount == nil {
			return nil, errInvalidParams(nil, "bet: missing amount")
		}
		return &BetRequest{ContractRef: ref, Amount: *e.Amount}, nil

	case ActionTimeout:
		ref, err := e.ref()
		if err != nil {
			return nil, err
		}
		return &TimeoutRequest{ContractRef: ref}, nil
	}
	return nil, errInvalidParams(fmt.Errorf("action %q", e.Action), "unknown action")
}
