package contract

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vctt94/pokerreferee/pkg/poker"
	"github.com/vctt94/pokerreferee/pkg/sra"
	"github.com/zeebo/blake3"
)

// DealType distinguishes the entries of a deal lineage.
type DealType string

const (
	DealSelect  DealType = "select"
	DealDecrypt DealType = "decrypt"
)

// DeckStage is one round of the shuffle: the whole deck as it stood after
// FromPID's encryption. Stage 0 is the plaintext mapping set.
type DeckStage struct {
	FromPID string   `json:"fromPID"`
	Cards   []string `json:"cards"`
}

// Deal is one step of a deal lineage.
type Deal struct {
	FromPID string   `json:"fromPID"`
	Type    DealType `json:"type"`
	Private bool     `json:"private"`
	Cards   []string `json:"cards"`
}

// Analysis is the outcome of replaying a completed history.
type Analysis struct {
	Private        map[string][]poker.Card    `json:"private"`
	Public         []poker.Card               `json:"public"`
	Hands          map[string]poker.HandValue `json:"hands,omitempty"`
	WinningPlayers []string                   `json:"winningPlayers,omitempty"`
	WinningHands   []poker.HandValue          `json:"winningHands,omitempty"`
	Error          *VerificationError         `json:"error,omitempty"`
	Complete       bool                       `json:"complete"`
	Digest         string                     `json:"digest,omitempty"`
}

// History is the append-only protocol log of a contract.
//
// Deals is keyed by the player that started the lineage. Entries are kept in
// arrival order; FixDealsOrder derives the canonical order.
type History struct {
	Deck      []DeckStage             `json:"deck"`
	Deals     map[string][]Deal       `json:"deals"`
	Keychains map[string]sra.Keychain `json:"keychains"`
	Analysis  *Analysis               `json:"analysis,omitempty"`
}

// NewHistory returns an empty history.
func NewHistory() History {
	return History{
		Deals:     make(map[string][]Deal),
		Keychains: make(map[string]sra.Keychain),
	}
}

func (h *History) init() {
	if h.Deals == nil {
		h.Deals = make(map[string][]Deal)
	}
	if h.Keychains == nil {
		h.Keychains = make(map[string]sra.Keychain)
	}
}

// AddDeck appends an encryption stage.
func (h *History) AddDeck(fromPID string, cards []string) {
	h.Deck = append(h.Deck, DeckStage{FromPID: fromPID, Cards: append([]string(nil), cards...)})
}

// EncryptStages returns how many stages pid has contributed, not counting
// the plaintext stage.
func (h *History) EncryptStages(pid string) int {
	n := 0
	for i, st := range h.Deck {
		if i > 0 && st.FromPID == pid {
			n++
		}
	}
	return n
}

// AddDeal appends d to the lineage list of sourcePID.
func (h *History) AddDeal(sourcePID string, d Deal) {
	h.init()
	d.Cards = append([]string(nil), d.Cards...)
	h.Deals[sourcePID] = append(h.Deals[sourcePID], d)
}

// HasSelect reports whether pid has started at least one lineage.
func (h *History) HasSelect(pid string) bool {
	for _, d := range h.Deals[pid] {
		if d.Type == DealSelect && d.FromPID == pid {
			return true
		}
	}
	return false
}

// HasPublicSelect reports whether any public card has been selected.
func (h *History) HasPublicSelect() bool {
	for _, deals := range h.Deals {
		for _, d := range deals {
			if d.Type == DealSelect && !d.Private {
				return true
			}
		}
	}
	return false
}

// SetKeychain records pid's keychain. Keychains are write-once.
func (h *History) SetKeychain(pid string, kc sra.Keychain) error {
	h.init()
	if _, ok := h.Keychains[pid]; ok {
		return fmt.Errorf("%w: %s", ErrKeychainExists, pid)
	}
	h.Keychains[pid] = append(sra.Keychain(nil), kc...)
	return nil
}

// HasKeychain reports whether pid has revealed their keychain.
func (h *History) HasKeychain(pid string) bool {
	_, ok := h.Keychains[pid]
	return ok
}

// KeychainsComplete reports whether every pid in seats has a keychain.
func (h *History) KeychainsComplete(seats []string) bool {
	for _, pid := range seats {
		if !h.HasKeychain(pid) {
			return false
		}
	}
	return true
}

// Digest returns a blake3 fingerprint of the recorded protocol entries.
func (h *History) Digest() (string, error) {
	b, err := json.Marshal(struct {
		Deck      []DeckStage             `json:"deck"`
		Deals     map[string][]Deal       `json:"deals"`
		Keychains map[string]sra.Keychain `json:"keychains"`
	}{h.Deck, h.Deals, h.Keychains})
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// NextDealAction returns the index in deals of the n-th (0 based) entry of
// type typ submitted by fromPID, or -1.
func NextDealAction(deals []Deal, fromPID string, typ DealType, n int) int {
	seen := 0
	for i, d := range deals {
		if d.FromPID != fromPID || d.Type != typ {
			continue
		}
		if seen == n {
			return i
		}
		seen++
	}
	return -1
}

// DecryptOrder returns the players that decrypt a lineage started by source:
// every other seat, round robin from the seat after source.
func DecryptOrder(seats []string, source string) []string {
	start := -1
	for i, pid := range seats {
		if pid == source {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	order := make([]string, 0, len(seats)-1)
	for i := 1; i < len(seats); i++ {
		order = append(order, seats[(start+i)%len(seats)])
	}
	return order
}

// FixDealsOrder rebuilds every lineage list in canonical order. For each
// source, its k-th selection is followed by the k-th decrypt of each other
// seat in DecryptOrder. Missing decrypts are skipped; entries that cannot be
// placed at all are returned in unplaced, keyed by source.
func FixDealsOrder(seats []string, deals map[string][]Deal) (ordered, unplaced map[string][]Deal) {
	ordered = make(map[string][]Deal, len(deals))
	unplaced = make(map[string][]Deal)

	sources := make([]string, 0, len(deals))
	for src := range deals {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	for _, src := range sources {
		raw := deals[src]
		order := DecryptOrder(seats, src)
		if order == nil {
			unplaced[src] = append(unplaced[src], raw...)
			continue
		}

		placed := make([]bool, len(raw))
		var out []Deal
		for k := 0; ; k++ {
			sel := NextDealAction(raw, src, DealSelect, k)
			if sel < 0 {
				break
			}
			out = append(out, raw[sel])
			placed[sel] = true
			for _, pid := range order {
				i := NextDealAction(raw, pid, DealDecrypt, k)
				if i < 0 {
					continue
				}
				out = append(out, raw[i])
				placed[i] = true
			}
		}
		if len(out) > 0 {
			ordered[src] = out
		}
		for i, d := range raw {
			if !placed[i] {
				unplaced[src] = append(unplaced[src], d)
			}
		}
	}
	return ordered, unplaced
}
