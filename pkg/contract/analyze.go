package contract

import (
	"sort"

	"github.com/vctt94/pokerreferee/pkg/poker"
	"github.com/vctt94/pokerreferee/pkg/sra"
)

// analyzer holds the working state of one history replay.
type analyzer struct {
	c         *Contract
	seats     []string
	keys      map[string][]*sra.Key
	faceup    map[string]poker.Card
	available []string // encrypted values not yet selected
	revealed  map[string]string
	result    *Analysis
}

// AnalyzeCards replays the history of a contract whose keychains are all
// present and returns the cards every lineage revealed. Failures are
// returned as *VerificationError.
func AnalyzeCards(c *Contract) (*Analysis, error) {
	a := &analyzer{
		c:        c,
		seats:    c.Seats(),
		keys:     make(map[string][]*sra.Key, len(c.Players)),
		faceup:   c.FaceupIndex(),
		revealed: make(map[string]string),
		result: &Analysis{
			Private: make(map[string][]poker.Card),
		},
	}
	if err := a.parseKeychains(); err != nil {
		return nil, err
	}
	if err := a.verifyDeck(); err != nil {
		return nil, err
	}
	if err := a.verifyDeals(); err != nil {
		return nil, err
	}
	return a.result, nil
}

func (a *analyzer) parseKeychains() error {
	prime, err := sra.ParsePrime(a.c.Prime)
	if err != nil {
		return verifyErr(CodeStructure, nil, "contract prime: %v", err)
	}
	for _, pid := range a.seats {
		kc, ok := a.c.History.Keychains[pid]
		if !ok {
			return verifyErr(CodeStructure, []string{pid}, "missing keychain")
		}
		keys, err := kc.Parse()
		if err != nil {
			return verifyErr(CodeCrypto, []string{pid}, "keychain: %v", err)
		}
		for _, k := range keys {
			if k.Prime().Cmp(prime) != 0 {
				return verifyErr(CodeCrypto, []string{pid}, "keychain prime differs from contract prime")
			}
		}
		a.keys[pid] = keys
	}
	return nil
}

// verifyDeck re-encrypts every stage of the shuffle from the previous one.
func (a *analyzer) verifyDeck() error {
	deck := a.c.History.Deck
	if len(deck) == 0 {
		return verifyErr(CodeStructure, nil, "empty deck history")
	}
	if !poker.CompareDecks(deck[0].Cards, poker.Mappings(a.c.CardDecks.Faceup)) {
		return verifyErr(CodeStructure, []string{deck[0].FromPID}, "initial deck is not the faceup mapping set")
	}

	stages := make(map[string]int, len(a.seats))
	for i := 1; i < len(deck); i++ {
		from := deck[i].FromPID
		keys, ok := a.keys[from]
		if !ok {
			return verifyErr(CodeStructure, []string{from}, "stage %d from unseated player", i)
		}
		stages[from]++
		enc, err := sra.EncryptCards(deck[i-1].Cards, keys)
		if err != nil {
			return verifyErr(CodeCrypto, []string{from}, "stage %d: %v", i, err)
		}
		if !poker.CompareDecks(enc, deck[i].Cards) {
			return verifyErr(CodeCrypto, []string{from}, "stage %d does not re-encrypt", i)
		}
	}

	var missing []string
	for _, pid := range a.seats {
		if stages[pid] != 1 {
			missing = append(missing, pid)
		}
	}
	if len(missing) > 0 {
		return verifyErr(CodeStructure, missing, "every player must encrypt the deck exactly once")
	}

	a.available = append([]string(nil), deck[len(deck)-1].Cards...)
	return nil
}

func (a *analyzer) verifyDeals() error {
	ordered, unplaced := FixDealsOrder(a.seats, a.c.History.Deals)
	if len(unplaced) > 0 {
		var blamed []string
		for _, deals := range unplaced {
			for _, d := range deals {
				blamed = append(blamed, d.FromPID)
			}
		}
		return verifyErr(CodeStructure, uniqueSorted(blamed), "deal entries outside any lineage")
	}

	for _, src := range a.seats {
		if err := a.verifyLineages(src, ordered[src]); err != nil {
			return err
		}
	}
	return nil
}

// verifyLineages walks the canonical deal list of src pair by pair.
func (a *analyzer) verifyLineages(src string, deals []Deal) error {
	order := DecryptOrder(a.seats, src)
	var (
		sel *Deal // selection that opened the current lineage
		pos int   // decrypts seen in the current lineage
	)
	for i := range deals {
		cur := &deals[i]
		var prev *Deal
		if i > 0 {
			prev = &deals[i-1]
		}
		last := i == len(deals)-1

		switch cur.Type {
		case DealSelect:
			if prev != nil && prev.Type == DealSelect {
				return verifyErr(CodeStructure, []string{order[0]}, "selection by %s was never decrypted", src)
			}
			remaining, err := poker.RemoveCards(a.available, cur.Cards)
			if err != nil {
				return verifyErr(CodeStructure, []string{src}, "selection: %v", err)
			}
			a.available = remaining
			sel, pos = cur, 0
			if last {
				return verifyErr(CodeStructure, []string{order[0]}, "selection by %s was never decrypted", src)
			}

		case DealDecrypt:
			if sel == nil {
				return verifyErr(CodeStructure, []string{cur.FromPID}, "decrypt before any selection")
			}
			if pos >= len(order) {
				return verifyErr(CodeStructure, []string{cur.FromPID}, "extra decrypt for %s", src)
			}
			if cur.FromPID != order[pos] {
				return verifyErr(CodeStructure, []string{order[pos]}, "missing decrypt for %s", src)
			}
			dec, err := sra.DecryptCards(prev.Cards, a.keys[cur.FromPID])
			if err != nil {
				return verifyErr(CodeCrypto, []string{cur.FromPID}, "decrypt: %v", err)
			}
			if !poker.CompareDecks(dec, cur.Cards) {
				return verifyErr(CodeCrypto, []string{cur.FromPID}, "decrypt does not match the previous step")
			}
			pos++

			if last || deals[i+1].Type == DealSelect {
				if pos != len(order) {
					return verifyErr(CodeStructure, []string{order[pos]}, "missing decrypt for %s", src)
				}
				if err := a.reveal(src, sel.Private, cur.Cards); err != nil {
					return err
				}
				sel = nil
			}

		default:
			return verifyErr(CodeStructure, []string{cur.FromPID}, "unknown deal type %q", cur.Type)
		}
	}
	return nil
}

// reveal applies the source's own keychain to the end of a lineage and maps
// the plaintext to faceup cards.
func (a *analyzer) reveal(src string, private bool, cards []string) error {
	plain, err := sra.DecryptCards(cards, a.keys[src])
	if err != nil {
		return verifyErr(CodeCrypto, []string{src}, "final decrypt: %v", err)
	}
	for _, v := range plain {
		card, ok := a.faceup[v]
		if !ok {
			return verifyErr(CodeStructure, []string{src}, "value does not map to a faceup card")
		}
		if holder, dup := a.revealed[v]; dup {
			return verifyErr(CodeStructure, uniqueSorted([]string{holder, src}), "card %s revealed twice", card)
		}
		a.revealed[v] = src
		if private {
			a.result.Private[src] = append(a.result.Private[src], card)
		} else {
			a.result.Public = append(a.result.Public, card)
		}
	}
	return nil
}

func uniqueSorted(pids []string) []string {
	seen := make(map[string]bool, len(pids))
	out := make([]string, 0, len(pids))
	for _, pid := range pids {
		if !seen[pid] {
			seen[pid] = true
			out = append(out, pid)
		}
	}
	sort.Strings(out)
	return out
}
