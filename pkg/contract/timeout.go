package contract

import (
	"time"
)

// TimeoutThreshold returns the inactivity limit of the table, falling back
// to def when the table leaves it unset.
func (c *Contract) TimeoutThreshold(def time.Duration) time.Duration {
	if s := c.Table.TableInfo.Timeout; s > 0 {
		return time.Duration(s) * time.Second
	}
	return def
}

// TimedOutPlayers returns, in seating order, the players that have been
// inactive longer than the threshold and share the oldest activity stamp.
// Players that already revealed their keychain owe nothing and never time
// out. Until every seat has agreed only the seats still owing an agreement
// can be blamed.
func (c *Contract) TimedOutPlayers(now time.Time, def time.Duration) []string {
	limit := now.Add(-c.TimeoutThreshold(def)).UnixMilli()
	agreeing := !c.AllAgreed()

	var (
		oldest int64
		out    []string
	)
	for _, p := range c.Players {
		if (agreeing && p.Agreed) || c.History.HasKeychain(p.PrivateID) || p.Updated >= limit {
			continue
		}
		switch {
		case out == nil || p.Updated < oldest:
			oldest, out = p.Updated, []string{p.PrivateID}
		case p.Updated == oldest:
			out = append(out, p.PrivateID)
		}
	}
	return out
}
