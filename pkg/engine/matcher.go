package engine

import (
	"crypto/rand"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/darkpool/pkg/resolver"
	"github.com/uhyunpark/darkpool/pkg/util"
)

// Matcher pairs opposing orders within one token pool. Pairing is by
// position after an independent random shuffle of each side, so match order
// carries no information about submission order. The flip side is that there
// is no price-time priority and no price improvement: a priority queue here
// would leak exactly the timing signal the shuffle exists to destroy.
type Matcher struct {
	books *Books
	sides resolver.SideResolver
	clock util.Clock
	log   *zap.SugaredLogger
}

func NewMatcher(books *Books, sides resolver.SideResolver, clock util.Clock, log *zap.SugaredLogger) *Matcher {
	return &Matcher{books: books, sides: sides, clock: clock, log: log}
}

// MatchToken runs one pairing pass over a token's pending pool and returns
// the matches it managed to lock in. Orders whose side does not resolve are
// left pending for a later cycle.
func (m *Matcher) MatchToken(token common.Address) []*Match {
	pending := m.books.Pending(token)

	var buys, sells []*Order
	for _, o := range pending {
		side, err := m.sides.ResolveSide(o.Nullifier, o.EncryptedSide)
		if err != nil {
			m.log.Debugw("side_unresolved", "token", token.Hex(), "order", o.ID)
			continue
		}
		if side == resolver.Buy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}

	shuffleOrders(buys)
	shuffleOrders(sells)

	n := min(len(buys), len(sells))
	matches := make([]*Match, 0, n)
	for i := 0; i < n; i++ {
		match := &Match{
			ID:        uuid.NewString(),
			Token:     token,
			Buy:       buys[i],
			Sell:      sells[i],
			CreatedAt: m.clock.Now(),
		}
		// A cancel may have raced us since the snapshot; skip the pair if
		// either order already left the pending pool.
		if !m.books.MarkMatched(match) {
			continue
		}
		matches = append(matches, match)
	}

	if len(matches) > 0 {
		m.log.Infow("matching_pass",
			"token", token.Hex(),
			"buys", len(buys),
			"sells", len(sells),
			"matches", len(matches))
	}
	return matches
}

// shuffleOrders is a Fisher-Yates shuffle driven by crypto/rand. The shuffle
// is a security control (anti-correlation), not cosmetics, so math/rand is
// not acceptable here.
func shuffleOrders(orders []*Order) {
	for i := len(orders) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			// Entropy exhaustion: leave remaining prefix unshuffled rather
			// than fall back to a predictable source.
			return
		}
		k := int(j.Int64())
		orders[i], orders[k] = orders[k], orders[i]
	}
}
