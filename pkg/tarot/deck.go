// Package tarot 提供 78 张塔罗牌的牌组以及随机抽牌。
package tarot

import (
	"fmt"
	"math/rand/v2"

	"tarot-ai-go/internal/model"
)

// ReversedSuffix 追加在逆位牌的名称之后。
const ReversedSuffix = " (reversed)"

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// StdRNG delegates to math/rand/v2 (auto-seeded, process-wide).
type StdRNG struct{}

func (StdRNG) Intn(n int) int { return rand.IntN(n) }

var majorArcana = []string{
	"The Fool (0)",
	"The Magician (I)",
	"The High Priestess (II)",
	"The Empress (III)",
	"The Emperor (IV)",
	"The Hierophant (V)",
	"The Lovers (VI)",
	"The Chariot (VII)",
	"Strength (VIII)",
	"The Hermit (IX)",
	"The Wheel of Fortune (X)",
	"Justice (XI)",
	"The Hanged Man (XII)",
	"Death (XIII)",
	"Temperance (XIV)",
	"The Devil (XV)",
	"The Tower (XVI)",
	"The Star (XVII)",
	"The Moon (XVIII)",
	"The Sun (XIX)",
	"Judgment (XX)",
	"The World (XXI)",
}

var suits = []string{"Wands", "Pentacles", "Swords", "Cups"}

var ranks = []string{"Ace", "2", "3", "4", "5", "6", "7", "8", "9", "10", "Page", "Knight", "Queen", "King"}

// deck 按大阿卡纳、权杖、星币、宝剑、圣杯的顺序排列。
var deck = buildDeck()

func buildDeck() []string {
	cards := make([]string, 0, len(majorArcana)+len(suits)*len(ranks))
	cards = append(cards, majorArcana...)
	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, rank+" of "+suit)
		}
	}
	return cards
}

// Size 是牌组中的牌数。
func Size() int { return len(deck) }

// Cards 返回牌组的副本。
func Cards() []string {
	out := make([]string, len(deck))
	copy(out, deck)
	return out
}

// Draw 从牌组中随机抽取 count 张牌。
// 无放回时返回互不相同的牌；有放回时每张独立均匀抽取。
// allowReversed 时每张牌独立掷一次硬币，正面则标记为逆位。
func Draw(count int, withReplacement, allowReversed bool, rng RNG) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: card count must not be negative, got %d", model.ErrInvalidArgument, count)
	}
	if !withReplacement && count > len(deck) {
		return nil, fmt.Errorf("%w: cannot draw %d distinct cards from a deck of %d", model.ErrInvalidArgument, count, len(deck))
	}

	cards := make([]string, count)
	if withReplacement {
		for i := range cards {
			cards[i] = deck[rng.Intn(len(deck))]
		}
	} else {
		// Fisher-Yates partial shuffle: only the first count positions are needed.
		indices := make([]int, len(deck))
		for i := range indices {
			indices[i] = i
		}
		for i := 0; i < count; i++ {
			j := i + rng.Intn(len(indices)-i)
			indices[i], indices[j] = indices[j], indices[i]
			cards[i] = deck[indices[i]]
		}
	}

	if allowReversed {
		for i := range cards {
			if rng.Intn(2) == 1 {
				cards[i] += ReversedSuffix
			}
		}
	}
	return cards, nil
}
