package tarot_test

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"tarot-ai-go/internal/model"
	"tarot-ai-go/pkg/tarot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seededRNG wraps a deterministic PCG source.
type seededRNG struct{ r *rand.Rand }

func newSeededRNG(seed uint64) *seededRNG {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededRNG) Intn(n int) int { return s.r.IntN(n) }

// scriptedRNG returns values from a pre-set sequence.
type scriptedRNG struct {
	values []int
	idx    int
}

func (r *scriptedRNG) Intn(n int) int {
	v := r.values[r.idx%len(r.values)] % n
	r.idx++
	return v
}

func deckSet() map[string]bool {
	set := make(map[string]bool, tarot.Size())
	for _, c := range tarot.Cards() {
		set[c] = true
	}
	return set
}

func TestDeck_Has78DistinctCards(t *testing.T) {
	cards := tarot.Cards()
	require.Len(t, cards, 78)
	assert.Len(t, deckSet(), 78)

	assert.Equal(t, "The Fool (0)", cards[0])
	assert.Equal(t, "The World (XXI)", cards[21])
	assert.Equal(t, "Ace of Wands", cards[22])
	assert.Equal(t, "King of Cups", cards[77])
	for _, c := range cards {
		assert.Equal(t, strings.TrimSpace(c), c)
	}
}

func TestCards_ReturnsCopy(t *testing.T) {
	cards := tarot.Cards()
	cards[0] = "mutated"
	assert.Equal(t, "The Fool (0)", tarot.Cards()[0])
}

func TestDraw_WithoutReplacement_Distinct(t *testing.T) {
	rng := newSeededRNG(42)
	set := deckSet()

	for count := 0; count <= 78; count++ {
		cards, err := tarot.Draw(count, false, false, rng)
		require.NoError(t, err)
		require.Len(t, cards, count)

		seen := make(map[string]bool)
		for _, c := range cards {
			assert.True(t, set[c], "card %q not in deck", c)
			assert.False(t, seen[c], "duplicate card %q", c)
			seen[c] = true
		}
	}
}

func TestDraw_WithReplacement_AllowsRepeats(t *testing.T) {
	// Always picking index 0 yields the same card repeatedly.
	rng := &scriptedRNG{values: []int{0}}

	cards, err := tarot.Draw(100, true, false, rng)
	require.NoError(t, err)
	require.Len(t, cards, 100)
	for _, c := range cards {
		assert.Equal(t, "The Fool (0)", c)
	}
}

func TestDraw_WithReplacement_MembersOfDeck(t *testing.T) {
	rng := newSeededRNG(7)
	set := deckSet()

	cards, err := tarot.Draw(500, true, false, rng)
	require.NoError(t, err)
	require.Len(t, cards, 500)
	for _, c := range cards {
		assert.True(t, set[c])
	}
}

func TestDraw_TooManyWithoutReplacement(t *testing.T) {
	_, err := tarot.Draw(79, false, false, newSeededRNG(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))

	// The same count is fine with replacement.
	cards, err := tarot.Draw(79, true, false, newSeededRNG(1))
	require.NoError(t, err)
	assert.Len(t, cards, 79)
}

func TestDraw_NegativeCount(t *testing.T) {
	_, err := tarot.Draw(-1, true, false, newSeededRNG(1))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestDraw_Reversed(t *testing.T) {
	// Shuffle picks (3 draws) then orientation coins: heads, tails, heads.
	rng := &scriptedRNG{values: []int{0, 0, 0, 1, 0, 1}}

	cards, err := tarot.Draw(3, false, true, rng)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"The Fool (0) (reversed)",
		"The Magician (I)",
		"The High Priestess (II) (reversed)",
	}, cards)
}

func TestDraw_ReversedRateConvergesToHalf(t *testing.T) {
	rng := newSeededRNG(2024)
	set := deckSet()

	const draws = 20000
	reversed := 0
	cards, err := tarot.Draw(draws, true, true, rng)
	require.NoError(t, err)
	for _, c := range cards {
		if strings.HasSuffix(c, tarot.ReversedSuffix) {
			reversed++
			assert.True(t, set[strings.TrimSuffix(c, tarot.ReversedSuffix)])
			continue
		}
		assert.True(t, set[c])
	}

	rate := float64(reversed) / draws
	assert.InDelta(t, 0.5, rate, 0.03)
}

func TestDraw_NoReversalWhenDisabled(t *testing.T) {
	cards, err := tarot.Draw(78, false, false, newSeededRNG(3))
	require.NoError(t, err)
	for _, c := range cards {
		assert.NotContains(t, c, "(reversed)")
	}
}
