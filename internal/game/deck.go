// internal/game/deck.go
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/uno/internal/models"
)

// InitialDeckSize is the fixed card count of a freshly built deck.
const InitialDeckSize = 72

const actionCopiesPerColor = 2
const wildCopies = 4

// BuildInitialDeck returns the 72-card base sequence in fixed color -> rank order:
// for each color ten number cards (0..9) and two each of skip, draw two and reverse,
// followed by four wild and four wild draw four cards. No randomization happens here.
func BuildInitialDeck() []models.Card {
	deck := make([]models.Card, 0, InitialDeckSize)
	for _, color := range models.Colors {
		for n := 0; n <= 9; n++ {
			deck = append(deck, models.Card{Color: color, Rank: models.Rank(n)})
		}
		for i := 0; i < actionCopiesPerColor; i++ {
			for _, rank := range models.ActionRanks {
				deck = append(deck, models.Card{Color: color, Rank: rank})
			}
		}
	}
	for i := 0; i < wildCopies; i++ {
		for _, rank := range models.WildRanks {
			deck = append(deck, models.Card{Color: models.ColorWild, Rank: rank})
		}
	}
	return deck
}

// PopDraw removes the tail card of the deck. An empty deck yields ErrDeckEmpty, which is a
// normal condition rather than a defect.
func PopDraw(deck []models.Card) (models.Card, []models.Card, error) {
	if len(deck) == 0 {
		return models.Card{}, deck, ErrDeckEmpty
	}
	last := len(deck) - 1
	return deck[last], deck[:last], nil
}

// Shuffler permutes a freshly built deck before the first deal.
type Shuffler interface {
	Shuffle(cards []models.Card)
}

// ShufflerFunc adapts a plain function to Shuffler.
type ShufflerFunc func(cards []models.Card)

func (f ShufflerFunc) Shuffle(cards []models.Card) { f(cards) }

// NoShuffle keeps the construction order. The draw sequence is then fully predictable,
// so it is only suitable for tests and replays.
var NoShuffle Shuffler = ShufflerFunc(func([]models.Card) {})

type seededShuffler struct {
	r *rand.Rand
}

// NewSeededShuffler returns a deterministic shuffler; the same seed always yields the same order.
func NewSeededShuffler(seed int64) Shuffler {
	return &seededShuffler{r: rand.New(rand.NewSource(seed))}
}

func (s *seededShuffler) Shuffle(cards []models.Card) {
	s.r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// NewSeed reads a seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRandomShuffler seeds a shuffler from crypto/rand.
func NewRandomShuffler() (Shuffler, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewSeededShuffler(seed), nil
}
