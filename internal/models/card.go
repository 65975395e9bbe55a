// internal/models/card.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCard is returned when a color/rank pair violates the card invariants.
var ErrInvalidCard = errors.New("invalid card")

// Color is the closed color vocabulary. The zero value ColorNone means "no color",
// which is only meaningful as an absent color declaration.
type Color uint8

const (
	ColorNone Color = iota
	ColorRed
	ColorYellow
	ColorBlue
	ColorGreen
	ColorWild
)

// Colors lists the four concrete (non-wild) colors in deck construction order.
var Colors = []Color{ColorRed, ColorYellow, ColorBlue, ColorGreen}

var colorNames = map[Color]string{
	ColorRed:    "red",
	ColorYellow: "yellow",
	ColorBlue:   "blue",
	ColorGreen:  "green",
	ColorWild:   "wild",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	if c == ColorNone {
		return "none"
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// Concrete reports whether c is one of the four playable colors.
func (c Color) Concrete() bool {
	return c >= ColorRed && c <= ColorGreen
}

// ParseColor parses a color name such as "red" or "Wild".
func ParseColor(s string) (Color, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for c, name := range colorNames {
		if name == needle {
			return c, nil
		}
	}
	return ColorNone, fmt.Errorf("unknown color %q", s)
}

func (c Color) MarshalText() ([]byte, error) {
	if c == ColorNone {
		return []byte(""), nil
	}
	if _, ok := colorNames[c]; !ok {
		return nil, fmt.Errorf("unknown color %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = ColorNone
		return nil
	}
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Rank is either a number 0..9 or one of the named effect ranks.
type Rank int8

const (
	RankSkip Rank = 10 + iota
	RankReverse
	RankDrawTwo
	RankWildChangeColor
	RankWildDrawFour
)

// ActionRanks are the colored effect ranks, two copies of each per color.
var ActionRanks = []Rank{RankSkip, RankDrawTwo, RankReverse}

// WildRanks are the colorless ranks.
var WildRanks = []Rank{RankWildChangeColor, RankWildDrawFour}

var rankNames = map[Rank]string{
	RankSkip:            "skip",
	RankReverse:         "reverse",
	RankDrawTwo:         "draw_two",
	RankWildChangeColor: "wild",
	RankWildDrawFour:    "wild_draw_four",
}

// Number returns the number rank n, which must lie in 0..9.
func Number(n int) (Rank, error) {
	if n < 0 || n > 9 {
		return 0, fmt.Errorf("%w: number %d out of range 0..9", ErrInvalidCard, n)
	}
	return Rank(n), nil
}

// IsNumber reports whether r is a plain number rank.
func (r Rank) IsNumber() bool { return r >= 0 && r <= 9 }

// IsWild reports whether r is a colorless rank that requires a color declaration.
func (r Rank) IsWild() bool { return r == RankWildChangeColor || r == RankWildDrawFour }

// Valid reports whether r is part of the rank vocabulary.
func (r Rank) Valid() bool { return r.IsNumber() || (r >= RankSkip && r <= RankWildDrawFour) }

func (r Rank) String() string {
	if r.IsNumber() {
		return strconv.Itoa(int(r))
	}
	if name, ok := rankNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rank(%d)", int8(r))
}

// ParseRank parses "0".."9", "skip", "reverse", "draw_two", "wild" or "wild_draw_four".
func ParseRank(s string) (Rank, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(needle); err == nil {
		return Number(n)
	}
	for r, name := range rankNames {
		if name == needle {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", s)
}

func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown rank %d", int8(r))
	}
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	parsed, err := ParseRank(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Card is a comparable value; two cards with the same color and rank are interchangeable.
type Card struct {
	Color Color `json:"color"`
	Rank  Rank  `json:"rank"`
}

// NewCard builds a card, rejecting color/rank pairs that break the card invariants.
func NewCard(color Color, rank Rank) (Card, error) {
	c := Card{Color: color, Rank: rank}
	if err := c.Validate(); err != nil {
		return Card{}, err
	}
	return c, nil
}

// NewNumberCard is shorthand for a number card of the given color.
func NewNumberCard(color Color, n int) (Card, error) {
	rank, err := Number(n)
	if err != nil {
		return Card{}, err
	}
	return NewCard(color, rank)
}

// NewWildCard returns a colorless card of the given wild rank.
func NewWildCard(rank Rank) (Card, error) {
	return NewCard(ColorWild, rank)
}

// Validate checks that wild ranks carry ColorWild and every other rank carries a concrete color.
func (c Card) Validate() error {
	if !c.Rank.Valid() {
		return fmt.Errorf("%w: unknown rank %d", ErrInvalidCard, int8(c.Rank))
	}
	if c.Rank.IsWild() {
		if c.Color != ColorWild {
			return fmt.Errorf("%w: %s must be wild, got %s", ErrInvalidCard, c.Rank, c.Color)
		}
		return nil
	}
	if !c.Color.Concrete() {
		return fmt.Errorf("%w: %s needs a concrete color, got %s", ErrInvalidCard, c.Rank, c.Color)
	}
	return nil
}

// IsWild reports whether the card requires a color declaration when played.
func (c Card) IsWild() bool { return c.Rank.IsWild() }

func (c Card) String() string {
	if c.IsWild() {
		return c.Rank.String()
	}
	return c.Color.String() + ":" + c.Rank.String()
}

// ParseCard parses "red:5", "blue:skip", "wild" or "wild_draw_four".
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	colorPart, rankPart, found := strings.Cut(s, ":")
	if !found {
		rank, err := ParseRank(s)
		if err != nil {
			return Card{}, err
		}
		return NewWildCard(rank)
	}
	color, err := ParseColor(colorPart)
	if err != nil {
		return Card{}, err
	}
	rank, err := ParseRank(rankPart)
	if err != nil {
		return Card{}, err
	}
	return NewCard(color, rank)
}

type cardJSON Card

// UnmarshalJSON decodes a card and rejects invalid color/rank combinations.
func (c *Card) UnmarshalJSON(b []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	decoded := Card(raw)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*c = decoded
	return nil
}
