package problem

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"evolver/internal/ga"
)

const (
	cryptarithmSlots      = 10
	defaultCryptarithm    = "SEND+MORE=MONEY"
	cryptarithmBlank byte = ' '
)

// Assignment places each letter of a cryptarithm in one of ten slots; the slot
// index is the digit assigned to the letter. Unused slots hold a blank.
type Assignment []byte

// Cryptarithm is an addition puzzle such as SEND+MORE=MONEY.
type Cryptarithm struct {
	addends []string
	result  string
	letters []byte
}

// ParseCryptarithm reads "WORD+WORD[+WORD...]=WORD". Letters are case
// insensitive; at most ten distinct letters are allowed.
func ParseCryptarithm(expr string) (*Cryptarithm, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(expr, " ", ""))
	lhs, rhs, ok := strings.Cut(cleaned, "=")
	if !ok || lhs == "" || rhs == "" || strings.Contains(rhs, "=") {
		return nil, fmt.Errorf("%w: expression %q must look like A+B=C", ErrInvalidParams, expr)
	}
	addends := strings.Split(lhs, "+")
	if len(addends) < 2 {
		return nil, fmt.Errorf("%w: expression %q needs at least two addends", ErrInvalidParams, expr)
	}

	seen := map[byte]bool{}
	var letters []byte
	for _, word := range append(append([]string(nil), addends...), rhs) {
		if word == "" {
			return nil, fmt.Errorf("%w: expression %q has an empty word", ErrInvalidParams, expr)
		}
		for i := 0; i < len(word); i++ {
			ch := word[i]
			if ch < 'A' || ch > 'Z' {
				return nil, fmt.Errorf("%w: expression %q contains %q", ErrInvalidParams, expr, ch)
			}
			if !seen[ch] {
				seen[ch] = true
				letters = append(letters, ch)
			}
		}
	}
	if len(letters) > cryptarithmSlots {
		return nil, fmt.Errorf("%w: expression %q uses %d distinct letters, max %d", ErrInvalidParams, expr, len(letters), cryptarithmSlots)
	}

	return &Cryptarithm{addends: addends, result: rhs, letters: letters}, nil
}

// Letters returns the distinct letters in order of first appearance.
func (p *Cryptarithm) Letters() []byte {
	return append([]byte(nil), p.letters...)
}

// Digits maps each letter to its digit. ok is false when a letter is missing
// from the assignment.
func (p *Cryptarithm) Digits(c Assignment) (map[byte]int, bool) {
	digits := make(map[byte]int, len(p.letters))
	for slot, ch := range c {
		if ch == cryptarithmBlank {
			continue
		}
		if _, dup := digits[ch]; !dup {
			digits[ch] = slot
		}
	}
	for _, ch := range p.letters {
		if _, ok := digits[ch]; !ok {
			return nil, false
		}
	}
	return digits, true
}

// Fitness is 1/(|sum(addends) - result| + 1): exactly 1 for a solution and 0
// when the assignment lost a letter.
func (p *Cryptarithm) Fitness(c Assignment) (float64, error) {
	digits, ok := p.Digits(c)
	if !ok {
		return 0, nil
	}
	sum := 0
	for _, word := range p.addends {
		sum += wordValue(word, digits)
	}
	diff := math.Abs(float64(wordValue(p.result, digits) - sum))
	return 1 / (diff + 1), nil
}

func (p *Cryptarithm) RandomInstance(rng *rand.Rand) (Assignment, error) {
	c := make(Assignment, cryptarithmSlots)
	copy(c, p.letters)
	for i := len(p.letters); i < cryptarithmSlots; i++ {
		c[i] = cryptarithmBlank
	}
	rng.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
	return c, nil
}

// Crossover swaps the tails of the parents at the midpoint. Children may lose
// letters; Fitness scores those zero.
func (p *Cryptarithm) Crossover(_ *rand.Rand, a, b Assignment) (Assignment, Assignment, error) {
	if len(a) != len(b) {
		return nil, nil, fmt.Errorf("assignment length mismatch: %d vs %d", len(a), len(b))
	}
	mid := len(a) / 2
	x := append(append(Assignment(nil), a[:mid]...), b[mid:]...)
	y := append(append(Assignment(nil), b[:mid]...), a[mid:]...)
	return x, y, nil
}

// Mutate swaps two random slots of a copy.
func (p *Cryptarithm) Mutate(rng *rand.Rand, c Assignment) (Assignment, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("empty assignment")
	}
	out := p.Clone(c)
	i, j := rng.Intn(len(out)), rng.Intn(len(out))
	out[i], out[j] = out[j], out[i]
	return out, nil
}

func (p *Cryptarithm) Clone(c Assignment) Assignment {
	return append(Assignment(nil), c...)
}

// Render lists "LETTER -> digit" lines in order of first appearance.
func (p *Cryptarithm) Render(c Assignment) string {
	digits, _ := p.Digits(c)
	var b strings.Builder
	for _, ch := range p.letters {
		d, ok := digits[ch]
		if !ok {
			fmt.Fprintf(&b, "%c -> ?\n", ch)
			continue
		}
		fmt.Fprintf(&b, "%c -> %d\n", ch, d)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func wordValue(word string, digits map[byte]int) int {
	value := 0
	for i := 0; i < len(word); i++ {
		value = value*10 + digits[word[i]]
	}
	return value
}

// CryptarithmProblem exposes Cryptarithm through the registry. Params:
// "expression" (default SEND+MORE=MONEY).
type CryptarithmProblem struct{}

func (CryptarithmProblem) Name() string {
	return "cryptarithm"
}

func (CryptarithmProblem) Description() string {
	return "assign digits to letters so the addition holds (default SEND+MORE=MONEY)"
}

func (CryptarithmProblem) DefaultThreshold() float64 {
	return 1.0
}

func (c CryptarithmProblem) Run(ctx context.Context, cfg ga.Config, params map[string]any) (Report, error) {
	expr, err := paramString(params, "expression", defaultCryptarithm)
	if err != nil {
		return Report{}, err
	}
	puzzle, err := ParseCryptarithm(expr)
	if err != nil {
		return Report{}, err
	}
	return runEngine[Assignment](ctx, c.Name(), puzzle, cfg, puzzle.Render)
}
