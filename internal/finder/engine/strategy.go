package engine

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-finder/pkg/errors"
)

// Strategy selects how candidate cells are found and probed.
type Strategy int

const (
	// Recursive scans every cell and follows the word one character at a
	// time, counting at most one hit per starting cell.
	Recursive Strategy = iota
	// Range scans every cell and compares whole horizontal and vertical
	// slices, counting up to two hits per starting cell.
	Range
	// Index applies the Range rule to the cells listed in a first-letter
	// position index.
	Index
)

var ErrUnknownStrategy = fmt.Errorf("%w: unknown search strategy", apperrors.ErrInvalidInput)

func (s Strategy) String() string {
	switch s {
	case Recursive:
		return "recursive"
	case Range:
		return "range"
	case Index:
		return "index"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy resolves a configured strategy name. "sequential" and its
// legacy spelling "secuential" select Recursive.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "recursive", "sequential", "secuential":
		return Recursive, nil
	case "range":
		return Range, nil
	case "index":
		return Index, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Strategies lists every strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{Recursive, Range, Index}
}

func (s Strategy) MarshalText() ([]byte, error) {
	switch s {
	case Recursive, Range, Index:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
