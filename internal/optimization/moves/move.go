// Package moves defines the tour perturbations used by every explorer, their
// incremental cost deltas, their packed integer encoding and the deterministic
// enumeration of a full neighbourhood.
package moves

import (
	"fmt"
	"strings"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization"
)

// Kind identifies a move family. Its value is the kind field of a Code.
type Kind uint8

const (
	// NodeSwap exchanges the nodes at two positions.
	NodeSwap Kind = 0
	// EdgeReversal reverses the tour between two positions (2-opt style).
	EdgeReversal Kind = 1
)

func (k Kind) String() string {
	switch k {
	case NodeSwap:
		return "node-swap"
	case EdgeReversal:
		return "edge-reversal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// KindSet is a bitmask of enabled move kinds.
type KindSet uint8

const (
	NodeSwaps     KindSet = 1 << NodeSwap
	EdgeReversals KindSet = 1 << EdgeReversal
	AllKinds              = NodeSwaps | EdgeReversals
)

// Has reports whether k is enabled.
func (s KindSet) Has(k Kind) bool {
	return s&(1<<k) != 0
}

// Kinds lists the enabled kinds in enumeration order.
func (s KindSet) Kinds() []Kind {
	var kinds []Kind
	for _, k := range []Kind{NodeSwap, EdgeReversal} {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Validate rejects empty masks and unknown bits.
func (s KindSet) Validate() error {
	if s&^AllKinds != 0 {
		return optimization.Invalidf("moves", "validate", "unknown move kind bits %#b", uint8(s))
	}
	if s == 0 {
		return optimization.WrapErrorf(optimization.ErrNoMoveKinds, "move kind mask is empty").
			WithComponent("moves").WithOperation("validate")
	}
	return nil
}

func (s KindSet) String() string {
	names := make([]string, 0, 2)
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ",")
}

// ParseKindSet reads a comma separated list such as "node-swap,edge-reversal".
// "all" and "both" enable every kind.
func ParseKindSet(s string) (KindSet, error) {
	var set KindSet
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "node-swap", "node", "swap":
			set |= NodeSwaps
		case "edge-reversal", "edge-swap", "edge", "reversal", "2opt":
			set |= EdgeReversals
		case "all", "both":
			set |= AllKinds
		default:
			return 0, optimization.Invalidf("moves", "parse", "unknown move kind %q", part)
		}
	}
	if err := set.Validate(); err != nil {
		return 0, err
	}
	return set, nil
}

// Move is a described perturbation of a tour. Positions are kept in numeric
// order (I < J); the pair (0, n-1) is cyclically adjacent and both Delta and
// Apply treat position n-1 as the predecessor of position 0.
type Move struct {
	Kind Kind
	I    int
	J    int
}

// New returns the canonical move for the position pair (i, j).
func New(kind Kind, i, j int) Move {
	if i > j {
		i, j = j, i
	}
	return Move{Kind: kind, I: i, J: j}
}

// Degenerate reports whether the move cannot change a tour of n nodes.
func (m Move) Degenerate(n int) bool {
	switch m.Kind {
	case NodeSwap:
		return m.I == m.J
	case EdgeReversal:
		return m.J-m.I < 2 || (m.I == 0 && m.J == n-1)
	default:
		return true
	}
}

// Delta returns cost(apply(m, tour)) - cost(tour) without applying the move.
func (m Move) Delta(inst *atsp.Instance, tour atsp.Tour) int {
	switch m.Kind {
	case NodeSwap:
		return NodeSwapDelta(inst, tour, m.I, m.J)
	case EdgeReversal:
		return EdgeReversalDelta(inst, tour, m.I, m.J)
	default:
		return 0
	}
}

// Apply mutates tour in place. Degenerate moves leave it untouched.
func (m Move) Apply(tour atsp.Tour) {
	if m.Degenerate(len(tour)) {
		return
	}
	switch m.Kind {
	case NodeSwap:
		tour[m.I], tour[m.J] = tour[m.J], tour[m.I]
	case EdgeReversal:
		seg := tour[m.I+1 : m.J+1]
		for a, b := 0, len(seg)-1; a < b; a, b = a+1, b-1 {
			seg[a], seg[b] = seg[b], seg[a]
		}
	}
}

func (m Move) String() string {
	return fmt.Sprintf("%s(%d,%d)", m.Kind, m.I, m.J)
}

// MarshalText renders the set as ParseKindSet reads it.
func (s KindSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts anything ParseKindSet does.
func (s *KindSet) UnmarshalText(text []byte) error {
	set, err := ParseKindSet(string(text))
	if err != nil {
		return err
	}
	*s = set
	return nil
}
