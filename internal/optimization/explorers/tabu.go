package explorers

import (
	"math/rand"
	"sort"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/randutil"
)

// TabuList is a bounded FIFO of move codes with O(1) membership. Pushing onto
// a full list evicts the oldest entry.
type TabuList struct {
	ring    []moves.Code
	members map[moves.Code]int
	head    int
	size    int
}

// NewTabuList returns an empty list holding at most capacity codes.
func NewTabuList(capacity int) *TabuList {
	return &TabuList{
		ring:    make([]moves.Code, capacity),
		members: make(map[moves.Code]int, capacity),
	}
}

// Push appends c, evicting the oldest code when full.
func (l *TabuList) Push(c moves.Code) {
	if len(l.ring) == 0 {
		return
	}
	if l.size == len(l.ring) {
		old := l.ring[l.head]
		if l.members[old]--; l.members[old] == 0 {
			delete(l.members, old)
		}
		l.ring[l.head] = c
		l.head = (l.head + 1) % len(l.ring)
	} else {
		l.ring[(l.head+l.size)%len(l.ring)] = c
		l.size++
	}
	l.members[c]++
}

// Contains reports whether c is currently tabu.
func (l *TabuList) Contains(c moves.Code) bool {
	return l.members[c] > 0
}

// Len is the number of codes held.
func (l *TabuList) Len() int { return l.size }

// Cap is the tenure.
func (l *TabuList) Cap() int { return len(l.ring) }

// TabuConfig parameterises tabu search.
type TabuConfig struct {
	// Tenure is the tabu list capacity.
	Tenure int
	// CandidateListSize bounds the cached best-first candidate list.
	CandidateListSize int
	// Patience is the number of non-improving iterations tolerated.
	Patience int
}

// Validate rejects a zero tenure and empty candidate lists.
func (c TabuConfig) Validate() error {
	const component = "tabu"
	if c.Tenure < 1 {
		return optimization.Invalidf(component, "validate", "tabu tenure must be >= 1 (got %d)", c.Tenure)
	}
	if c.CandidateListSize < 1 {
		return optimization.Invalidf(component, "validate", "candidate list size must be >= 1 (got %d)", c.CandidateListSize)
	}
	if c.Patience < 1 {
		return optimization.Invalidf(component, "validate", "patience must be >= 1 (got %d)", c.Patience)
	}
	return nil
}

type candidate struct {
	move  moves.Move
	delta int
}

// Tabu is tabu search with a cached candidate list. A rebuild scans the whole
// neighbourhood in shuffled order and keeps the CandidateListSize improving
// admissible moves with the lowest deltas. A move is admissible when it is not
// tabu, or when applying it would beat the best cost seen so far.
//
// Each step pops the head of the cache and re-evaluates it against the
// current tour. It is applied only while it still improves; otherwise the
// cache is rebuilt and that step applies nothing.
type Tabu struct {
	cfg  TabuConfig
	rng  *rand.Rand
	all  []moves.Move
	list *TabuList

	candidates []candidate
}

// NewTabu builds the neighbourhood for n nodes.
func NewTabu(rng *rand.Rand, n int, kinds moves.KindSet, cfg TabuConfig) (*Tabu, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enum, err := moves.NewEnumerator(n, kinds)
	if err != nil {
		return nil, err
	}
	return &Tabu{
		cfg:        cfg,
		rng:        rng,
		all:        enum.Moves(),
		list:       NewTabuList(cfg.Tenure),
		candidates: make([]candidate, 0, cfg.CandidateListSize),
	}, nil
}

func (t *Tabu) Step(inst *atsp.Instance, tour atsp.Tour, rc *optimization.RunContext) {
	if len(t.candidates) == 0 {
		t.rebuild(inst, tour, rc)
		return
	}

	head := t.candidates[0]
	t.candidates = t.candidates[1:]
	delta := head.move.Delta(inst, tour)
	rc.Evaluations++

	if delta < 0 {
		head.move.Apply(tour)
		rc.CurrentCost += delta
		t.list.Push(head.move.Encode())
		return
	}
	t.rebuild(inst, tour, rc)
}

func (t *Tabu) ShouldStop(rc *optimization.RunContext) bool {
	return rc.IterationsWithoutImprovement > t.cfg.Patience
}

// rebuild refills the candidate cache from a full scan of the neighbourhood.
func (t *Tabu) rebuild(inst *atsp.Instance, tour atsp.Tour, rc *optimization.RunContext) {
	randutil.Shuffle(t.all, t.rng)
	if cap(t.candidates) < t.cfg.CandidateListSize {
		t.candidates = make([]candidate, 0, t.cfg.CandidateListSize)
	}
	t.candidates = t.candidates[:0]

	for _, m := range t.all {
		delta := m.Delta(inst, tour)
		rc.Evaluations++
		if delta >= 0 {
			continue
		}
		if t.list.Contains(m.Encode()) && rc.CurrentCost+delta >= rc.BestCost {
			continue
		}
		t.insert(candidate{move: m, delta: delta})
	}
}

// insert keeps the cache sorted by delta; equal deltas keep scan order.
func (t *Tabu) insert(c candidate) {
	k := t.cfg.CandidateListSize
	pos := sort.Search(len(t.candidates), func(i int) bool {
		return t.candidates[i].delta > c.delta
	})
	if pos >= k {
		return
	}
	if len(t.candidates) < k {
		t.candidates = append(t.candidates, candidate{})
	}
	copy(t.candidates[pos+1:], t.candidates[pos:len(t.candidates)-1])
	t.candidates[pos] = c
}

// List exposes the tabu list.
func (t *Tabu) List() *TabuList { return t.list }
