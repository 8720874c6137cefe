package lineup

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/clubhq/teamsheet/internal/player"
)

const (
	// exhaustiveLimit is the largest free-player pool for which every
	// partition is enumerated. Above it the greedy path takes over.
	exhaustiveLimit = 16
	// maxSwapRounds bounds the hill-climbing phase of the greedy path.
	maxSwapRounds = 32
)

// Balance produces a complete slot to player assignment for the sheet:
// every open slot filled, every lock respected, every roster player used at
// most once. The partition minimizes the absolute difference between the
// two sides' rating sums. Ties are broken by the lower confidence spread,
// then by player-ID order, so identical input always yields an identical
// assignment.
func Balance(roster []player.Info, sheet *Sheet) (*Assignment, error) {
	matchID := sheet.MatchID()

	byID := make(map[string]player.Info, len(roster))
	for _, p := range roster {
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate roster entry for player %s", p.ID)
		}
		byID[p.ID] = p
	}

	locks := sheet.Locks()
	lockedIDs := make(map[string]bool, len(locks))
	var lockedA, lockedB []player.Info
	for slot, id := range locks {
		p, known := byID[id]
		if !known {
			return nil, &LockConflictError{
				MatchID: matchID,
				Reason:  fmt.Sprintf("locked player %s (slot %d) is not in the roster", id, slot),
			}
		}
		lockedIDs[id] = true
		if SideOf(slot) == TeamA {
			lockedA = append(lockedA, p)
		} else {
			lockedB = append(lockedB, p)
		}
	}

	var openA, openB []int
	for _, slot := range sheet.OpenSlots() {
		if SideOf(slot) == TeamA {
			openA = append(openA, slot)
		} else {
			openB = append(openB, slot)
		}
	}

	var free []player.Info
	for _, p := range roster {
		if !lockedIDs[p.ID] {
			free = append(free, p)
		}
	}
	// Deterministic enumeration order.
	sort.Slice(free, func(i, j int) bool { return free[i].ID < free[j].ID })

	needed := len(openA) + len(openB)
	if len(free) < needed {
		return nil, &InsufficientRosterError{
			MatchID:   matchID,
			Open:      needed,
			Available: len(free),
		}
	}

	base := newCandidateBase(free, lockedA, lockedB)

	var best candidate
	if len(free) <= exhaustiveLimit {
		best = base.exhaustive(len(openA), len(openB))
	} else {
		best = base.greedy(len(openA), len(openB))
	}

	asg := buildAssignment(matchID, sheet, best, base, openA, openB, locks, byID)
	log.Debug("Balanced match",
		"matchID", matchID,
		"ratingA", asg.RatingA,
		"ratingB", asg.RatingB,
		"diff", asg.Diff(),
		"bench", len(asg.Bench),
	)
	return asg, nil
}

// candidateBase holds the immutable inputs a partition search works over.
type candidateBase struct {
	free       []player.Info
	lockSumA   float64
	lockSumB   float64
	lockConfA  float64
	lockConfB  float64
	lockCountA int
	lockCountB int
}

// candidate is one partition of the free pool: indices into free assigned
// to side A and side B. Everything else sits on the bench.
type candidate struct {
	a, b []int
	// cached score
	diff     float64
	confDiff float64
}

func newCandidateBase(free []player.Info, lockedA, lockedB []player.Info) *candidateBase {
	base := &candidateBase{free: free, lockCountA: len(lockedA), lockCountB: len(lockedB)}
	for _, p := range lockedA {
		base.lockSumA += p.Rating
		base.lockConfA += p.Confidence
	}
	for _, p := range lockedB {
		base.lockSumB += p.Rating
		base.lockConfB += p.Confidence
	}
	return base
}

func (cb *candidateBase) score(c *candidate) {
	sumA, sumB := cb.lockSumA, cb.lockSumB
	confA, confB := cb.lockConfA, cb.lockConfB
	for _, i := range c.a {
		sumA += cb.free[i].Rating
		confA += cb.free[i].Confidence
	}
	for _, i := range c.b {
		sumB += cb.free[i].Rating
		confB += cb.free[i].Confidence
	}
	c.diff = abs(sumA - sumB)
	c.confDiff = abs(confA - confB)
}

// better reports whether x beats y: smaller rating difference, then smaller
// confidence spread, then the lexicographically smaller side-A ID set.
func (cb *candidateBase) better(x, y *candidate) bool {
	const eps = 1e-9
	if x.diff < y.diff-eps {
		return true
	}
	if x.diff > y.diff+eps {
		return false
	}
	if x.confDiff < y.confDiff-eps {
		return true
	}
	if x.confDiff > y.confDiff+eps {
		return false
	}
	xids := cb.sideIDs(x.a)
	yids := cb.sideIDs(y.a)
	for i := range xids {
		if xids[i] != yids[i] {
			return xids[i] < yids[i]
		}
	}
	return false
}

func (cb *candidateBase) sideIDs(idx []int) []string {
	ids := make([]string, len(idx))
	for i, j := range idx {
		ids[i] = cb.free[j].ID
	}
	sort.Strings(ids)
	return ids
}

// exhaustive enumerates every way to seat capA players on side A and capB
// on side B and keeps the global optimum.
func (cb *candidateBase) exhaustive(capA, capB int) candidate {
	n := len(cb.free)
	var best candidate
	haveBest := false

	combinations(n, capA, func(aIdx []int) {
		inA := make([]bool, n)
		for _, i := range aIdx {
			inA[i] = true
		}
		rest := make([]int, 0, n-capA)
		for i := 0; i < n; i++ {
			if !inA[i] {
				rest = append(rest, i)
			}
		}
		combinations(len(rest), capB, func(bPos []int) {
			c := candidate{a: append([]int(nil), aIdx...)}
			for _, p := range bPos {
				c.b = append(c.b, rest[p])
			}
			cb.score(&c)
			if !haveBest || cb.better(&c, &best) {
				best = c
				haveBest = true
			}
		})
	})
	return best
}

// greedy seeds both sides strongest-first onto the lighter side, then runs
// pairwise swap improvement (side-to-side and seat-to-bench) until no swap
// improves the partition or the rounds run out.
func (cb *candidateBase) greedy(capA, capB int) candidate {
	order := make([]int, len(cb.free))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		pi, pj := cb.free[order[i]], cb.free[order[j]]
		if pi.Rating != pj.Rating {
			return pi.Rating > pj.Rating
		}
		return pi.ID < pj.ID
	})

	c := candidate{}
	sumA, sumB := cb.lockSumA, cb.lockSumB
	for _, i := range order {
		aOpen := len(c.a) < capA
		bOpen := len(c.b) < capB
		switch {
		case aOpen && (!bOpen || sumA <= sumB):
			c.a = append(c.a, i)
			sumA += cb.free[i].Rating
		case bOpen:
			c.b = append(c.b, i)
			sumB += cb.free[i].Rating
		}
		// Neither side open: player stays on the bench.
	}
	cb.score(&c)

	seated := make(map[int]bool, capA+capB)
	for round := 0; round < maxSwapRounds; round++ {
		improved := false

		for k := range seated {
			delete(seated, k)
		}
		for _, i := range c.a {
			seated[i] = true
		}
		for _, i := range c.b {
			seated[i] = true
		}
		var bench []int
		for i := range cb.free {
			if !seated[i] {
				bench = append(bench, i)
			}
		}

		// Side-to-side swaps.
		for ai := range c.a {
			for bi := range c.b {
				trial := c.clone()
				trial.a[ai], trial.b[bi] = trial.b[bi], trial.a[ai]
				cb.score(&trial)
				if cb.better(&trial, &c) {
					c = trial
					improved = true
				}
			}
		}
		// Seat-to-bench substitutions. At most one per round: applying a
		// substitution invalidates the bench snapshot.
	subs:
		for _, sub := range bench {
			for ai := range c.a {
				trial := c.clone()
				trial.a[ai] = sub
				cb.score(&trial)
				if cb.better(&trial, &c) {
					c = trial
					improved = true
					break subs
				}
			}
			for bi := range c.b {
				trial := c.clone()
				trial.b[bi] = sub
				cb.score(&trial)
				if cb.better(&trial, &c) {
					c = trial
					improved = true
					break subs
				}
			}
		}

		if !improved {
			break
		}
	}
	return c
}

func (c candidate) clone() candidate {
	return candidate{
		a: append([]int(nil), c.a...),
		b: append([]int(nil), c.b...),
	}
}

// buildAssignment seats a winning partition onto concrete slots: locked
// players keep their slots, free players fill each side's open slots
// strongest first.
func buildAssignment(matchID string, sheet *Sheet, best candidate, base *candidateBase, openA, openB []int, locks map[int]string, byID map[string]player.Info) *Assignment {
	asg := &Assignment{
		ID:        uuid.New().String(),
		MatchID:   matchID,
		CreatedAt: time.Now(),
	}

	seat := func(open []int, idx []int) {
		side := make([]player.Info, len(idx))
		for i, j := range idx {
			side[i] = base.free[j]
		}
		sort.Slice(side, func(i, j int) bool {
			if side[i].Rating != side[j].Rating {
				return side[i].Rating > side[j].Rating
			}
			return side[i].ID < side[j].ID
		})
		for i, slot := range open {
			p := side[i]
			asg.Slots = append(asg.Slots, SlotAssignment{
				Slot:       slot,
				Side:       SideOf(slot),
				PlayerID:   p.ID,
				PlayerName: p.Name,
				Rating:     p.Rating,
			})
		}
	}

	for slot, id := range locks {
		p := byID[id]
		asg.Slots = append(asg.Slots, SlotAssignment{
			Slot:       slot,
			Side:       SideOf(slot),
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Rating:     p.Rating,
			Locked:     true,
		})
	}
	seat(openA, best.a)
	seat(openB, best.b)

	sort.Slice(asg.Slots, func(i, j int) bool { return asg.Slots[i].Slot < asg.Slots[j].Slot })

	seated := make(map[string]bool, len(asg.Slots))
	for _, s := range asg.Slots {
		seated[s.PlayerID] = true
		if s.Side == TeamA {
			asg.RatingA += s.Rating
		} else {
			asg.RatingB += s.Rating
		}
	}
	for _, p := range base.free {
		if !seated[p.ID] {
			asg.Bench = append(asg.Bench, p.ID)
		}
	}
	sort.Strings(asg.Bench)

	return asg
}

// combinations visits every k-sized index combination of 0..n-1 in
// lexicographic order.
func combinations(n, k int, visit func([]int)) {
	if k == 0 {
		visit(nil)
		return
	}
	if k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		visit(idx)
		// advance to the next combination
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
