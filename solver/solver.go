// Package solver computes one window's assignment of pending
// appointments to available representatives. It is a pure function of
// its inputs: it never mutates appointments or representatives, and all
// travel costs come from the supplied oracle.
package solver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"appointment-dispatch/metrics"
	"appointment-dispatch/models"

	"golang.org/x/sync/errgroup"
)

// Strategy selects the matching algorithm.
type Strategy string

const (
	// StrategyOptimal computes a maximum-cardinality minimum-cost
	// bipartite matching. Default.
	StrategyOptimal Strategy = "optimal"
	// StrategyGreedy assigns each appointment, in identifier order, to
	// the closest still-free feasible representative. Mirrors the
	// closest-available heuristic of the legacy tool; not guaranteed
	// optimal.
	StrategyGreedy Strategy = "greedy"
)

// ExpertisePolicy selects how required tags are checked against a
// representative's expertise.
type ExpertisePolicy string

const (
	// PolicyAll requires the representative's expertise to cover every
	// required tag. Default.
	PolicyAll ExpertisePolicy = "all"
	// PolicyAny requires at least one tag in common.
	PolicyAny ExpertisePolicy = "any"
)

// Oracle is the travel-cost contract the solver consults. Costs are
// queried representative-location -> appointment-location, feasible
// pairs only.
type Oracle interface {
	Cost(ctx context.Context, from, to models.Coordinate) (float64, error)
}

// Config tunes a solve.
type Config struct {
	Strategy Strategy
	Policy   ExpertisePolicy
	// MatrixConcurrency bounds parallel oracle calls while building the
	// cost matrix. Defaults to 8 when <= 0.
	MatrixConcurrency int
}

// Unassigned is an appointment the solve could not place, with why.
type Unassigned struct {
	AppointmentID string
	Reason        models.UnassignedReason
}

// Result is a successful solve for one window.
type Result struct {
	Assignments []models.Assignment
	Unassigned  []Unassigned
}

// Solve matches pending appointments of window w against the given
// representative snapshot. On any oracle failure it returns a nil result
// and the error; no partial assignments are produced.
func Solve(ctx context.Context, w models.TimeWindow, appts []*models.Appointment, reps []*models.Representative, o Oracle, cfg Config) (*Result, error) {
	started := time.Now()
	defer func() {
		metrics.SolverDurationSeconds.Observe(time.Since(started).Seconds())
	}()

	appts = sortedByID(appts)
	reps = availableSorted(reps, w)

	n, m := len(appts), len(reps)
	covers := func(rep *models.Representative, a *models.Appointment) bool {
		if cfg.Policy == PolicyAny {
			return rep.CoversAny(a.RequiredTags)
		}
		return rep.CoversAll(a.RequiredTags)
	}

	// Feasibility graph: infeasible pairs are excluded before any cost
	// is computed, so the oracle is never queried for them.
	feasible := make([][]bool, n)
	result := &Result{}
	for i, a := range appts {
		feasible[i] = make([]bool, m)
		hasPair := false
		for j, rep := range reps {
			if covers(rep, a) {
				feasible[i][j] = true
				hasPair = true
			}
		}
		if !hasPair {
			reason := models.ReasonNoExpertiseMatch
			if m == 0 {
				reason = models.ReasonNoAvailableRepresentative
			}
			result.Unassigned = append(result.Unassigned, Unassigned{AppointmentID: a.ID, Reason: reason})
		}
	}

	cost, err := buildCostMatrix(ctx, appts, reps, feasible, o, cfg.MatrixConcurrency)
	if err != nil {
		return nil, fmt.Errorf("window %s: %w", w, err)
	}

	var matchAppt []int
	if cfg.Strategy == StrategyGreedy {
		matchAppt = matchGreedy(feasible, cost)
	} else {
		matchAppt = matchOptimal(feasible, cost)
	}

	for i, a := range appts {
		j := matchAppt[i]
		if j < 0 {
			if hasFeasible(feasible[i]) {
				// Feasible pairs existed but every candidate went to
				// another appointment.
				result.Unassigned = append(result.Unassigned, Unassigned{
					AppointmentID: a.ID,
					Reason:        models.ReasonNoAvailableRepresentative,
				})
			}
			continue
		}
		result.Assignments = append(result.Assignments, models.Assignment{
			Window:             w,
			AppointmentID:      a.ID,
			RepresentativeID:   reps[j].ID,
			RepresentativeName: reps[j].Name,
			Cost:               cost[i][j],
		})
	}
	return result, nil
}

// buildCostMatrix queries the oracle for every feasible pair. Calls run
// concurrently; entries are distinct cells so only the oracle's own
// cache serializes. The first failure cancels the rest and aborts.
func buildCostMatrix(ctx context.Context, appts []*models.Appointment, reps []*models.Representative, feasible [][]bool, o Oracle, concurrency int) ([][]float64, error) {
	started := time.Now()
	defer func() {
		metrics.MatrixDurationSeconds.Observe(time.Since(started).Seconds())
	}()

	cost := make([][]float64, len(appts))
	for i := range cost {
		cost[i] = make([]float64, len(reps))
		for j := range cost[i] {
			cost[i][j] = math.Inf(1)
		}
	}

	if concurrency <= 0 {
		concurrency = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range appts {
		for j := range reps {
			if !feasible[i][j] {
				continue
			}
			i, j := i, j
			g.Go(func() error {
				c, err := o.Cost(gctx, reps[j].Location, appts[i].Location)
				if err != nil {
					return err
				}
				cost[i][j] = c
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cost, nil
}

const eps = 1e-9

// matchOptimal finds a maximum-cardinality matching of minimum total
// cost by successive shortest augmenting paths: each iteration augments
// along the globally cheapest path over all still-free appointments, so
// an appointment that grabbed a representative early can lose it again
// if a later, cheaper combination needs the slot. Ties between
// equal-cost paths fall to the lowest appointment index, then the
// lowest representative index, which makes the result deterministic for
// a deterministic oracle.
func matchOptimal(feasible [][]bool, cost [][]float64) []int {
	n := len(feasible)
	var m int
	if n > 0 {
		m = len(feasible[0])
	}
	matchAppt := make([]int, n)
	matchRep := make([]int, m)
	for i := range matchAppt {
		matchAppt[i] = -1
	}
	for j := range matchRep {
		matchRep[j] = -1
	}

	for {
		bestAppt, bestRep := -1, -1
		bestCost := math.Inf(1)
		var bestPrev []int
		for i := 0; i < n; i++ {
			if matchAppt[i] >= 0 {
				continue
			}
			dist, prev := shortestAlternating(i, feasible, cost, matchRep)
			endRep := -1
			for j := 0; j < m; j++ {
				if matchRep[j] >= 0 || math.IsInf(dist[j], 1) {
					continue
				}
				if endRep < 0 || dist[j] < dist[endRep]-eps {
					endRep = j
				}
			}
			if endRep < 0 {
				continue
			}
			if bestAppt < 0 || dist[endRep] < bestCost-eps {
				bestAppt, bestRep, bestCost, bestPrev = i, endRep, dist[endRep], prev
			}
		}
		if bestAppt < 0 {
			break
		}
		// Flip the alternating path, reassigning intermediate
		// appointments to their next representative.
		j := bestRep
		for bestPrev[j] >= 0 {
			p := bestPrev[j]
			a := matchRep[p]
			matchRep[j] = a
			matchAppt[a] = j
			j = p
		}
		matchRep[j] = bestAppt
		matchAppt[bestAppt] = j
	}
	return matchAppt
}

// shortestAlternating computes, for each representative, the cheapest
// alternating-path cost from free appointment i under the current
// matching, along with the predecessor representative on that path.
// Bellman-Ford style relaxation; path lengths may shrink through
// matched edges (negative residual arcs) but no negative cycles exist.
func shortestAlternating(i int, feasible [][]bool, cost [][]float64, matchRep []int) ([]float64, []int) {
	n := len(feasible)
	m := len(matchRep)
	dist := make([]float64, m)
	prev := make([]int, m)
	for j := 0; j < m; j++ {
		prev[j] = -1
		if feasible[i][j] {
			dist[j] = cost[i][j]
		} else {
			dist[j] = math.Inf(1)
		}
	}
	for pass := 0; pass < n+1; pass++ {
		improved := false
		for j := 0; j < m; j++ {
			if math.IsInf(dist[j], 1) || matchRep[j] < 0 {
				continue
			}
			a := matchRep[j]
			for k := 0; k < m; k++ {
				if k == j || !feasible[a][k] {
					continue
				}
				nd := dist[j] - cost[a][j] + cost[a][k]
				if nd < dist[k]-eps {
					dist[k] = nd
					prev[k] = j
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return dist, prev
}

// matchGreedy takes appointments in identifier order and gives each one
// the cheapest feasible representative not yet taken.
func matchGreedy(feasible [][]bool, cost [][]float64) []int {
	n := len(feasible)
	var m int
	if n > 0 {
		m = len(feasible[0])
	}
	matchAppt := make([]int, n)
	taken := make([]bool, m)
	for i := 0; i < n; i++ {
		matchAppt[i] = -1
		best := -1
		for j := 0; j < m; j++ {
			if taken[j] || !feasible[i][j] {
				continue
			}
			if best < 0 || cost[i][j] < cost[i][best] {
				best = j
			}
		}
		if best >= 0 {
			matchAppt[i] = best
			taken[best] = true
		}
	}
	return matchAppt
}

func hasFeasible(row []bool) bool {
	for _, ok := range row {
		if ok {
			return true
		}
	}
	return false
}

func sortedByID(appts []*models.Appointment) []*models.Appointment {
	out := make([]*models.Appointment, len(appts))
	copy(out, appts)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func availableSorted(reps []*models.Representative, w models.TimeWindow) []*models.Representative {
	var out []*models.Representative
	for _, rep := range reps {
		if rep.AvailableFor(w) {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
