package solver_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	customerrors "appointment-dispatch/errors"
	"appointment-dispatch/models"
	"appointment-dispatch/solver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracle serves costs from a fixed pair table and can fail a
// specific pair the way the caching adapter would.
type fakeOracle struct {
	costs    map[[2]models.Coordinate]float64
	failFrom *models.Coordinate
}

func (f *fakeOracle) Cost(_ context.Context, from, to models.Coordinate) (float64, error) {
	if f.failFrom != nil && from == *f.failFrom {
		return 0, fmt.Errorf("%w: provider timeout", customerrors.ErrOracleUnavailable)
	}
	c, ok := f.costs[[2]models.Coordinate{from, to}]
	if !ok {
		return 0, fmt.Errorf("%w: no route for pair", customerrors.ErrOracleUnavailable)
	}
	return c, nil
}

func TestSolve(t *testing.T) {
	const morning = models.TimeWindow("Morning")

	coord := func(n float64) models.Coordinate { return models.Coordinate{Lat: n, Lng: 0} }

	rep := func(id string, home float64, tags ...string) *models.Representative {
		return &models.Representative{
			ID:        id,
			Name:      "Rep " + id,
			Expertise: tags,
			Available: map[models.TimeWindow]bool{morning: true},
			Home:      coord(home),
			Location:  coord(home),
		}
	}
	appt := func(id string, loc float64, tags ...string) *models.Appointment {
		return &models.Appointment{
			ID:           id,
			Location:     coord(loc),
			RequiredTags: tags,
			Window:       morning,
			Status:       models.StatusPending,
		}
	}
	pairCosts := func(entries ...[3]float64) map[[2]models.Coordinate]float64 {
		m := make(map[[2]models.Coordinate]float64)
		for _, e := range entries {
			m[[2]models.Coordinate{coord(e[0]), coord(e[1])}] = e[2]
		}
		return m
	}

	tests := map[string]struct {
		appts        []*models.Appointment
		reps         []*models.Representative
		costs        map[[2]models.Coordinate]float64
		cfg          solver.Config
		expectPairs  map[string]string  // appointment ID -> rep ID
		expectCosts  map[string]float64 // appointment ID -> cost
		expectReason map[string]models.UnassignedReason
	}{
		"ExpertiseSplit_TwoReps_TwoAppointments": {
			// R1 covers tub, R2 covers shower; cross pairs are expensive.
			appts: []*models.Appointment{appt("A1", 10, "tub"), appt("A2", 20, "shower")},
			reps:  []*models.Representative{rep("R1", 1, "tub"), rep("R2", 2, "shower")},
			costs: pairCosts(
				[3]float64{1, 10, 5}, [3]float64{1, 20, 20},
				[3]float64{2, 10, 20}, [3]float64{2, 20, 5},
			),
			expectPairs: map[string]string{"A1": "R1", "A2": "R2"},
			expectCosts: map[string]float64{"A1": 5, "A2": 5},
		},
		"NoExpertiseMatch_ReportedNotDropped": {
			appts: []*models.Appointment{appt("A3", 10, "tile")},
			reps:  []*models.Representative{rep("R1", 1, "tub"), rep("R2", 2, "shower")},
			costs: pairCosts(),
			expectReason: map[string]models.UnassignedReason{
				"A3": models.ReasonNoExpertiseMatch,
			},
		},
		"EmptyRepresentativeSet_AllUnassigned": {
			appts: []*models.Appointment{appt("A1", 10, "tub")},
			reps:  nil,
			costs: pairCosts(),
			expectReason: map[string]models.UnassignedReason{
				"A1": models.ReasonNoAvailableRepresentative,
			},
		},
		"EmptyAppointmentSet": {
			appts: nil,
			reps:  []*models.Representative{rep("R1", 1, "tub")},
			costs: pairCosts(),
		},
		"MoreAppointmentsThanReps_CheapestKept": {
			appts: []*models.Appointment{appt("A1", 10, "tub"), appt("A2", 20, "tub")},
			reps:  []*models.Representative{rep("R1", 1, "tub")},
			costs: pairCosts([3]float64{1, 10, 3}, [3]float64{1, 20, 7}),
			expectPairs: map[string]string{
				"A1": "R1",
			},
			expectCosts: map[string]float64{"A1": 3},
			expectReason: map[string]models.UnassignedReason{
				"A2": models.ReasonNoAvailableRepresentative,
			},
		},
		"OptimalBeatsGreedy": {
			// Greedy would give A1 the close rep R1 (cost 1) and leave
			// the expensive R2 pairing for A2 (cost 100). The optimal
			// matching pays 2+2.
			appts: []*models.Appointment{appt("A1", 10, "tub"), appt("A2", 20, "tub")},
			reps:  []*models.Representative{rep("R1", 1, "tub"), rep("R2", 2, "tub")},
			costs: pairCosts(
				[3]float64{1, 10, 1}, [3]float64{1, 20, 2},
				[3]float64{2, 10, 2}, [3]float64{2, 20, 100},
			),
			expectPairs: map[string]string{"A1": "R2", "A2": "R1"},
			expectCosts: map[string]float64{"A1": 2, "A2": 2},
		},
		"OptimalReassignsEarlyMatches": {
			// A1 can only use R1, but giving R1 to A2 (cost 0) and R2
			// to A5 (cost 7) with A3 on R3 (cost 12) totals 19, versus
			// 28 for any matching that serves A1. The two stranded
			// appointments lost the competition, not the expertise
			// check.
			appts: []*models.Appointment{
				appt("A1", 10, "a1"), appt("A2", 20, "a2"), appt("A3", 30, "a3"),
				appt("A4", 40, "a4"), appt("A5", 50, "a5"),
			},
			reps: []*models.Representative{
				rep("R1", 1, "a1", "a2", "a3", "a5"),
				rep("R2", 2, "a5"),
				rep("R3", 3, "a2", "a3", "a4"),
			},
			costs: pairCosts(
				[3]float64{1, 10, 7}, [3]float64{1, 20, 0}, [3]float64{1, 30, 9}, [3]float64{1, 50, 1},
				[3]float64{2, 50, 7},
				[3]float64{3, 20, 14}, [3]float64{3, 30, 12}, [3]float64{3, 40, 16},
			),
			expectPairs: map[string]string{"A2": "R1", "A3": "R3", "A5": "R2"},
			expectCosts: map[string]float64{"A2": 0, "A3": 12, "A5": 7},
			expectReason: map[string]models.UnassignedReason{
				"A1": models.ReasonNoAvailableRepresentative,
				"A4": models.ReasonNoAvailableRepresentative,
			},
		},
		"GreedyStrategy_TakesClosestFirst": {
			appts: []*models.Appointment{appt("A1", 10, "tub"), appt("A2", 20, "tub")},
			reps:  []*models.Representative{rep("R1", 1, "tub"), rep("R2", 2, "tub")},
			costs: pairCosts(
				[3]float64{1, 10, 1}, [3]float64{1, 20, 2},
				[3]float64{2, 10, 2}, [3]float64{2, 20, 100},
			),
			cfg:         solver.Config{Strategy: solver.StrategyGreedy},
			expectPairs: map[string]string{"A1": "R1", "A2": "R2"},
			expectCosts: map[string]float64{"A1": 1, "A2": 100},
		},
		"AnyPolicy_SingleSharedTagSuffices": {
			appts: []*models.Appointment{appt("A1", 10, "tub", "tile")},
			reps:  []*models.Representative{rep("R1", 1, "tub")},
			costs: pairCosts([3]float64{1, 10, 4}),
			cfg:   solver.Config{Policy: solver.PolicyAny},
			expectPairs: map[string]string{
				"A1": "R1",
			},
			expectCosts: map[string]float64{"A1": 4},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			o := &fakeOracle{costs: tc.costs}
			res, err := solver.Solve(context.Background(), morning, tc.appts, tc.reps, o, tc.cfg)
			require.NoError(t, err)

			gotPairs := make(map[string]string)
			gotCosts := make(map[string]float64)
			for _, asg := range res.Assignments {
				gotPairs[asg.AppointmentID] = asg.RepresentativeID
				gotCosts[asg.AppointmentID] = asg.Cost
			}
			assert.Equal(t, len(tc.expectPairs), len(res.Assignments), "assignment count")
			for id, repID := range tc.expectPairs {
				assert.Equal(t, repID, gotPairs[id], "assignment for %s", id)
				assert.InDelta(t, tc.expectCosts[id], gotCosts[id], 1e-9, "cost for %s", id)
			}

			gotReasons := make(map[string]models.UnassignedReason)
			for _, u := range res.Unassigned {
				gotReasons[u.AppointmentID] = u.Reason
			}
			assert.Equal(t, len(tc.expectReason), len(res.Unassigned), "unassigned count")
			for id, reason := range tc.expectReason {
				assert.Equal(t, reason, gotReasons[id], "reason for %s", id)
			}
		})
	}
}

func TestSolve_OracleFailureAbortsWindow(t *testing.T) {
	const morning = models.TimeWindow("Morning")
	r1 := &models.Representative{
		ID: "R1", Expertise: []string{"tub"},
		Available: map[models.TimeWindow]bool{morning: true},
		Location:  models.Coordinate{Lat: 1},
	}
	a1 := &models.Appointment{
		ID: "A1", RequiredTags: []string{"tub"},
		Window: morning, Status: models.StatusPending,
		Location: models.Coordinate{Lat: 10},
	}

	from := r1.Location
	o := &fakeOracle{costs: map[[2]models.Coordinate]float64{}, failFrom: &from}

	res, err := solver.Solve(context.Background(), morning, []*models.Appointment{a1}, []*models.Representative{r1}, o, solver.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, customerrors.ErrOracleUnavailable)
	assert.Nil(t, res, "no partial result on oracle failure")
	// Solver is pure: inputs untouched.
	assert.Equal(t, models.StatusPending, a1.Status)
	assert.Empty(t, r1.History)
}

func TestSolve_Idempotent(t *testing.T) {
	const morning = models.TimeWindow("Morning")
	coord := func(n float64) models.Coordinate { return models.Coordinate{Lat: n} }

	reps := []*models.Representative{
		{ID: "R1", Expertise: []string{"tub"}, Available: map[models.TimeWindow]bool{morning: true}, Location: coord(1)},
		{ID: "R2", Expertise: []string{"tub"}, Available: map[models.TimeWindow]bool{morning: true}, Location: coord(2)},
		{ID: "R3", Expertise: []string{"tub"}, Available: map[models.TimeWindow]bool{morning: true}, Location: coord(3)},
	}
	appts := []*models.Appointment{
		{ID: "A1", RequiredTags: []string{"tub"}, Window: morning, Status: models.StatusPending, Location: coord(10)},
		{ID: "A2", RequiredTags: []string{"tub"}, Window: morning, Status: models.StatusPending, Location: coord(20)},
		{ID: "A3", RequiredTags: []string{"tub"}, Window: morning, Status: models.StatusPending, Location: coord(30)},
	}
	costs := make(map[[2]models.Coordinate]float64)
	// Symmetric-cost grid: several equal-cost matchings exist, so only
	// the tie-break keeps repeated solves identical.
	for _, r := range []float64{1, 2, 3} {
		for _, a := range []float64{10, 20, 30} {
			costs[[2]models.Coordinate{coord(r), coord(a)}] = 7
		}
	}
	o := &fakeOracle{costs: costs}

	first, err := solver.Solve(context.Background(), morning, appts, reps, o, solver.Config{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := solver.Solve(context.Background(), morning, appts, reps, o, solver.Config{})
		require.NoError(t, err)
		assert.Equal(t, first.Assignments, again.Assignments)
		assert.Equal(t, first.Unassigned, again.Unassigned)
	}
}

// bestMatching enumerates every matching of the instance and returns
// the maximum cardinality together with the minimum total cost at that
// cardinality.
func bestMatching(feasible [][]bool, cost [][]float64) (int, float64) {
	n := len(feasible)
	var rec func(i, used int) (int, float64)
	rec = func(i, used int) (int, float64) {
		if i == n {
			return 0, 0
		}
		card, total := rec(i+1, used)
		for j := range feasible[i] {
			if !feasible[i][j] || used&(1<<j) != 0 {
				continue
			}
			c, t := rec(i+1, used|1<<j)
			c++
			t += cost[i][j]
			if c > card || (c == card && t < total-1e-9) {
				card, total = c, t
			}
		}
		return card, total
	}
	return rec(0, 0)
}

func TestSolve_MatchesExhaustiveOptimum(t *testing.T) {
	const morning = models.TimeWindow("Morning")
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(5)
		m := 1 + rng.Intn(5)

		feasible := make([][]bool, n)
		cost := make([][]float64, n)
		costs := make(map[[2]models.Coordinate]float64)

		reps := make([]*models.Representative, m)
		for j := range reps {
			reps[j] = &models.Representative{
				ID:        fmt.Sprintf("R%d", j+1),
				Available: map[models.TimeWindow]bool{morning: true},
				Location:  models.Coordinate{Lat: -float64(j + 1)},
			}
		}
		appts := make([]*models.Appointment, n)
		for i := range appts {
			tag := fmt.Sprintf("a%d", i+1)
			appts[i] = &models.Appointment{
				ID:           fmt.Sprintf("A%d", i+1),
				RequiredTags: []string{tag},
				Window:       morning,
				Status:       models.StatusPending,
				Location:     models.Coordinate{Lat: float64(i + 1)},
			}
			feasible[i] = make([]bool, m)
			cost[i] = make([]float64, m)
			for j := range reps {
				if rng.Float64() >= 0.6 {
					continue
				}
				feasible[i][j] = true
				cost[i][j] = float64(1 + rng.Intn(50))
				reps[j].Expertise = append(reps[j].Expertise, tag)
				costs[[2]models.Coordinate{reps[j].Location, appts[i].Location}] = cost[i][j]
			}
		}

		o := &fakeOracle{costs: costs}
		res, err := solver.Solve(context.Background(), morning, appts, reps, o, solver.Config{})
		require.NoError(t, err, "trial %d", trial)

		var gotCost float64
		for _, asg := range res.Assignments {
			gotCost += asg.Cost
		}
		wantCard, wantCost := bestMatching(feasible, cost)
		assert.Equal(t, wantCard, len(res.Assignments), "trial %d cardinality", trial)
		assert.InDelta(t, wantCost, gotCost, 1e-6, "trial %d total cost", trial)

		// Solve leaves its inputs untouched.
		for _, a := range appts {
			require.Equal(t, models.StatusPending, a.Status)
		}
	}
}
