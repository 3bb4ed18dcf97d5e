// Package aggregator projects an orchestrator's terminal state into a
// report for export. It reads, never mutates.
package aggregator

import (
	"sort"
	"time"

	"appointment-dispatch/metrics"
	"appointment-dispatch/models"
	"appointment-dispatch/orchestrator"

	"github.com/google/uuid"
)

// Row is one committed assignment in export order.
type Row struct {
	Window             models.TimeWindow `json:"window"`
	AppointmentID      string            `json:"appointment_id"`
	RepresentativeID   string            `json:"representative_id"`
	RepresentativeName string            `json:"representative_name"`
	Cost               float64           `json:"cost"`
}

// UnassignedRow is one appointment that ended without a representative.
type UnassignedRow struct {
	Window        models.TimeWindow `json:"window"`
	AppointmentID string            `json:"appointment_id"`
	Reason        string            `json:"reason"`
}

// Report is the run's final export payload.
type Report struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Assignments []Row           `json:"assignments"`
	Unassigned  []UnassignedRow `json:"unassigned"`
	TotalCost   float64         `json:"total_cost"`
}

// Build collects per-window outcomes into a report. Assignments are
// ordered by window position, then appointment identifier. When a run
// halted on an aborted window, every appointment still pending is
// reported unassigned with the OracleUnavailable reason: the aborted
// window's own appointments and those of windows never reached.
func Build(o *orchestrator.Orchestrator) *Report {
	windows := o.Windows()
	order := make(map[models.TimeWindow]int, len(windows))
	for i, w := range windows {
		order[w] = i
	}

	r := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, asg := range o.Assignments() {
		r.Assignments = append(r.Assignments, Row{
			Window:             asg.Window,
			AppointmentID:      asg.AppointmentID,
			RepresentativeID:   asg.RepresentativeID,
			RepresentativeName: asg.RepresentativeName,
			Cost:               asg.Cost,
		})
		r.TotalCost += asg.Cost
	}
	sort.Slice(r.Assignments, func(i, j int) bool {
		if order[r.Assignments[i].Window] != order[r.Assignments[j].Window] {
			return order[r.Assignments[i].Window] < order[r.Assignments[j].Window]
		}
		return r.Assignments[i].AppointmentID < r.Assignments[j].AppointmentID
	})

	byReason := make(map[string]int)
	halted := o.Aborted()
	for _, a := range o.Appointments() {
		switch {
		case a.Status == models.StatusUnassigned:
			r.Unassigned = append(r.Unassigned, UnassignedRow{
				Window:        a.Window,
				AppointmentID: a.ID,
				Reason:        a.Reason.String(),
			})
			byReason[a.Reason.String()]++
		case a.Status == models.StatusPending && halted:
			r.Unassigned = append(r.Unassigned, UnassignedRow{
				Window:        a.Window,
				AppointmentID: a.ID,
				Reason:        models.ReasonOracleUnavailable.String(),
			})
			byReason[models.ReasonOracleUnavailable.String()]++
		}
	}
	sort.Slice(r.Unassigned, func(i, j int) bool {
		if order[r.Unassigned[i].Window] != order[r.Unassigned[j].Window] {
			return order[r.Unassigned[i].Window] < order[r.Unassigned[j].Window]
		}
		return r.Unassigned[i].AppointmentID < r.Unassigned[j].AppointmentID
	})

	metrics.AssignmentsTotal.Set(float64(len(r.Assignments)))
	metrics.UnassignedTotal.Set(float64(len(r.Unassigned)))
	metrics.TravelCostTotal.Set(r.TotalCost)
	for reason, count := range byReason {
		metrics.UnassignedByReason.WithLabelValues(reason).Set(float64(count))
	}
	return r
}
