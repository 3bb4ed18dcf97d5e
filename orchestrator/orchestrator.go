// Package orchestrator drives the run: it walks the configured window
// sequence, snapshots the roster and pending appointments for each
// window, invokes the solver, and commits results atomically. Roster
// edits are only accepted between windows, while the machine sits in
// StateAwaitingEdit.
package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"appointment-dispatch/errors"
	"appointment-dispatch/metrics"
	"appointment-dispatch/models"
	"appointment-dispatch/roster"
	"appointment-dispatch/solver"
)

// State is the orchestrator's position in the window sequence.
type State int

const (
	StateIdle State = iota
	StateSolving
	StateAwaitingEdit
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSolving:
		return "Solving"
	case StateAwaitingEdit:
		return "AwaitingRosterEdit"
	case StateDone:
		return "Done"
	default:
		return "Idle"
	}
}

type Orchestrator struct {
	roster  *roster.Manager
	oracle  solver.Oracle
	cfg     solver.Config
	windows []models.TimeWindow
	appts   []*models.Appointment

	state     State
	widx      int
	committed []models.Assignment
	aborted   map[models.TimeWindow]bool
}

// New builds an orchestrator over a fixed window order. The appointment
// set is complete before the first window is processed.
func New(rm *roster.Manager, appts []*models.Appointment, windows []models.TimeWindow, o solver.Oracle, cfg solver.Config) *Orchestrator {
	sorted := make([]*models.Appointment, len(appts))
	copy(sorted, appts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Orchestrator{
		roster:  rm,
		oracle:  o,
		cfg:     cfg,
		windows: windows,
		appts:   sorted,
		state:   StateIdle,
		aborted: make(map[models.TimeWindow]bool),
	}
}

func (o *Orchestrator) State() State { return o.state }

// CurrentWindow returns the window the machine is working on. The
// second return is false once the run is Done or before any window in
// an empty run.
func (o *Orchestrator) CurrentWindow() (models.TimeWindow, bool) {
	if o.state == StateDone || o.widx >= len(o.windows) {
		return "", false
	}
	return o.windows[o.widx], true
}

// SolveWindow solves the current window and commits the result. Valid
// from Idle (first window) or Solving (retry after an oracle failure).
// On oracle failure nothing is committed, the state stays Solving and
// the caller decides whether to retry.
func (o *Orchestrator) SolveWindow(ctx context.Context) error {
	switch o.state {
	case StateIdle:
		if len(o.windows) == 0 {
			o.state = StateDone
			return nil
		}
		o.state = StateSolving
	case StateSolving:
		// retry
	default:
		return fmt.Errorf("%w: cannot solve in state %s", errors.ErrInvalidTransition, o.state)
	}

	w := o.windows[o.widx]
	reps := o.roster.AvailableFor(w)
	pending := o.pendingFor(w)

	res, err := solver.Solve(ctx, w, pending, reps, o.oracle, o.cfg)
	if err != nil {
		o.aborted[w] = true
		metrics.WindowsAborted.Inc()
		return err
	}

	// Commit: statuses, locations and history move together, only after
	// the whole window solved cleanly. Every representative is resolved
	// up front so a stale ID leaves the run untouched instead of half
	// committed.
	resolved := make([]*models.Representative, len(res.Assignments))
	for i, asg := range res.Assignments {
		rep, ok := o.roster.Get(asg.RepresentativeID)
		if !ok {
			return fmt.Errorf("commit window %s: representative %s vanished mid-solve", w, asg.RepresentativeID)
		}
		resolved[i] = rep
	}
	for i, asg := range res.Assignments {
		appt := o.byID(asg.AppointmentID)
		rep := resolved[i]
		appt.Status = models.StatusAssigned
		appt.AssignedTo = rep.ID
		rep.Location = appt.Location
		rep.History = append(rep.History, appt.ID)
	}
	for _, u := range res.Unassigned {
		appt := o.byID(u.AppointmentID)
		appt.Status = models.StatusUnassigned
		appt.Reason = u.Reason
	}
	o.committed = append(o.committed, res.Assignments...)
	delete(o.aborted, w)
	metrics.WindowsSolved.Inc()

	o.state = StateAwaitingEdit
	return nil
}

// AddRepresentative applies an "add" edit. Only valid between windows.
func (o *Orchestrator) AddRepresentative(rep *models.Representative) error {
	if o.state != StateAwaitingEdit {
		return fmt.Errorf("%w: roster edits only between windows (state %s)", errors.ErrInvalidTransition, o.state)
	}
	return o.roster.Add(rep)
}

// RemoveRepresentatives applies a "remove" edit. Only valid between
// windows; all-or-nothing semantics come from the roster manager.
func (o *Orchestrator) RemoveRepresentatives(ids []string) error {
	if o.state != StateAwaitingEdit {
		return fmt.Errorf("%w: roster edits only between windows (state %s)", errors.ErrInvalidTransition, o.state)
	}
	return o.roster.Remove(ids)
}

// Confirm ends the edit phase: the machine advances to the next window,
// or to Done after the last one.
func (o *Orchestrator) Confirm() error {
	if o.state != StateAwaitingEdit {
		return fmt.Errorf("%w: nothing to confirm in state %s", errors.ErrInvalidTransition, o.state)
	}
	o.widx++
	if o.widx >= len(o.windows) {
		o.state = StateDone
	} else {
		o.state = StateSolving
	}
	return nil
}

// Run processes every remaining window without roster edits, confirming
// each edit phase immediately. Convenience for non-interactive callers.
func (o *Orchestrator) Run(ctx context.Context) error {
	for o.state != StateDone {
		if err := o.SolveWindow(ctx); err != nil {
			return err
		}
		if o.state == StateAwaitingEdit {
			if err := o.Confirm(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Assignments returns the committed assignments across all windows so
// far, in commit order.
func (o *Orchestrator) Assignments() []models.Assignment {
	out := make([]models.Assignment, len(o.committed))
	copy(out, o.committed)
	return out
}

// Appointments returns all appointments in identifier order.
func (o *Orchestrator) Appointments() []*models.Appointment {
	out := make([]*models.Appointment, len(o.appts))
	copy(out, o.appts)
	return out
}

// Windows returns the run's window order.
func (o *Orchestrator) Windows() []models.TimeWindow {
	out := make([]models.TimeWindow, len(o.windows))
	copy(out, o.windows)
	return out
}

// WindowAborted reports whether w's last solve failed on the oracle and
// was never successfully retried.
func (o *Orchestrator) WindowAborted(w models.TimeWindow) bool {
	return o.aborted[w]
}

// Aborted reports whether any window's solve was aborted without a
// successful retry. A true value means the run halted early and later
// windows were never attempted.
func (o *Orchestrator) Aborted() bool {
	return len(o.aborted) > 0
}

// Roster exposes the roster manager for reporting.
func (o *Orchestrator) Roster() *roster.Manager { return o.roster }

func (o *Orchestrator) pendingFor(w models.TimeWindow) []*models.Appointment {
	var out []*models.Appointment
	for _, a := range o.appts {
		if a.Window == w && a.Status == models.StatusPending {
			out = append(out, a)
		}
	}
	return out
}

func (o *Orchestrator) byID(id string) *models.Appointment {
	for _, a := range o.appts {
		if a.ID == id {
			return a
		}
	}
	return nil
}
