package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"appointment-dispatch/aggregator"
	"appointment-dispatch/models"
)

// FormatText returns the human-readable schedule: one block per window
// in run order, assignment lines first, unassigned lines after.
func FormatText(report *aggregator.Report, windows []models.TimeWindow) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run %s (total travel cost %.2f)\n", report.RunID, report.TotalCost))

	for i, w := range windows {
		sb.WriteString(fmt.Sprintf("--- Window %d: %s ---\n", i+1, w))
		empty := true
		for _, row := range report.Assignments {
			if row.Window != w {
				continue
			}
			empty = false
			sb.WriteString(fmt.Sprintf("  %s -> %s (%s), cost=%.2f\n",
				row.AppointmentID, row.RepresentativeName, row.RepresentativeID, row.Cost))
		}
		for _, row := range report.Unassigned {
			if row.Window != w {
				continue
			}
			empty = false
			sb.WriteString(fmt.Sprintf("  %s unassigned: %s\n", row.AppointmentID, row.Reason))
		}
		if empty {
			sb.WriteString("  no appointments\n")
		}
	}
	return sb.String()
}

// FormatJSON returns the JSON representation of the report.
func FormatJSON(report *aggregator.Report) string {
	jsonBytes, _ := json.MarshalIndent(report, "", "  ")
	return string(jsonBytes)
}

// FormatCSV returns the CSV representation of the report. Assignment
// rows carry a cost and an empty reason; unassigned rows the opposite.
func FormatCSV(report *aggregator.Report, windows []models.TimeWindow) string {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	writer.Write([]string{
		"Window", "Appointment", "Representative", "Representative Name", "Cost", "Reason",
	})
	for _, w := range windows {
		for _, row := range report.Assignments {
			if row.Window != w {
				continue
			}
			writer.Write([]string{
				string(row.Window),
				row.AppointmentID,
				row.RepresentativeID,
				row.RepresentativeName,
				fmt.Sprintf("%.2f", row.Cost),
				"",
			})
		}
		for _, row := range report.Unassigned {
			if row.Window != w {
				continue
			}
			writer.Write([]string{
				string(row.Window),
				row.AppointmentID,
				"", "", "",
				row.Reason,
			})
		}
	}

	writer.Flush()
	return sb.String()
}
