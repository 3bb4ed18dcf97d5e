package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"appointment-dispatch/errors"
	"appointment-dispatch/models"
)

// ParseAppointments reads appointment records from CSV. Lines starting
// with '#' are headers/comments. Expected fields:
//
//	id, lat, lng, required tags (';'-separated), window
//
// The window must be one of the configured window names.
func ParseAppointments(r io.Reader, windows []models.TimeWindow) ([]*models.Appointment, error) {
	known := windowSet(windows)
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var appts []*models.Appointment
	lineNum := 0
	for {
		record, err := reader.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		if skippable(record) {
			continue
		}
		if len(record) != 5 {
			return nil, &errors.ParseError{Line: lineNum, Record: record, Err: errors.ErrInvalidFieldCount}
		}

		a := &models.Appointment{
			ID:     strings.TrimSpace(record[0]),
			Status: models.StatusPending,
		}
		if a.ID == "" {
			return nil, &errors.ParseError{Line: lineNum, Record: record, Err: errors.ErrEmptyRecord}
		}

		a.Location, err = parseCoordinate(record[1], record[2])
		if err != nil {
			return nil, &errors.ParseError{Line: lineNum, Record: record, Err: err}
		}

		a.RequiredTags = parseTags(record[3])

		w := models.TimeWindow(strings.TrimSpace(record[4]))
		if !known[w] {
			return nil, &errors.ParseError{
				Line:   lineNum,
				Record: record,
				Err:    fmt.Errorf("%w: %q", errors.ErrUnknownWindow, w),
			}
		}
		a.Window = w

		appts = append(appts, a)
	}
	return appts, nil
}

// ParseRoster reads the initial representative roster from CSV. Lines
// starting with '#' are headers/comments. Expected fields:
//
//	id, name, lat, lng, expertise tags (';'-separated), available windows (';'-separated)
//
// The lat/lng pair is the representative's home base. Availability lists
// the window names the representative works; every name must be one of
// the configured windows.
func ParseRoster(r io.Reader, windows []models.TimeWindow) ([]*models.Representative, error) {
	known := windowSet(windows)
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var reps []*models.Representative
	lineNum := 0
	for {
		record, err := reader.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		if skippable(record) {
			continue
		}
		if len(record) != 6 {
			return nil, &errors.ParseError{Line: lineNum, Record: record, Err: errors.ErrInvalidFieldCount}
		}

		rep := &models.Representative{
			ID:        strings.TrimSpace(record[0]),
			Name:      strings.TrimSpace(record[1]),
			Available: make(map[models.TimeWindow]bool),
		}
		if rep.ID == "" {
			return nil, &errors.ParseError{Line: lineNum, Record: record, Err: errors.ErrEmptyRecord}
		}

		rep.Home, err = parseCoordinate(record[2], record[3])
		if err != nil {
			return nil, &errors.ParseError{Line: lineNum, Record: record, Err: err}
		}
		rep.Location = rep.Home

		rep.Expertise = parseTags(record[4])

		for _, name := range parseTags(record[5]) {
			w := models.TimeWindow(name)
			if !known[w] {
				return nil, &errors.ParseError{
					Line:   lineNum,
					Record: record,
					Err:    fmt.Errorf("%w: %q", errors.ErrUnknownWindow, w),
				}
			}
			rep.Available[w] = true
		}

		reps = append(reps, rep)
	}
	return reps, nil
}

func parseCoordinate(latField, lngField string) (models.Coordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latField), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: %v", errors.ErrInvalidCoordinate, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngField), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: %v", errors.ErrInvalidCoordinate, err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return models.Coordinate{}, fmt.Errorf("%w: out of range (%v, %v)", errors.ErrInvalidCoordinate, lat, lng)
	}
	return models.Coordinate{Lat: lat, Lng: lng}, nil
}

// parseTags splits a ';'-separated field, trimming and dropping empties.
func parseTags(field string) []string {
	var out []string
	for _, t := range strings.Split(field, ";") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func skippable(record []string) bool {
	if len(record) == 0 {
		return true
	}
	if strings.HasPrefix(record[0], "#") {
		return true
	}
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

func windowSet(windows []models.TimeWindow) map[models.TimeWindow]bool {
	set := make(map[models.TimeWindow]bool, len(windows))
	for _, w := range windows {
		set[w] = true
	}
	return set
}
