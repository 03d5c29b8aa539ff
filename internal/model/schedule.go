package model

import (
	"strings"
	"time"
)

type Schedule struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Time     TimeOfDay    `json:"time"`
	Days     Weekdays     `json:"days"`
	Zones    []int        `json:"zones"`
	Duration int          `json:"duration"`
	Active   bool         `json:"active"`
	Actions  []ActionKind `json:"actions"`
}

// ScheduleDraft is schedule input as it arrives from a caller, before the
// time and days are parsed.
type ScheduleDraft struct {
	Name     string   `json:"name" yaml:"name"`
	Time     string   `json:"time" yaml:"time"`
	Days     []string `json:"days" yaml:"days"`
	Zones    []int    `json:"zones" yaml:"zones"`
	Duration int      `json:"duration" yaml:"duration"`
	Actions  []string `json:"actions" yaml:"actions"`
}

type SchedulePatch struct {
	Name     *string
	Time     *TimeOfDay
	Days     *Weekdays
	Zones    *[]int
	Duration *int
	Active   *bool
	Actions  *[]ActionKind
}

// Parse converts a draft into a schedule, collecting every problem into a
// single ValidationError.
func (d ScheduleDraft) Parse() (Schedule, error) {
	verr := &ValidationError{}

	s := Schedule{
		Name:     strings.TrimSpace(d.Name),
		Zones:    dedupeZones(d.Zones),
		Duration: d.Duration,
		Active:   true,
	}

	if strings.TrimSpace(d.Time) == "" {
		verr.add("time is required")
	} else if t, err := ParseTimeOfDay(d.Time); err != nil {
		verr.add("%v", err)
	} else {
		s.Time = t
	}

	if days, err := ParseWeekdays(d.Days); err != nil {
		verr.add("%v", err)
	} else {
		s.Days = days
	}

	for _, a := range d.Actions {
		s.Actions = append(s.Actions, ActionKind(strings.TrimSpace(a)))
	}

	verr.Problems = append(verr.Problems, s.problems()...)
	if err := verr.orNil(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

func (s Schedule) Validate() error {
	verr := &ValidationError{Problems: s.problems()}
	return verr.orNil()
}

func (s Schedule) problems() []string {
	var problems []string
	if s.Name == "" {
		problems = append(problems, "name is required")
	}
	if s.Days.Empty() {
		problems = append(problems, "at least one day is required")
	}
	if len(s.Zones) == 0 {
		problems = append(problems, "at least one zone is required")
	}
	for _, z := range s.Zones {
		if z <= 0 {
			problems = append(problems, "zone ids must be positive")
			break
		}
	}
	if s.Duration <= 0 {
		problems = append(problems, "duration must be greater than zero")
	}
	if len(s.Actions) == 0 {
		problems = append(problems, "at least one action is required")
	}
	for _, a := range s.Actions {
		if !a.Valid() {
			problems = append(problems, "unknown action "+string(a))
		}
	}
	return problems
}

func (p SchedulePatch) Apply(s Schedule) Schedule {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Time != nil {
		s.Time = *p.Time
	}
	if p.Days != nil {
		s.Days = *p.Days
	}
	if p.Zones != nil {
		s.Zones = append([]int(nil), (*p.Zones)...)
	}
	if p.Duration != nil {
		s.Duration = *p.Duration
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	if p.Actions != nil {
		s.Actions = append([]ActionKind(nil), (*p.Actions)...)
	}
	return s
}

// Edit builds a patch that replaces everything but the id and active flag.
func (s Schedule) Edit() SchedulePatch {
	zones := append([]int(nil), s.Zones...)
	actions := append([]ActionKind(nil), s.Actions...)
	return SchedulePatch{
		Name:     &s.Name,
		Time:     &s.Time,
		Days:     &s.Days,
		Zones:    &zones,
		Duration: &s.Duration,
		Actions:  &actions,
	}
}

func (s Schedule) Clone() Schedule {
	s.Zones = append([]int(nil), s.Zones...)
	s.Actions = append([]ActionKind(nil), s.Actions...)
	return s
}

func (s Schedule) Window() time.Duration {
	return time.Duration(s.Duration) * time.Minute
}

// ActionLabels returns the event labels for a firing of s. Schedules stored
// without actions water by default.
func (s Schedule) ActionLabels() []string {
	if len(s.Actions) == 0 {
		return []string{string(ActionWatering)}
	}
	labels := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		labels = append(labels, string(a))
	}
	return labels
}

func (s Schedule) Includes(zoneID int) bool {
	for _, z := range s.Zones {
		if z == zoneID {
			return true
		}
	}
	return false
}

// Matches reports whether s fires during the minute containing t. The match
// is exact on hour and minute.
func (s Schedule) Matches(t time.Time) bool {
	return s.Active &&
		s.Days.Contains(t.Weekday()) &&
		s.Time.Hour == t.Hour() &&
		s.Time.Minute == t.Minute()
}

// NextRun returns the first firing at or after the start of the minute
// containing after.
func (s Schedule) NextRun(after time.Time) (time.Time, bool) {
	if !s.Active || s.Days.Empty() {
		return time.Time{}, false
	}
	from := after.Truncate(time.Minute)
	for i := 0; i <= 7; i++ {
		day := from.AddDate(0, 0, i)
		if !s.Days.Contains(day.Weekday()) {
			continue
		}
		candidate := s.Time.On(day)
		if !candidate.Before(from) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func dedupeZones(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
