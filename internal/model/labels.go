package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayLabel names the calendar day of t relative to now: "Today", "Tomorrow",
// "Yesterday", or the weekday name.
func DayLabel(t, now time.Time) string {
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	day := time.Date(ty, tm, td, 0, 0, 0, 0, now.Location())
	ny, nm, nd := now.Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location())

	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return t.Weekday().String()
	}
}

// MomentLabel renders e.g. "Tomorrow, 5:30 AM".
func MomentLabel(t, now time.Time) string {
	return fmt.Sprintf("%s, %s", DayLabel(t, now), TimeOfDayOf(t.In(now.Location())).Label())
}

func ZonesLabel(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	noun := "Zones"
	if len(ids) == 1 {
		noun = "Zone"
	}
	return noun + " " + strings.Join(parts, ", ")
}
