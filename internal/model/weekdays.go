package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Weekdays is a set of days of the week, one bit per time.Weekday.
type Weekdays uint8

// Display order starts on Monday.
var weekOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

func WeekdayLabel(d time.Weekday) string {
	return d.String()[:3]
}

func ParseWeekday(label string) (time.Weekday, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, d := range weekOrder {
		name := strings.ToLower(d.String())
		if l == name || l == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", label)
}

func ParseWeekdays(labels []string) (Weekdays, error) {
	var set Weekdays
	for _, label := range labels {
		d, err := ParseWeekday(label)
		if err != nil {
			return 0, err
		}
		set = set.With(d)
	}
	return set, nil
}

func MustWeekdays(labels ...string) Weekdays {
	set, err := ParseWeekdays(labels)
	if err != nil {
		panic(err)
	}
	return set
}

func (w Weekdays) With(d time.Weekday) Weekdays {
	return w | 1<<uint(d)
}

func (w Weekdays) Contains(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

func (w Weekdays) Empty() bool {
	return w == 0
}

func (w Weekdays) Labels() []string {
	labels := []string{}
	for _, d := range weekOrder {
		if w.Contains(d) {
			labels = append(labels, WeekdayLabel(d))
		}
	}
	return labels
}

func (w Weekdays) String() string {
	return strings.Join(w.Labels(), ",")
}

func (w Weekdays) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Labels())
}

func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	set, err := ParseWeekdays(labels)
	if err != nil {
		return err
	}
	*w = set
	return nil
}
