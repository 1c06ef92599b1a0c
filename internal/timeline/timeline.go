// Package timeline partitions items into day-relative buckets for display.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/benvon/productivity-assistant/internal/models"
)

// View names one bucket of a grouping
type View string

const (
	ViewToday    View = "today"
	ViewTomorrow View = "tomorrow"
	ViewUpcoming View = "upcoming"
)

// ParseView validates a view name. An empty name is not a view.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewToday, ViewTomorrow, ViewUpcoming:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view %q: expected today, tomorrow or upcoming", s)
	}
}

// Groups holds items split by day. Slices are never nil.
type Groups struct {
	Today    []*models.Item `json:"today"`
	Tomorrow []*models.Item `json:"tomorrow"`
	Upcoming []*models.Item `json:"upcoming"`
}

// Bucket returns the items for one view
func (g Groups) Bucket(v View) []*models.Item {
	switch v {
	case ViewToday:
		return g.Today
	case ViewTomorrow:
		return g.Tomorrow
	default:
		return g.Upcoming
	}
}

// Group assigns each item to today, tomorrow or upcoming by the date component
// of its datetime. Undated items, items on any other day (past included) and
// items whose datetime cannot be parsed all land in upcoming. Input order is
// kept within each bucket except that dated items in today and tomorrow are
// ordered by time.
func Group(items []*models.Item, today, tomorrow time.Time) Groups {
	g := Groups{
		Today:    []*models.Item{},
		Tomorrow: []*models.Item{},
		Upcoming: []*models.Item{},
	}

	for _, item := range items {
		if item == nil {
			continue
		}
		t, ok := item.Time()
		switch {
		case !ok:
			g.Upcoming = append(g.Upcoming, item)
		case sameDay(t, today):
			g.Today = append(g.Today, item)
		case sameDay(t, tomorrow):
			g.Tomorrow = append(g.Tomorrow, item)
		default:
			g.Upcoming = append(g.Upcoming, item)
		}
	}

	sortByTime(g.Today)
	sortByTime(g.Tomorrow)
	return g
}

// GroupAt groups relative to the calendar day of now
func GroupAt(items []*models.Item, now time.Time) Groups {
	today := StartOfDay(now)
	return Group(items, today, today.AddDate(0, 0, 1))
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameDay compares calendar dates. Item datetimes carry no zone, so the day
// is read from the wall clock of each value.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sortByTime(items []*models.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, _ := items[i].Time()
		tj, _ := items[j].Time()
		return wallClock(ti).Before(wallClock(tj))
	})
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
