package logic

import "github.com/flowsim/flowsim/engine"

// Break is one paid or unpaid break window within a shift, given as
// fractional hours-of-day offsets, grounded on shiftcalendar.h's BreakItem.
type Break struct {
	Start float64
	End   float64
}

// ShiftItem is one weekly recurring shift window, grounded on
// shiftcalendar.h's ShiftCalendarItem: a name, start/end hour-of-day, a
// per-weekday mask, and any breaks within it.
type ShiftItem struct {
	Name  string
	Start float64
	End   float64

	Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday bool

	Breaks []Break
}

func (s *ShiftItem) AddBreak(start, end float64) {
	s.Breaks = append(s.Breaks, Break{Start: start, End: end})
}

func (s *ShiftItem) runsOn(weekday int) bool {
	switch weekday {
	case 0:
		return s.Sunday
	case 1:
		return s.Monday
	case 2:
		return s.Tuesday
	case 3:
		return s.Wednesday
	case 4:
		return s.Thursday
	case 5:
		return s.Friday
	case 6:
		return s.Saturday
	}
	return false
}

// hoursPerWeek is the fixed cycle length shift windows recur over, in hours
// (7*24). Seconds are the simulation's native unit (spec.md §9), so times
// are converted to hours through secondsPerHour.
const hoursPerWeek = 7 * 24.0
const secondsPerHour = 3600.0

// ShiftCalendar controls when the nodes attached to it are Unplanned versus
// available, grounded on shiftcalendar.h.
type ShiftCalendar struct {
	Name   string
	Shifts []*ShiftItem
	Nodes  []int // attached node IDs
}

func NewShiftCalendar(name string) *ShiftCalendar {
	return &ShiftCalendar{Name: name}
}

func (c *ShiftCalendar) AddShift(s *ShiftItem)  { c.Shifts = append(c.Shifts, s) }
func (c *ShiftCalendar) Attach(nodeID int)      { c.Nodes = append(c.Nodes, nodeID) }

// IsOpenAt reports whether any configured shift covers `now`, treating time
// zero as the start of a Sunday (weekday 0), matching the reference
// calendar's epoch convention.
func (c *ShiftCalendar) IsOpenAt(now engine.SimTime) bool {
	hourOfWeek := float64(now) / secondsPerHour
	for hourOfWeek >= hoursPerWeek {
		hourOfWeek -= hoursPerWeek
	}
	weekday := int(hourOfWeek/24) % 7
	hourOfDay := hourOfWeek - float64(int(hourOfWeek/24))*24

	for _, s := range c.Shifts {
		if !s.runsOn(weekday) {
			continue
		}
		if hourOfDay < s.Start || hourOfDay >= s.End {
			continue
		}
		onBreak := false
		for _, b := range s.Breaks {
			if hourOfDay >= b.Start && hourOfDay < b.End {
				onBreak = true
				break
			}
		}
		if !onBreak {
			return true
		}
	}
	return false
}

// OnBreakAt reports whether a shift covers now but one of its breaks is
// active, distinguishing a paid pause from being fully off-shift.
func (c *ShiftCalendar) OnBreakAt(now engine.SimTime) bool {
	hourOfWeek := float64(now) / secondsPerHour
	for hourOfWeek >= hoursPerWeek {
		hourOfWeek -= hoursPerWeek
	}
	weekday := int(hourOfWeek/24) % 7
	hourOfDay := hourOfWeek - float64(int(hourOfWeek/24))*24

	for _, s := range c.Shifts {
		if !s.runsOn(weekday) {
			continue
		}
		if hourOfDay < s.Start || hourOfDay >= s.End {
			continue
		}
		for _, b := range s.Breaks {
			if hourOfDay >= b.Start && hourOfDay < b.End {
				return true
			}
		}
	}
	return false
}

// NextTransition finds the next time (after now) at which IsOpenAt's result
// flips, scanning forward in fixed increments; used to schedule the next
// ShiftCalendarStart / unplanned_begin event. stepHours bounds scan
// resolution — callers pass the smallest shift/break boundary granularity
// they configured.
func (c *ShiftCalendar) NextTransition(now engine.SimTime, stepHours float64) engine.SimTime {
	cur := c.IsOpenAt(now)
	t := now
	step := engine.SimTime(stepHours * secondsPerHour)
	if step <= 0 {
		step = engine.SimTime(secondsPerHour)
	}
	horizon := now + engine.SimTime(hoursPerWeek*secondsPerHour)*2
	for t < horizon {
		t += step
		if c.IsOpenAt(t) != cur {
			return t
		}
	}
	return t
}
