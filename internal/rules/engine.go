// Package rules turns symbolic date rules (anchor plus day offset) into concrete
// task intervals rolled onto business days.
package rules

import (
	"fmt"
	"time"

	"github.com/robby/pjm/internal/calendar"
	"github.com/robby/pjm/internal/domain"
)

// Table holds one date rule per department.
type Table map[domain.Department]domain.DateRule

// ResolveAnchor returns today for TODAY and the milestone date for a gateway.
func ResolveAnchor(anchor domain.Anchor, milestones domain.Milestones, today time.Time) (time.Time, error) {
	if anchor == domain.AnchorToday {
		return calendar.Day(today), nil
	}
	if !anchor.IsGateway() {
		return time.Time{}, fmt.Errorf("unknown anchor %v", anchor)
	}
	date, ok := milestones[anchor]
	if !ok || date.IsZero() {
		return time.Time{}, &domain.MissingMilestoneError{Anchor: anchor}
	}
	return calendar.Day(date), nil
}

// Resolve applies an offset to its resolved anchor without rolling.
func Resolve(o domain.Offset, milestones domain.Milestones, today time.Time) (time.Time, error) {
	base, err := ResolveAnchor(o.Anchor, milestones, today)
	if err != nil {
		return time.Time{}, err
	}
	return base.AddDate(0, 0, o.Days), nil
}

// ComputeInterval derives (start, end) for a department. Start rolls forward and
// end rolls backward; an end before start is returned as computed.
func ComputeInterval(dept domain.Department, milestones domain.Milestones, table Table, today time.Time) (start, end time.Time, err error) {
	rule, ok := table[dept]
	if !ok {
		return time.Time{}, time.Time{}, &domain.MissingRuleError{Department: dept}
	}
	return Apply(rule, milestones, today)
}

// Apply evaluates a single rule.
func Apply(rule domain.DateRule, milestones domain.Milestones, today time.Time) (start, end time.Time, err error) {
	rawStart, err := Resolve(rule.Start, milestones, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	rawEnd, err := Resolve(rule.End, milestones, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return calendar.RollForward(rawStart), calendar.RollBackward(rawEnd), nil
}

// Engine evaluates a rule table against an injectable clock.
type Engine struct {
	table Table
	now   func() time.Time
}

// NewEngine creates an engine for the given rules. A nil clock uses time.Now.
func NewEngine(table Table, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{table: table, now: now}
}

// Today returns the engine's current calendar day.
func (e *Engine) Today() time.Time {
	return calendar.Day(e.now())
}

// Rule returns the rule for a department.
func (e *Engine) Rule(dept domain.Department) (domain.DateRule, bool) {
	rule, ok := e.table[dept]
	return rule, ok
}

// ResolveAnchor resolves an anchor against the engine's clock.
func (e *Engine) ResolveAnchor(anchor domain.Anchor, milestones domain.Milestones) (time.Time, error) {
	return ResolveAnchor(anchor, milestones, e.Today())
}

// ComputeInterval derives a department's interval against the engine's clock.
func (e *Engine) ComputeInterval(dept domain.Department, milestones domain.Milestones) (time.Time, time.Time, error) {
	return ComputeInterval(dept, milestones, e.table, e.Today())
}
