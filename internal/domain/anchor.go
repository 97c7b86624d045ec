package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Anchor is the reference point of a date rule: today or one of the gateways.
type Anchor int

const (
	AnchorToday Anchor = iota
	AnchorG6           // kickoff
	AnchorG7           // design
	AnchorG8           // production
)

// Gateways are the anchors backed by ERP milestone dates.
var Gateways = []Anchor{AnchorG6, AnchorG7, AnchorG8}

var anchorNames = map[Anchor]string{
	AnchorToday: "TODAY",
	AnchorG6:    "G6",
	AnchorG7:    "G7",
	AnchorG8:    "G8",
}

// ParseAnchor parses "TODAY", "G6", "G7" or "G8" (case-insensitive).
func ParseAnchor(s string) (Anchor, error) {
	for a, name := range anchorNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("invalid anchor %q (want TODAY, G6, G7 or G8)", s)
}

func (a Anchor) String() string {
	if name, ok := anchorNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Anchor(%d)", int(a))
}

// IsGateway reports whether a resolves through the milestone set.
func (a Anchor) IsGateway() bool {
	return a == AnchorG6 || a == AnchorG7 || a == AnchorG8
}

func (a Anchor) MarshalText() ([]byte, error) {
	name, ok := anchorNames[a]
	if !ok {
		return nil, fmt.Errorf("invalid anchor %d", int(a))
	}
	return []byte(name), nil
}

func (a *Anchor) UnmarshalText(text []byte) error {
	parsed, err := ParseAnchor(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Offset is an anchor shifted by a signed number of calendar days.
type Offset struct {
	Anchor Anchor
	Days   int
}

func (o Offset) String() string {
	return fmt.Sprintf("%s%+d", o.Anchor, o.Days)
}

// DateRule derives a task interval: start and end are each an anchor plus offset.
type DateRule struct {
	Start Offset
	End   Offset
}

// NewDateRule builds a rule from the four components of the settings tuple.
func NewDateRule(startAnchor Anchor, startDays int, endAnchor Anchor, endDays int) DateRule {
	return DateRule{
		Start: Offset{Anchor: startAnchor, Days: startDays},
		End:   Offset{Anchor: endAnchor, Days: endDays},
	}
}

func (r DateRule) String() string {
	return fmt.Sprintf("(%s, %d, %s, %d)", r.Start.Anchor, r.Start.Days, r.End.Anchor, r.End.Days)
}

// ParseDateRule parses the String form "(G7, -14, G7, -7)"; the parentheses are optional.
func ParseDateRule(s string) (DateRule, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "("), ")")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 4 {
		return DateRule{}, fmt.Errorf("date rule %q must have 4 comma-separated parts", s)
	}

	startAnchor, err := ParseAnchor(parts[0])
	if err != nil {
		return DateRule{}, err
	}
	startDays, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return DateRule{}, fmt.Errorf("start offset must be an integer: %w", err)
	}
	endAnchor, err := ParseAnchor(parts[2])
	if err != nil {
		return DateRule{}, err
	}
	endDays, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return DateRule{}, fmt.Errorf("end offset must be an integer: %w", err)
	}
	return NewDateRule(startAnchor, startDays, endAnchor, endDays), nil
}

// MarshalJSON encodes the rule as the settings tuple [anchor, days, anchor, days].
func (r DateRule) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Start.Anchor, r.Start.Days, r.End.Anchor, r.End.Days})
}

// UnmarshalJSON decodes the settings tuple [anchor, days, anchor, days].
func (r *DateRule) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("date rule must be a 4-element array: %w", err)
	}
	if len(parts) != 4 {
		return fmt.Errorf("date rule must have 4 elements, got %d", len(parts))
	}

	var rule DateRule
	if err := json.Unmarshal(parts[0], &rule.Start.Anchor); err != nil {
		return fmt.Errorf("start anchor: %w", err)
	}
	if err := json.Unmarshal(parts[1], &rule.Start.Days); err != nil {
		return fmt.Errorf("start offset must be an integer: %w", err)
	}
	if err := json.Unmarshal(parts[2], &rule.End.Anchor); err != nil {
		return fmt.Errorf("end anchor: %w", err)
	}
	if err := json.Unmarshal(parts[3], &rule.End.Days); err != nil {
		return fmt.Errorf("end offset must be an integer: %w", err)
	}

	*r = rule
	return nil
}
