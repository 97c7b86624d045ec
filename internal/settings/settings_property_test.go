package settings

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/robby/pjm/internal/domain"
	"pgregory.net/rapid"
)

func genAnchor() *rapid.Generator[domain.Anchor] {
	return rapid.SampledFrom([]domain.Anchor{domain.AnchorToday, domain.AnchorG6, domain.AnchorG7, domain.AnchorG8})
}

func genRule() *rapid.Generator[domain.DateRule] {
	return rapid.Custom(func(t *rapid.T) domain.DateRule {
		return domain.NewDateRule(
			genAnchor().Draw(t, "start_anchor"),
			rapid.IntRange(-60, 60).Draw(t, "start_days"),
			genAnchor().Draw(t, "end_anchor"),
			rapid.IntRange(-60, 60).Draw(t, "end_days"),
		)
	})
}

// genSettings draws defaults plus arbitrary valid overrides.
func genSettings() *rapid.Generator[Settings] {
	return rapid.Custom(func(t *rapid.T) Settings {
		s := Default()
		s.DuplicateImagingTask = rapid.Bool().Draw(t, "imaging")
		s.ReleaseTasks = rapid.Bool().Draw(t, "release")
		s.IPCPerson = rapid.StringMatching(`[A-Z]{2,4}`).Draw(t, "ipc")
		s.BaseAddress = fmt.Sprintf("http://%s:%d/EDP",
			rapid.StringMatching(`[a-z][a-z0-9-]{0,10}`).Draw(t, "host"),
			rapid.IntRange(1, 65535).Draw(t, "port"))

		depts := rapid.SliceOfDistinct(rapid.SampledFrom(domain.Departments), func(d domain.Department) domain.Department { return d }).Draw(t, "depts")
		for _, d := range depts {
			s.TaskNames[d] = rapid.StringN(1, 40, -1).Draw(t, "name")
			s.DateRules[d] = genRule().Draw(t, "rule")
		}

		extras := rapid.IntRange(0, 3).Draw(t, "extras")
		for i := 0; i < extras; i++ {
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			key := rapid.StringMatching(`x_[a-z]{1,8}`).Draw(t, "extra_key")
			value := rapid.IntRange(-1000, 1000).Draw(t, "extra_value")
			s.Extra[key] = json.RawMessage(fmt.Sprint(value))
		}
		return s
	})
}

// Parsing a saved document yields the settings that were saved.
func TestSettings_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := genSettings().Draw(t, "settings")

		data, err := Marshal(s)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		got, err := Parse(data)
		if err != nil {
			t.Fatalf("parse: %v\n%s", err, data)
		}
		if !reflect.DeepEqual(s, got) {
			t.Fatalf("round trip changed settings:\nwant %+v\ngot  %+v", s, got)
		}
	})
}
