// Package hours reduces raw ERP calculation records to planned hours per department.
package hours

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/robby/pjm/internal/domain"
)

// CalculationFields maps the ERP calculation fields to the department they estimate.
var CalculationFields = map[string]domain.Department{
	"yprjmcad": domain.DeptMCAD,
	"yprjecad": domain.DeptECAD,
	"yprjauto": domain.DeptAutomation,
	"yprjbild": domain.DeptImaging,
	"yprjas":   domain.DeptProjectManagement,
	"yprjpm":   domain.DeptProductDevelopment,
	"yprjtd":   domain.DeptTD,
	"yprjsoft": domain.DeptSoftware,
}

// FieldNames returns the calculation field names in a fixed order, as requested from the ERP.
func FieldNames() []string {
	return []string{"yprjmcad", "yprjauto", "yprjecad", "yprjbild", "yprjas", "yprjpm", "yprjtd", "yprjsoft"}
}

// Aggregate sums the known calculation fields of all records per department.
// Unknown fields and non-numeric values are skipped. Departments that never
// appear are absent from the result.
func Aggregate(records []map[string]any) domain.DepartmentHours {
	totals := make(domain.DepartmentHours)
	for _, record := range records {
		for field, raw := range record {
			dept, ok := CalculationFields[field]
			if !ok {
				continue
			}
			value, ok := Numeric(raw)
			if !ok {
				continue
			}
			totals[dept] += value
		}
	}
	return totals
}

// Numeric converts an ERP field value to a finite number. Strings may use a
// decimal comma ("12,5"); NaN, infinities and anything else that is not a
// number report false.
func Numeric(raw any) (float64, bool) {
	f, ok := number(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func number(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if strings.Contains(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
