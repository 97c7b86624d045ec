package abas

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/robby/pjm/internal/hours"
)

// Action is the EDP operation of a request.
type Action string

const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionQuery      Action = "query"
	ActionInfosystem Action = "infosystem"
)

// Field is a name/value pair of create and infosystem requests.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Filter restricts a query to records whose field matches a value.
type Filter struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Operator string `json:"operator"`
}

// Equals builds an atomic EQUALS filter.
func Equals(name, value string) *Filter {
	return &Filter{Type: "atomic_condition", Name: name, Value: value, Operator: "EQUALS"}
}

// Request is the JSON payload posted to the EDP endpoint.
type Request struct {
	Action           Action   `json:"action"`
	DatabaseAndGroup string   `json:"database_and_group,omitempty"`
	ID               string   `json:"id,omitempty"`
	Infosystem       string   `json:"infosystem,omitempty"`
	Fields           []string `json:"fields,omitempty"`
	TableFields      []string `json:"table_fields,omitempty"`
	Filter           *Filter  `json:"filter,omitempty"`
	Data             []Field  `json:"data,omitempty"`

	// SideEffects marks infosystem runs that change ERP state.
	SideEffects bool `json:"-"`
}

// readOnly reports whether the request can be repeated safely.
func (r Request) readOnly() bool {
	switch r.Action {
	case ActionQuery, ActionRead:
		return true
	case ActionInfosystem:
		return !r.SideEffects
	default:
		return false
	}
}

// Response is the EDP envelope.
type Response struct {
	Success    bool
	Code       string
	Message    string
	ResultData json.RawMessage
}

type envelope struct {
	Success    *bool           `json:"success"`
	Code       any             `json:"code"`
	Message    string          `json:"message"`
	ResultData json.RawMessage `json:"result_data"`
}

func decodeEnvelope(body []byte) (*Response, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	resp := &Response{
		Success:    env.Success == nil || *env.Success,
		Message:    env.Message,
		ResultData: env.ResultData,
	}
	if env.Code != nil {
		resp.Code = fmt.Sprint(env.Code)
	}
	return resp, nil
}

// Record is one flat ERP record, field name to value. Numbers decode as json.Number.
type Record map[string]any

// String returns the field as text; missing and null fields are empty.
func (r Record) String(name string) string {
	switch v := r[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Number returns the field as a number; see hours.Numeric.
func (r Record) Number(name string) (float64, bool) {
	return hours.Numeric(r[name])
}

// QueryResult is the result of a query action.
type QueryResult struct {
	Records []Record
}

// ReadResult is the result of a read action.
type ReadResult struct {
	Fields Record
	Table  []Record
}

// InfosystemResult is the result of an infosystem run.
type InfosystemResult struct {
	Fields Record
	Table  []Record
}

// CreateResult is the result of a create action.
type CreateResult struct {
	ID string
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// parseQuery accepts a list of flat records or records nested under "fields".
func parseQuery(data json.RawMessage) (QueryResult, error) {
	if len(data) == 0 || string(data) == "null" {
		return QueryResult{}, nil
	}
	var raw []Record
	if err := unmarshalNumbers(data, &raw); err != nil {
		return QueryResult{}, fmt.Errorf("query result: %w", err)
	}
	for i, rec := range raw {
		if nested, ok := rec["fields"].(map[string]any); ok && len(rec) <= 2 {
			flat := Record(nested)
			if id, ok := rec["id"]; ok {
				if _, exists := flat["id"]; !exists {
					flat["id"] = id
				}
			}
			raw[i] = flat
		}
	}
	return QueryResult{Records: raw}, nil
}

type tableResult struct {
	Fields Record   `json:"fields"`
	Table  []Record `json:"table"`
}

func parseTable(data json.RawMessage) (tableResult, error) {
	var res tableResult
	if len(data) == 0 || string(data) == "null" {
		return res, nil
	}
	if err := unmarshalNumbers(data, &res); err != nil {
		return res, fmt.Errorf("table result: %w", err)
	}
	return res, nil
}

func parseCreate(data json.RawMessage) (CreateResult, error) {
	var res struct {
		ID any `json:"id"`
	}
	if err := unmarshalNumbers(data, &res); err != nil {
		return CreateResult{}, fmt.Errorf("create result: %w", err)
	}
	id := Record{"id": res.ID}.String("id")
	if id == "" {
		return CreateResult{}, fmt.Errorf("create result has no id")
	}
	return CreateResult{ID: id}, nil
}
