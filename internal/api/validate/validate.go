package validate

import (
	"net/url"
	"strconv"
	"strings"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Add appends non-nil field errors.
func (e Errs) Add(fs ...*ErrField) Errs {
	for _, f := range fs {
		if f != nil {
			e = append(e, *f)
		}
	}
	return e
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MaxLen(field, value string, max int) *ErrField {
	if len(value) > max {
		return &ErrField{Field: field, Msg: "must be at most " + strconv.Itoa(max) + " characters"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

// QueryInt reads an optional integer query parameter. A missing value
// yields def.
func QueryInt(q url.Values, field string, def int) (int, *ErrField) {
	raw := strings.TrimSpace(q.Get(field))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ErrField{Field: field, Msg: "must be an integer"}
	}
	return n, nil
}
