package server

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"churn-predictor/internal/features"
)

// profileFromForm overlays submitted form fields on the form defaults. Fields
// that are absent keep their default; fields that do not parse are reported
// together as a features.ValidationError.
func profileFromForm(values url.Values) (features.RawCustomerProfile, error) {
	p := features.DefaultProfile()
	var problems []features.FieldError
	fail := func(field, msg string) {
		problems = append(problems, features.FieldError{Field: field, Message: msg})
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{"credit_score", &p.CreditScore},
		{"age", &p.Age},
		{"tenure", &p.Tenure},
		{"num_of_products", &p.NumOfProducts},
	}
	for _, f := range ints {
		if v := strings.TrimSpace(values.Get(f.field)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				fail(f.field, "must be a whole number")
				continue
			}
			*f.dst = n
		}
	}

	floats := []struct {
		field string
		dst   *float64
	}{
		{"balance", &p.Balance},
		{"estimated_salary", &p.EstimatedSalary},
	}
	for _, f := range floats {
		if v := strings.TrimSpace(values.Get(f.field)); v != "" {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				fail(f.field, "must be a number")
				continue
			}
			*f.dst = x
		}
	}

	bools := []struct {
		field string
		dst   *bool
	}{
		{"has_cr_card", &p.HasCrCard},
		{"is_active_member", &p.IsActiveMember},
	}
	for _, f := range bools {
		if v := strings.TrimSpace(values.Get(f.field)); v != "" {
			b, err := parseFlag(v)
			if err != nil {
				fail(f.field, "must be yes/no, true/false or 1/0")
				continue
			}
			*f.dst = b
		}
	}

	if v := values.Get("gender"); v != "" {
		g, err := features.ParseGender(v)
		if err != nil {
			fail("gender", err.Error())
		} else {
			p.Gender = g
		}
	}
	if v := values.Get("geography"); v != "" {
		g, err := features.ParseGeography(v)
		if err != nil {
			fail("geography", err.Error())
		} else {
			p.Geography = g
		}
	}

	if len(problems) > 0 {
		return p, &features.ValidationError{Problems: problems}
	}
	return p, nil
}

// profileFromJSON decodes one profile over the form defaults.
func profileFromJSON(data []byte) (features.RawCustomerProfile, error) {
	p := features.DefaultProfile()
	if err := json.Unmarshal(data, &p); err != nil {
		return p, err
	}
	// Accept any casing; unknown values are left for Validate to report.
	if g, err := features.ParseGender(string(p.Gender)); err == nil {
		p.Gender = g
	}
	if g, err := features.ParseGeography(string(p.Geography)); err == nil {
		p.Geography = g
	}
	return p, nil
}

func parseFlag(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(v)
}
