// Package features turns a customer profile collected by the form front-end
// into the ordered numeric feature vector the churn model was trained on.
//
// Building is pure: the same profile and schema always produce the same
// vector, and no state is kept between calls.
package features

import (
	"fmt"
	"math"
	"strings"

	"churn-predictor/internal/common"
)

type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
)

type Geography string

const (
	France  Geography = "France"
	Spain   Geography = "Spain"
	Germany Geography = "Germany"
)

// ParseGender accepts the form values case-insensitively.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return Male, nil
	case "female":
		return Female, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// ParseGeography accepts the form values case-insensitively.
func ParseGeography(s string) (Geography, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "france":
		return France, nil
	case "spain":
		return Spain, nil
	case "germany":
		return Germany, nil
	}
	return "", fmt.Errorf("unknown geography %q", s)
}

// RawCustomerProfile is one submission of the customer form.
type RawCustomerProfile struct {
	CreditScore     int       `json:"credit_score"`
	Age             int       `json:"age"`
	Gender          Gender    `json:"gender"`
	Geography       Geography `json:"geography"`
	Tenure          int       `json:"tenure"`
	Balance         float64   `json:"balance"`
	NumOfProducts   int       `json:"num_of_products"`
	HasCrCard       bool      `json:"has_cr_card"`
	IsActiveMember  bool      `json:"is_active_member"`
	EstimatedSalary float64   `json:"estimated_salary"`
}

// DefaultProfile returns the values the form is pre-filled with.
func DefaultProfile() RawCustomerProfile {
	return RawCustomerProfile{
		CreditScore:     600,
		Age:             40,
		Gender:          Male,
		Geography:       France,
		Tenure:          5,
		Balance:         50000.0,
		NumOfProducts:   1,
		HasCrCard:       true,
		IsActiveMember:  true,
		EstimatedSalary: 50000.0,
	}
}

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a profile falls outside the form's input
// domain. It is recoverable: the user corrects the form and resubmits.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Message
	}
	return "invalid customer profile: " + strings.Join(parts, "; ")
}

// Validate checks the profile against the input domain. Builder and pipeline
// assume a validated profile.
func (p RawCustomerProfile) Validate() error {
	var problems []FieldError
	add := func(field, format string, args ...any) {
		problems = append(problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if p.CreditScore < common.MinCreditScore || p.CreditScore > common.MaxCreditScore {
		add("credit_score", "must be between %d and %d, got %d", common.MinCreditScore, common.MaxCreditScore, p.CreditScore)
	}
	if p.Age < common.MinAge || p.Age > common.MaxAge {
		add("age", "must be between %d and %d, got %d", common.MinAge, common.MaxAge, p.Age)
	}
	if p.Gender != Male && p.Gender != Female {
		add("gender", "must be Male or Female, got %q", p.Gender)
	}
	if p.Geography != France && p.Geography != Spain && p.Geography != Germany {
		add("geography", "must be France, Spain or Germany, got %q", p.Geography)
	}
	if p.Tenure < common.MinTenure || p.Tenure > common.MaxTenure {
		add("tenure", "must be between %d and %d, got %d", common.MinTenure, common.MaxTenure, p.Tenure)
	}
	if !validAmount(p.Balance) {
		add("balance", "must be a non-negative number, got %v", p.Balance)
	}
	if p.NumOfProducts < common.MinNumOfProducts || p.NumOfProducts > common.MaxNumOfProducts {
		add("num_of_products", "must be between %d and %d, got %d", common.MinNumOfProducts, common.MaxNumOfProducts, p.NumOfProducts)
	}
	if !validAmount(p.EstimatedSalary) {
		add("estimated_salary", "must be a non-negative number, got %v", p.EstimatedSalary)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
