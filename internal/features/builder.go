package features

import (
	"fmt"

	"churn-predictor/internal/common"
)

// Engineered holds every value the builder can produce for one profile,
// before it is laid out according to a training schema.
type Engineered struct {
	CreditScore            float64
	Age                    float64
	Tenure                 float64
	Balance                float64
	NumOfProducts          float64
	HasCrCard              float64
	IsActiveMember         float64
	EstimatedSalary        float64
	BalanceToSalary        float64
	TenureToAge            float64
	BalanceAgeInteraction  float64
	ProductsAgeInteraction float64
	GeographySpain         float64
	GeographyGermany       float64
	GenderMale             float64
}

// accessors maps each schema name to the field carrying its value.
var accessors = map[string]func(*Engineered) float64{
	common.FeatureCreditScore:            func(e *Engineered) float64 { return e.CreditScore },
	common.FeatureAge:                    func(e *Engineered) float64 { return e.Age },
	common.FeatureTenure:                 func(e *Engineered) float64 { return e.Tenure },
	common.FeatureBalance:                func(e *Engineered) float64 { return e.Balance },
	common.FeatureNumOfProducts:          func(e *Engineered) float64 { return e.NumOfProducts },
	common.FeatureHasCrCard:              func(e *Engineered) float64 { return e.HasCrCard },
	common.FeatureIsActiveMember:         func(e *Engineered) float64 { return e.IsActiveMember },
	common.FeatureEstimatedSalary:        func(e *Engineered) float64 { return e.EstimatedSalary },
	common.FeatureBalanceToSalary:        func(e *Engineered) float64 { return e.BalanceToSalary },
	common.FeatureTenureToAge:            func(e *Engineered) float64 { return e.TenureToAge },
	common.FeatureBalanceAgeInteraction:  func(e *Engineered) float64 { return e.BalanceAgeInteraction },
	common.FeatureProductsAgeInteraction: func(e *Engineered) float64 { return e.ProductsAgeInteraction },
	common.FeatureGeographySpain:         func(e *Engineered) float64 { return e.GeographySpain },
	common.FeatureGeographyGermany:       func(e *Engineered) float64 { return e.GeographyGermany },
	common.FeatureGenderMale:             func(e *Engineered) float64 { return e.GenderMale },
}

// Names returns every feature name the builder produces, in the order the
// training notebook assembled them.
func Names() []string {
	return []string{
		common.FeatureCreditScore,
		common.FeatureAge,
		common.FeatureTenure,
		common.FeatureBalance,
		common.FeatureNumOfProducts,
		common.FeatureHasCrCard,
		common.FeatureIsActiveMember,
		common.FeatureEstimatedSalary,
		common.FeatureBalanceToSalary,
		common.FeatureTenureToAge,
		common.FeatureBalanceAgeInteraction,
		common.FeatureProductsAgeInteraction,
		common.FeatureGeographySpain,
		common.FeatureGeographyGermany,
		common.FeatureGenderMale,
	}
}

// Engineer computes the derived and encoded values for a profile.
func Engineer(p RawCustomerProfile) Engineered {
	age := float64(p.Age)
	tenure := float64(p.Tenure)
	products := float64(p.NumOfProducts)

	e := Engineered{
		CreditScore:            float64(p.CreditScore),
		Age:                    age,
		Tenure:                 tenure,
		Balance:                p.Balance,
		NumOfProducts:          products,
		HasCrCard:              boolToFloat(p.HasCrCard),
		IsActiveMember:         boolToFloat(p.IsActiveMember),
		EstimatedSalary:        p.EstimatedSalary,
		BalanceAgeInteraction:  p.Balance * age,
		ProductsAgeInteraction: products * age,
		GeographySpain:         boolToFloat(p.Geography == Spain),
		GeographyGermany:       boolToFloat(p.Geography == Germany),
		GenderMale:             boolToFloat(p.Gender == Male),
	}

	// zero denominators yield 0, never Inf or NaN
	if p.EstimatedSalary != 0 {
		e.BalanceToSalary = p.Balance / p.EstimatedSalary
	}
	if p.Age != 0 {
		e.TenureToAge = tenure / age
	}

	return e
}

// SchemaMismatchError reports a training schema the builder cannot satisfy,
// which means the artifact set is stale or belongs to another model.
type SchemaMismatchError struct {
	Name   string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("feature schema mismatch on %q: %s", e.Name, e.Reason)
}

// Layout is a schema resolved against the builder's accessors. Resolve it
// once at startup and reuse it for every request.
type Layout struct {
	names  []string
	fields []func(*Engineered) float64
}

// Compile resolves schema into a Layout. Unknown or repeated names fail with
// SchemaMismatchError.
func Compile(schema []string) (*Layout, error) {
	if len(schema) == 0 {
		return nil, &SchemaMismatchError{Reason: "schema is empty"}
	}

	seen := make(map[string]bool, len(schema))
	l := &Layout{
		names:  make([]string, len(schema)),
		fields: make([]func(*Engineered) float64, len(schema)),
	}
	for i, name := range schema {
		get, ok := accessors[name]
		if !ok {
			return nil, &SchemaMismatchError{Name: name, Reason: "feature is not produced by the builder"}
		}
		if seen[name] {
			return nil, &SchemaMismatchError{Name: name, Reason: fmt.Sprintf("duplicate entry at position %d", i)}
		}
		seen[name] = true
		l.names[i] = name
		l.fields[i] = get
	}
	return l, nil
}

// Len is the width of the vectors this layout produces.
func (l *Layout) Len() int { return len(l.names) }

// Names returns a copy of the schema order.
func (l *Layout) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Vector lays out an already engineered profile in schema order.
func (l *Layout) Vector(e Engineered) []float64 {
	out := make([]float64, len(l.fields))
	for i, get := range l.fields {
		out[i] = get(&e)
	}
	return out
}

// Build engineers p and lays it out in schema order.
func (l *Layout) Build(p RawCustomerProfile) []float64 {
	return l.Vector(Engineer(p))
}

// Build is the one-shot form of Compile followed by Layout.Build. No partial
// vector is returned when the schema does not match.
func Build(p RawCustomerProfile, schema []string) ([]float64, error) {
	l, err := Compile(schema)
	if err != nil {
		return nil, err
	}
	return l.Build(p), nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
