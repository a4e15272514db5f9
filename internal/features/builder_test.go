package features

import (
	"errors"
	"math"
	"testing"

	"churn-predictor/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueOf(t *testing.T, vec []float64, schema []string, name string) float64 {
	t.Helper()
	for i, n := range schema {
		if n == name {
			return vec[i]
		}
	}
	t.Fatalf("feature %s not in schema", name)
	return 0
}

func TestBuild_ReferenceProfile(t *testing.T) {
	schema := Names()
	vec, err := Build(DefaultProfile(), schema)
	require.NoError(t, err)
	require.Len(t, vec, len(schema))

	expected := map[string]float64{
		common.FeatureCreditScore:            600,
		common.FeatureAge:                    40,
		common.FeatureTenure:                 5,
		common.FeatureBalance:                50000,
		common.FeatureNumOfProducts:          1,
		common.FeatureHasCrCard:              1,
		common.FeatureIsActiveMember:         1,
		common.FeatureEstimatedSalary:        50000,
		common.FeatureBalanceToSalary:        1.0,
		common.FeatureTenureToAge:            0.125,
		common.FeatureBalanceAgeInteraction:  2000000.0,
		common.FeatureProductsAgeInteraction: 40,
		common.FeatureGeographySpain:         0,
		common.FeatureGeographyGermany:       0,
		common.FeatureGenderMale:             1,
	}
	for name, want := range expected {
		assert.Equal(t, want, valueOf(t, vec, schema, name), name)
	}
}

func TestBuild_FollowsSchemaOrder(t *testing.T) {
	schema := []string{
		common.FeatureGenderMale,
		common.FeatureAge,
		common.FeatureBalanceToSalary,
		common.FeatureCreditScore,
	}

	vec, err := Build(DefaultProfile(), schema)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 40, 1.0, 600}, vec)
}

func TestBuild_Idempotent(t *testing.T) {
	p := RawCustomerProfile{
		CreditScore: 712, Age: 33, Gender: Female, Geography: Germany, Tenure: 7,
		Balance: 123456.78, NumOfProducts: 2, HasCrCard: false, IsActiveMember: true,
		EstimatedSalary: 98765.43,
	}
	a, err := Build(p, Names())
	require.NoError(t, err)
	b, err := Build(p, Names())
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, math.Float64bits(a[i]), math.Float64bits(b[i]), "position %d", i)
	}
}

func TestEngineer_DivisionGuards(t *testing.T) {
	p := DefaultProfile()
	p.EstimatedSalary = 0
	p.Age = 0

	e := Engineer(p)
	assert.Equal(t, 0.0, e.BalanceToSalary)
	assert.Equal(t, 0.0, e.TenureToAge)
	assert.False(t, math.IsNaN(e.BalanceToSalary) || math.IsInf(e.BalanceToSalary, 0))
	assert.False(t, math.IsNaN(e.TenureToAge) || math.IsInf(e.TenureToAge, 0))
}

func TestEngineer_OneHot(t *testing.T) {
	testCases := []struct {
		name      string
		geography Geography
		gender    Gender
		spain     float64
		germany   float64
		male      float64
	}{
		{"france female baseline", France, Female, 0, 0, 0},
		{"spain male", Spain, Male, 1, 0, 1},
		{"germany female", Germany, Female, 0, 1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultProfile()
			p.Geography = tc.geography
			p.Gender = tc.gender

			e := Engineer(p)
			assert.Equal(t, tc.spain, e.GeographySpain)
			assert.Equal(t, tc.germany, e.GeographyGermany)
			assert.Equal(t, tc.male, e.GenderMale)
		})
	}
}

func TestEngineer_Booleans(t *testing.T) {
	p := DefaultProfile()
	p.HasCrCard = false
	p.IsActiveMember = false

	e := Engineer(p)
	assert.Equal(t, 0.0, e.HasCrCard)
	assert.Equal(t, 0.0, e.IsActiveMember)
}

func TestCompile_SchemaMismatch(t *testing.T) {
	testCases := []struct {
		name     string
		schema   []string
		wantName string
	}{
		{"unknown feature", []string{common.FeatureAge, "Surname_Length"}, "Surname_Length"},
		{"france column", []string{common.FeatureAge, "Geography_France"}, "Geography_France"},
		{"duplicate", []string{common.FeatureAge, common.FeatureAge}, common.FeatureAge},
		{"empty", nil, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vec, err := Build(DefaultProfile(), tc.schema)
			require.Error(t, err)
			assert.Nil(t, vec)

			var mismatch *SchemaMismatchError
			require.True(t, errors.As(err, &mismatch))
			assert.Equal(t, tc.wantName, mismatch.Name)
		})
	}
}

func TestLayout_SubsetAndNames(t *testing.T) {
	schema := []string{common.FeatureTenure, common.FeatureTenureToAge}
	l, err := Compile(schema)
	require.NoError(t, err)

	assert.Equal(t, 2, l.Len())
	names := l.Names()
	assert.Equal(t, schema, names)

	names[0] = "mutated"
	assert.Equal(t, common.FeatureTenure, l.Names()[0])

	assert.Equal(t, []float64{5, 0.125}, l.Build(DefaultProfile()))
}

func TestNames_AllResolvable(t *testing.T) {
	l, err := Compile(Names())
	require.NoError(t, err)
	assert.Equal(t, len(accessors), l.Len())
}
