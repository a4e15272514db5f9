package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultProfile(t *testing.T) {
	assert.NoError(t, DefaultProfile().Validate())
}

func TestValidate_OutOfRange(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *RawCustomerProfile)
		field  string
	}{
		{"credit score too high", func(p *RawCustomerProfile) { p.CreditScore = 1001 }, "credit_score"},
		{"credit score negative", func(p *RawCustomerProfile) { p.CreditScore = -1 }, "credit_score"},
		{"too young", func(p *RawCustomerProfile) { p.Age = 17 }, "age"},
		{"too old", func(p *RawCustomerProfile) { p.Age = 101 }, "age"},
		{"unknown gender", func(p *RawCustomerProfile) { p.Gender = "Other" }, "gender"},
		{"unknown geography", func(p *RawCustomerProfile) { p.Geography = "Italy" }, "geography"},
		{"tenure too long", func(p *RawCustomerProfile) { p.Tenure = 11 }, "tenure"},
		{"negative balance", func(p *RawCustomerProfile) { p.Balance = -0.01 }, "balance"},
		{"NaN balance", func(p *RawCustomerProfile) { p.Balance = math.NaN() }, "balance"},
		{"no products", func(p *RawCustomerProfile) { p.NumOfProducts = 0 }, "num_of_products"},
		{"too many products", func(p *RawCustomerProfile) { p.NumOfProducts = 5 }, "num_of_products"},
		{"infinite salary", func(p *RawCustomerProfile) { p.EstimatedSalary = math.Inf(1) }, "estimated_salary"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultProfile()
			tc.mutate(&p)

			err := p.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Problems, 1)
			assert.Equal(t, tc.field, verr.Problems[0].Field)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	p := DefaultProfile()
	p.Age = 5
	p.Tenure = 20
	p.EstimatedSalary = -1

	var verr *ValidationError
	require.True(t, errors.As(p.Validate(), &verr))
	assert.Len(t, verr.Problems, 3)
	assert.Contains(t, verr.Error(), "age")
	assert.Contains(t, verr.Error(), "tenure")
}

func TestValidate_Boundaries(t *testing.T) {
	p := DefaultProfile()
	p.CreditScore = 0
	p.Age = 18
	p.Tenure = 0
	p.Balance = 0
	p.NumOfProducts = 4
	p.EstimatedSalary = 0
	assert.NoError(t, p.Validate())

	p.CreditScore = 1000
	p.Age = 100
	p.Tenure = 10
	p.NumOfProducts = 1
	assert.NoError(t, p.Validate())
}

func TestParseEnums(t *testing.T) {
	g, err := ParseGender(" female ")
	require.NoError(t, err)
	assert.Equal(t, Female, g)

	_, err = ParseGender("x")
	assert.Error(t, err)

	geo, err := ParseGeography("GERMANY")
	require.NoError(t, err)
	assert.Equal(t, Germany, geo)

	_, err = ParseGeography("Italy")
	assert.Error(t, err)
}
