package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string  `json:"product_name" validate:"required,max=10"`
	Price  float64 `json:"price" validate:"gte=0"`
	Email  string  `json:"email" validate:"omitempty,email"`
	Rating int     `json:"rating" validate:"min=1,max=5"`
}

func TestGetValidator_Singleton(t *testing.T) {
	assert.Same(t, GetValidator(), GetValidator())
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.NoError(t, ValidateStruct(&sample{Name: "Mask", Price: 1, Rating: 5}))
}

func TestValidateStruct_ReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&sample{Price: -1, Email: "nope", Rating: 9})
	require.Error(t, err)

	var verr *RequestValidationError
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Tag
	}
	assert.Equal(t, map[string]string{
		"product_name": "required",
		"price":        "gte",
		"email":        "email",
		"rating":       "max",
	}, fields)
	assert.Contains(t, err.Error(), "product_name is required")
}

func TestValidateStruct_NonStruct(t *testing.T) {
	err := ValidateStruct("not a struct")
	var verr *RequestValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "invalid", verr.Fields[0].Tag)
}
