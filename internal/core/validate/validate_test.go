package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
)

type lineInput struct {
	ProductID id.ID `json:"productId" validate:"required"`
	Quantity  int64 `json:"quantity" validate:"gt=0"`
}

type createInput struct {
	ClientID id.ID       `json:"clientId" validate:"required"`
	Lines    []lineInput `json:"lines" validate:"min=1,dive"`
}

func TestStruct_Valid(t *testing.T) {
	in := createInput{
		ClientID: id.New(),
		Lines:    []lineInput{{ProductID: id.New(), Quantity: 2}},
	}
	assert.NoError(t, Struct(in))
}

func TestStruct_MissingClient(t *testing.T) {
	in := createInput{Lines: []lineInput{{ProductID: id.New(), Quantity: 1}}}

	err := Struct(in)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "clientId", appErr.Details["field"])
	assert.Equal(t, "required", appErr.Details["rule"])
}

func TestStruct_EmptyLines(t *testing.T) {
	err := Struct(createInput{ClientID: id.New()})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "lines", appErr.Details["field"])
	assert.Contains(t, appErr.Message, "at least 1")
}

func TestStruct_NonPositiveQuantity(t *testing.T) {
	in := createInput{
		ClientID: id.New(),
		Lines:    []lineInput{{ProductID: id.New(), Quantity: 0}},
	}

	appErr, ok := apperror.AsAppError(Struct(in))
	require.True(t, ok)
	assert.Equal(t, "lines[0].quantity", appErr.Details["field"])
	assert.Equal(t, "gt", appErr.Details["rule"])
}
