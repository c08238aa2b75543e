package errors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

func TestValidationBuilder_NoErrors(t *testing.T) {
	vb := errors.NewValidationBuilder()
	assert.NoError(t, vb.Build())
}

func TestValidationBuilder_RequiredFields(t *testing.T) {
	vb := errors.NewValidationBuilder()
	vb.RequiredField("SessionRepo")
	vb.RequiredField("IDGenerator")

	err := vb.Build()
	assert.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))

	meta := errors.GetMeta(err)
	fields, ok := meta["validation_errors"].(map[string][]string)
	assert.True(t, ok)
	assert.Contains(t, fields, "SessionRepo")
	assert.Contains(t, fields, "IDGenerator")
}

func TestValidateEnum(t *testing.T) {
	vb := errors.NewValidationBuilder()
	errors.ValidateEnum("disposition", "grumpy", []string{"friendly", "neutral", "hostile"}, vb)

	err := vb.Build()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disposition")
}

func TestValidateRange(t *testing.T) {
	vb := errors.NewValidationBuilder()
	errors.ValidateRange("max_hp", 0, 1, 999, vb)

	err := vb.Build()
	assert.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
}
