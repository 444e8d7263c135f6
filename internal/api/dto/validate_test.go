package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/gas-service-portal/pkg/util/errorutil"
)

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(RegisterRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "required", domainErr.Details["firstName"])
	assert.Equal(t, "email", domainErr.Details["email"])
	assert.Equal(t, "min", domainErr.Details["password"])
}

func TestValidate_FormTags(t *testing.T) {
	err := Validate(CreateServiceRequestForm{Description: "x"})
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Details, "type")

	assert.NoError(t, Validate(CreateServiceRequestForm{Type: "gas_leak", Description: "x"}))
}

func TestValidate_OptionalVersion(t *testing.T) {
	zero := int64(0)
	assert.Error(t, Validate(UpdateStatusRequest{Status: "closed", Version: &zero}))
	assert.NoError(t, Validate(UpdateStatusRequest{Status: "closed"}))
}
