package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "audittrail/pkg/domain-errors"
)

type ValidationSuite struct {
	suite.Suite
}

func TestValidationSuite(t *testing.T) {
	suite.Run(t, new(ValidationSuite))
}

type sampleRequest struct {
	DisplayName  string   `json:"display_name" validate:"notblank,max=8"`
	RedirectURIs []string `json:"redirect_uris" validate:"required,min=1,dive,url"`
	Kind         string   `json:"kind" validate:"omitempty,oneof=public confidential"`
}

func (s *ValidationSuite) TestValidRequestPasses() {
	s.NoError(Validate(&sampleRequest{DisplayName: "ok", RedirectURIs: []string{"https://a.example"}}))
}

func (s *ValidationSuite) TestFieldErrorsAreSnakeCased() {
	err := Validate(&sampleRequest{DisplayName: "  ", Kind: "other"})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	fields := dErrors.FieldsOf(err)
	s.Require().Len(fields, 3)
	s.Equal("display_name", fields[0].Field)
	s.Equal("display_name must not be blank", fields[0].Message)
	s.Equal("redirect_uris", fields[1].Field)
	s.Equal("redirect_uris is required", fields[1].Message)
	s.Equal("kind must be one of [public confidential]", fields[2].Message)
}

func (s *ValidationSuite) TestCheckSliceCount() {
	s.NoError(CheckSliceCount("redirect_uris", MaxRedirectURIs, MaxRedirectURIs))

	err := CheckSliceCount("redirect_uris", MaxRedirectURIs+1, MaxRedirectURIs)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "max 10 allowed")
}

func (s *ValidationSuite) TestCheckEachStringLength() {
	s.NoError(CheckEachStringLength("redirect_uris", []string{"a", "bb"}, 2))

	err := CheckEachStringLength("redirect_uris", []string{"a", strings.Repeat("b", 3)}, 2)
	s.Require().Error(err)
	s.Equal("redirect_uris", dErrors.FieldsOf(err)[0].Field)
}

func (s *ValidationSuite) TestToSnakeCase() {
	s.Equal("display_name", toSnakeCase("DisplayName"))
	s.Equal("auditable_id", toSnakeCase("AuditableID"))
	s.Equal("name", toSnakeCase("Name"))
}
