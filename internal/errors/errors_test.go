package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/gamemaster-api/internal/errors"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}

func (s *ErrorsTestSuite) TestNewError() {
	testCases := []struct {
		name     string
		code     errors.Code
		message  string
		expected string
	}{
		{
			name:     "not found error",
			code:     errors.CodeNotFound,
			message:  "session not found",
			expected: "NOT_FOUND: session not found",
		},
		{
			name:     "invalid argument error",
			code:     errors.CodeInvalidArgument,
			message:  "invalid dice notation",
			expected: "INVALID_ARGUMENT: invalid dice notation",
		},
		{
			name:     "version conflict error",
			code:     errors.CodeVersionConflict,
			message:  "session version moved",
			expected: "VERSION_CONFLICT: session version moved",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := errors.New(tc.code, tc.message)
			s.Assert().Equal(tc.expected, err.Error())
			s.Assert().Equal(tc.code, err.Code)
			s.Assert().Equal(tc.message, err.Message)
		})
	}
}

func (s *ErrorsTestSuite) TestErrorWithMeta() {
	err := errors.NotFound("session not found").
		WithMeta("session_id", "sess_123").
		WithMeta("campaign_id", "camp_456")

	s.Assert().Equal("sess_123", err.Meta["session_id"])
	s.Assert().Equal("camp_456", err.Meta["campaign_id"])
}

func (s *ErrorsTestSuite) TestWrap() {
	baseErr := fmt.Errorf("redis connection refused")
	wrapped := errors.Wrap(baseErr, "failed to get session")

	s.Assert().Equal(errors.CodeInternal, wrapped.Code)
	s.Assert().Equal("failed to get session", wrapped.Message)
	s.Assert().Equal(baseErr, wrapped.Unwrap())
}

func (s *ErrorsTestSuite) TestWrapPreservesCode() {
	baseErr := errors.VersionConflict("expected version 3, found 4")
	wrapped := errors.Wrap(baseErr, "failed to apply action")

	s.Assert().Equal(errors.CodeVersionConflict, wrapped.Code)
	s.Assert().True(errors.IsVersionConflict(wrapped))
	s.Assert().Equal(baseErr, wrapped.Unwrap())
}

func (s *ErrorsTestSuite) TestWrapWithCode() {
	baseErr := fmt.Errorf("key does not exist")
	wrapped := errors.WrapWithCode(baseErr, errors.CodeNotFound, "session not found")

	s.Assert().Equal(errors.CodeNotFound, wrapped.Code)
	s.Assert().True(errors.IsNotFound(wrapped))
}

func (s *ErrorsTestSuite) TestGetCode() {
	s.Assert().Equal(errors.CodeOK, errors.GetCode(nil))
	s.Assert().Equal(errors.CodeInternal, errors.GetCode(fmt.Errorf("plain error")))
	s.Assert().Equal(errors.CodeNotFound, errors.GetCode(errors.NotFound("missing")))
}

func (s *ErrorsTestSuite) TestHTTPStatus() {
	testCases := []struct {
		code   errors.Code
		status int
	}{
		{errors.CodeInvalidArgument, 400},
		{errors.CodeNotFound, 404},
		{errors.CodeVersionConflict, 409},
		{errors.CodeFailedPrecondition, 412},
		{errors.CodeInternal, 500},
	}

	for _, tc := range testCases {
		s.Assert().Equal(tc.status, tc.code.HTTPStatus(), "code %s", tc.code)
	}
}
