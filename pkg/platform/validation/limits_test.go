package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "schemagate/pkg/domain-errors"
)

// LimitsSuite checks the boundary invariants: max passes, max+1 fails.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckCount() {
	s.NoError(CheckCount("fields", MaxSchemaFields, MaxSchemaFields))

	err := CheckCount("fields", MaxSchemaFields+1, MaxSchemaFields)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "too many fields")
}

func (s *LimitsSuite) TestCheckRuneLength() {
	s.Run("counts runes, not bytes", func() {
		s.NoError(CheckRuneLength("instructions", strings.Repeat("é", 10), 10))
	})

	s.Run("fails past max", func() {
		err := CheckRuneLength("instructions", strings.Repeat("a", MaxInstructionsChars+1), MaxInstructionsChars)
		s.Require().Error(err)
		s.Contains(err.Error(), "instructions exceeds max length of 2000 characters")
	})
}
