package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now time.Time
	b   *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.b = New("inference",
		WithFailureThreshold(2),
		WithProbeInterval(time.Second),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *BreakerSuite) TestOpensAfterConsecutiveFailures() {
	open, change := s.b.RecordFailure()
	s.False(open)
	s.False(change.Opened)

	open, change = s.b.RecordFailure()
	s.True(open)
	s.True(change.Opened)
	s.Equal(StateOpen, s.b.State())
	s.Equal("open", s.b.State().String())
}

func (s *BreakerSuite) TestSuccessResetsFailureCount() {
	s.b.RecordFailure()
	s.b.RecordSuccess()
	open, _ := s.b.RecordFailure()
	s.False(open)
}

func (s *BreakerSuite) TestClosesOnSuccessWhileOpen() {
	s.b.RecordFailure()
	s.b.RecordFailure()

	closed, change := s.b.RecordSuccess()
	s.True(closed)
	s.True(change.Closed)
	s.False(s.b.IsOpen())
}

func (s *BreakerSuite) TestShouldProbeIsRateLimited() {
	s.False(s.b.ShouldProbe(), "closed circuit never probes")

	s.b.RecordFailure()
	s.b.RecordFailure()

	s.True(s.b.ShouldProbe())
	s.False(s.b.ShouldProbe())

	s.now = s.now.Add(time.Second)
	s.True(s.b.ShouldProbe())
}

func TestDefaults(t *testing.T) {
	b := New("x")
	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen())
	b.RecordFailure()
	assert.True(t, b.IsOpen())
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "x", b.Name())
}
