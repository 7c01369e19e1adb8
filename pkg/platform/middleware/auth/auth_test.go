package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	dErrors "schemagate/pkg/domain-errors"
	"schemagate/pkg/requestcontext"
)

const testKey = "waro_0123456789abcdef0123"

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Authenticate(ctx context.Context, raw string) (requestcontext.Caller, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(requestcontext.Caller), args.Error(1)
}

type mockHandler struct {
	called  bool
	context context.Context
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

type RequireCredentialSuite struct {
	suite.Suite
	verifier *MockVerifier
	next     *mockHandler
	handler  http.Handler
}

func TestRequireCredentialSuite(t *testing.T) {
	suite.Run(t, new(RequireCredentialSuite))
}

func (s *RequireCredentialSuite) SetupTest() {
	s.verifier = new(MockVerifier)
	s.next = &mockHandler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = RequireCredential(s.verifier, logger)(s.next)
}

func (s *RequireCredentialSuite) TearDownTest() {
	s.verifier.AssertExpectations(s.T())
}

func (s *RequireCredentialSuite) serve(headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/extract", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *RequireCredentialSuite) TestBearerCredential() {
	caller := requestcontext.Caller{TokenID: "tok-1", OwnerID: "tenant-1"}
	s.verifier.On("Authenticate", mock.Anything, testKey).Return(caller, nil)

	w := s.serve(map[string]string{"Authorization": "Bearer " + testKey})

	s.Equal(http.StatusOK, w.Code)
	s.Require().True(s.next.called)
	got, ok := requestcontext.CallerFrom(s.next.context)
	s.True(ok)
	s.Equal(caller, got)
}

func (s *RequireCredentialSuite) TestAPIKeyHeader() {
	caller := requestcontext.Caller{TokenID: "tok-2", OwnerID: "tenant-2"}
	s.verifier.On("Authenticate", mock.Anything, testKey).Return(caller, nil)

	w := s.serve(map[string]string{APIKeyHeader: testKey})

	s.Equal(http.StatusOK, w.Code)
	s.True(s.next.called)
}

func (s *RequireCredentialSuite) TestAPIKeyBehindOtherAuthorization() {
	caller := requestcontext.Caller{TokenID: "tok-3", OwnerID: "tenant-3"}
	s.verifier.On("Authenticate", mock.Anything, testKey).Return(caller, nil)

	for name, authorization := range map[string]string{
		"basic scheme": "Basic dXNlcjpwYXNz",
		"empty bearer": "Bearer   ",
	} {
		s.Run(name, func() {
			s.next.called = false
			w := s.serve(map[string]string{"Authorization": authorization, APIKeyHeader: testKey})
			s.Equal(http.StatusOK, w.Code)
			s.True(s.next.called)
		})
	}
}

func (s *RequireCredentialSuite) TestMissingCredential() {
	s.Run("no headers", func() {
		w := s.serve(nil)
		s.Equal(http.StatusUnauthorized, w.Code)
		s.JSONEq(`{"error":"unauthorized","error_description":"missing credential"}`, w.Body.String())
	})

	s.Run("non-bearer authorization scheme", func() {
		w := s.serve(map[string]string{"Authorization": "Basic abc"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.False(s.next.called)
}

func (s *RequireCredentialSuite) TestRejectedCredential() {
	s.verifier.On("Authenticate", mock.Anything, testKey).
		Return(requestcontext.Caller{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credential"))

	w := s.serve(map[string]string{"Authorization": "Bearer " + testKey})

	s.Equal(http.StatusUnauthorized, w.Code)
	s.False(s.next.called)
}

func (s *RequireCredentialSuite) TestStoreUnavailable() {
	s.verifier.On("Authenticate", mock.Anything, testKey).
		Return(requestcontext.Caller{}, dErrors.New(dErrors.CodeUnavailable, "credential store unavailable"))

	w := s.serve(map[string]string{"Authorization": "Bearer " + testKey})

	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.JSONEq(`{"error":"service_unavailable","error_description":"credential store unavailable"}`, w.Body.String())
	s.False(s.next.called)
}
