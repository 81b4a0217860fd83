package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propdesk/internal/domain"
	"github.com/vbonduro/propdesk/internal/logging"
)

func newTokens(t *testing.T) *Tokens {
	t.Helper()
	tok, err := NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	return tok
}

func TestNewTokensRequiresSecret(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestIssueAndVerify(t *testing.T) {
	tok := newTokens(t)
	signed, err := tok.Issue(domain.User{Email: "admin@example.com", FullName: "Ada", Role: domain.RoleAdmin})
	require.NoError(t, err)

	u, err := tok.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)
	assert.Equal(t, "Ada", u.FullName)
	assert.True(t, u.IsAdmin())
}

func TestIssueDefaultsRole(t *testing.T) {
	tok := newTokens(t)
	signed, err := tok.Issue(domain.User{Email: "tenant@example.com"})
	require.NoError(t, err)
	u, err := tok.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)

	_, err = tok.Issue(domain.User{})
	assert.Error(t, err)
}

func TestVerifyRejects(t *testing.T) {
	tok := newTokens(t)

	other, err := NewTokens("other-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(domain.User{Email: "x@example.com", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = tok.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := newTokens(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(domain.User{Email: "x@example.com"})
	require.NoError(t, err)
	_, err = tok.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{StandardClaims: jwt.StandardClaims{Subject: "x@example.com", Issuer: issuer}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tok.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tok.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAndRequireAdmin(t *testing.T) {
	tok := newTokens(t)
	var seen *domain.User
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := tok.Middleware(logging.Discard())(RequireAdmin(inner))

	cases := []struct {
		name   string
		user   *domain.User
		header string
		want   int
	}{
		{name: "no header", want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer garbage", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "user", user: &domain.User{Email: "u@example.com"}, want: http.StatusForbidden},
		{name: "admin", user: &domain.User{Email: "a@example.com", Role: domain.RoleAdmin}, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			header := tc.header
			if tc.user != nil {
				signed, err := tok.Issue(*tc.user)
				require.NoError(t, err)
				header = "Bearer " + signed
			}
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, tc.user.Email, seen.Email)
			} else {
				assert.Contains(t, rec.Body.String(), "error")
			}
		})
	}
}

func TestRequireAdminWithoutUser(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireAdmin(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmailFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", Email(req.Context()))
	ctx := WithUser(req.Context(), &domain.User{Email: "a@example.com"})
	assert.Equal(t, "a@example.com", Email(ctx))
}
