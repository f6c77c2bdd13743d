package usagetoken_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/usagetoken"
)

func TestCookiesTokens(t *testing.T) {
	t.Parallel()

	c := usagetoken.NewCookies("")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "qk_usage_caption", Value: "tok-a"})
	r.AddCookie(&http.Cookie{Name: "qk_usage_bio", Value: "tok-b"})
	r.AddCookie(&http.Cookie{Name: "qk_usage_", Value: "ignored"})
	r.AddCookie(&http.Cookie{Name: "session", Value: "ignored"})

	assert.Equal(t, map[string]string{"caption": "tok-a", "bio": "tok-b"}, c.Tokens(r))
}

func TestCookiesSetAndDelete(t *testing.T) {
	t.Parallel()

	c := usagetoken.NewCookies("u_", usagetoken.WithSecure(true), usagetoken.WithDomain("example.com"), usagetoken.WithMaxAge(60))

	rec := httptest.NewRecorder()
	c.Set(rec, "caption", "tok")
	c.Delete(rec, "bio")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	assert.Equal(t, "u_caption", cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "example.com", cookies[0].Domain)
	assert.Equal(t, 60, cookies[0].MaxAge)

	assert.Equal(t, "u_bio", cookies[1].Name)
	assert.Equal(t, -1, cookies[1].MaxAge)
}

func TestCookiesVisitor(t *testing.T) {
	t.Parallel()

	c := usagetoken.NewCookies("")

	t.Run("issues visitor id once", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		id := c.EnsureVisitor(rec, r)

		_, err := uuid.Parse(id)
		require.NoError(t, err)
		require.Len(t, rec.Result().Cookies(), 1)
		assert.Equal(t, usagetoken.DefaultVisitorCookie, rec.Result().Cookies()[0].Name)
	})

	t.Run("keeps existing visitor id", func(t *testing.T) {
		t.Parallel()

		existing := uuid.NewString()
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: usagetoken.DefaultVisitorCookie, Value: existing})

		assert.Equal(t, existing, c.EnsureVisitor(rec, r))
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("ignores malformed visitor id", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: usagetoken.DefaultVisitorCookie, Value: "not-a-uuid"})
		assert.Empty(t, c.VisitorID(r))
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	codec, cookies, err := usagetoken.NewFromConfig(usagetoken.Config{
		Secrets: " " + secretA + " , " + secretB,
		Prefix:  "x_",
		MaxAge:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, "x_caption", cookies.Name("caption"))

	tok, err := codec.Encode("caption", 1)
	require.NoError(t, err)

	rotated, err := usagetoken.New([]string{secretA})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rotated.Decode(tok, "caption"))

	_, _, err = usagetoken.NewFromConfig(usagetoken.Config{Secrets: "short"})
	assert.ErrorIs(t, err, usagetoken.ErrSecretTooShort)
}
