package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestExchange_MethodPathQueryHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/widgets/42?foo=bar", nil)
	r.Header.Set("X-Trace", "abc")
	w := httptest.NewRecorder()

	ex := New(w, r)
	require.Equal(t, http.MethodGet, ex.Method())
	require.Equal(t, "/widgets/42", ex.Path())
	require.Equal(t, []string{"bar"}, ex.Query()["foo"])
	require.Equal(t, []string{"abc"}, ex.Headers()["X-Trace"])
}

func TestExchange_BodyIsCachedAcrossCalls(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
	w := httptest.NewRecorder()
	ex := New(w, r)

	b1, err := ex.Body()
	require.NoError(t, err)
	require.Equal(t, "hello", string(b1))

	s, err := ex.DecodedBody()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestExchange_AttrRoundTrip(t *testing.T) {
	ex := New(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	_, ok := ex.Attr("missing")
	require.False(t, ok)

	ex.SetAttr("id", "42")
	v, ok := ex.Attr("id")
	require.True(t, ok)
	require.Equal(t, "42", v)
}

func TestExchange_EndFlushesHeadersAndBodyOnce(t *testing.T) {
	w := httptest.NewRecorder()
	ex := New(w, httptest.NewRequest(http.MethodGet, "/", nil))

	ex.SetStatusCode(201)
	ex.PutHeader("Content-Type", "application/json")
	require.NoError(t, ex.End([]byte(`{"ok":true}`)))
	require.True(t, ex.Ended())

	require.Equal(t, 201, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Equal(t, `{"ok":true}`, w.Body.String())

	// A second End must not double-write.
	require.NoError(t, ex.End([]byte("ignored")))
	require.Equal(t, `{"ok":true}`, w.Body.String())
}

func TestExchange_FailRecordsCauseWithoutEnding(t *testing.T) {
	ex := New(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	ex.Fail(500, errBoom)
	code, err := ex.Failure()
	require.Equal(t, 500, code)
	require.ErrorIs(t, err, errBoom)
	require.False(t, ex.Ended())
}

func TestGuessContentTypeFromExtension(t *testing.T) {
	require.Equal(t, "application/json", GuessContentTypeFromExtension("body.json"))
	require.Equal(t, "text/plain", GuessContentTypeFromExtension("notes.txt"))
	require.Equal(t, "", GuessContentTypeFromExtension("no-extension"))
	require.Equal(t, "", GuessContentTypeFromExtension("mystery.zzz"))
}
