package authflow

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate/taskgate/internal/cookie"
	"github.com/taskgate/taskgate/internal/crypto"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestStore() *Store {
	cookies := cookie.NewManager("tg_token", "tg_auth_request", "")
	return NewStore(testKey, cookies, 10*time.Minute)
}

func sampleRequest() *Request {
	return &Request{
		Provider:              "google",
		State:                 "random-state-value",
		RedirectURI:           "https://auth.example.com/login/oauth2/code/google",
		AuthorizationEndpoint: "https://accounts.google.com/o/oauth2/auth?state=random-state-value",
		Params: map[string]string{
			ClientRedirectParam: "https://app.example.com/auth/done",
		},
	}
}

func callbackRequestWith(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore()
	original := sampleRequest()

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, original))

	loaded, err := store.Load(callbackRequestWith(t, rec))
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
	assert.Equal(t, "https://app.example.com/auth/done", loaded.ClientRedirectURI())
}

func TestSaveSetsScopedCookie(t *testing.T) {
	store := newTestStore()

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, sampleRequest()))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "tg_auth_request", c.Name)
	assert.Equal(t, cookie.AuthRequestPath, c.Path)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, int((10 * time.Minute).Seconds()), c.MaxAge)
}

func TestLoadWithoutCookieIsRequestMissing(t *testing.T) {
	store := newTestStore()

	r := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google", nil)
	_, err := store.Load(r)
	require.ErrorIs(t, err, ErrRequestMissing)
}

func TestLoadRejectsTamperedRecord(t *testing.T) {
	store := newTestStore()

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, sampleRequest()))

	c := rec.Result().Cookies()[0]
	// Corrupt the signature half of the record.
	payload, _, found := strings.Cut(c.Value, ".")
	require.True(t, found)
	c.Value = payload + ".AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

	r := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/google", nil)
	r.AddCookie(c)

	_, err := store.Load(r)
	require.ErrorIs(t, err, ErrRequestMissing)
}

func TestLoadRejectsForeignKey(t *testing.T) {
	cookies := cookie.NewManager("tg_token", "tg_auth_request", "")
	writer := NewStore([]byte("ffffffffffffffffffffffffffffffff"), cookies, time.Minute)
	reader := NewStore(testKey, cookies, time.Minute)

	rec := httptest.NewRecorder()
	require.NoError(t, writer.Save(rec, sampleRequest()))

	_, err := reader.Load(callbackRequestWith(t, rec))
	require.ErrorIs(t, err, ErrRequestMissing)
}

func TestSaveRejectsOversizedRecord(t *testing.T) {
	store := newTestStore()

	req := sampleRequest()
	req.Params["extra"] = strings.Repeat("x", maxCookieSize)

	rec := httptest.NewRecorder()
	err := store.Save(rec, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cookie limit")
	assert.Empty(t, rec.Result().Cookies())
}

func TestClearExpiresCookie(t *testing.T) {
	store := newTestStore()

	rec := httptest.NewRecorder()
	store.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "tg_auth_request", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	codec := NewCodec(testKey)

	encoded, err := codec.Encode(sampleRequest())
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, recordVersion, decoded.Version)

	// A well-signed record from a future shape version must not decode.
	payload := []byte(`{"v":99,"provider":"google","state":"s","redirect_uri":"https://auth.example.com/cb"}`)
	foreign := base64.RawURLEncoding.EncodeToString(payload) + "." + crypto.SignData(payload, testKey)
	_, err = codec.Decode(foreign)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}
