package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/gamelink-api/internal/middleware"
	apperrors "github.com/yourusername/gamelink-api/internal/pkg/errors"
	"github.com/yourusername/gamelink-api/internal/repository/memory"
	"github.com/yourusername/gamelink-api/internal/service"
	"github.com/yourusername/gamelink-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubGoogleVerifier подтверждает любой credential без сети.
type stubGoogleVerifier struct {
	info *service.GoogleTokenInfo
	err  error
}

func (s *stubGoogleVerifier) Verify(_ context.Context, _ service.GoogleCredential) (*service.GoogleTokenInfo, error) {
	return s.info, s.err
}

type stubFacebookVerifier struct {
	info *service.FacebookTokenInfo
	err  error
}

func (s *stubFacebookVerifier) Verify(_ context.Context, _ string) (*service.FacebookTokenInfo, error) {
	return s.info, s.err
}

// linkTestEnv — полный роутер linking-сервиса на in-memory хранилище.
type linkTestEnv struct {
	router   *gin.Engine
	google   *stubGoogleVerifier
	facebook *stubFacebookVerifier
}

func newLinkTestEnv(t *testing.T) *linkTestEnv {
	t.Helper()

	store := memory.NewStore()
	jwtService, err := auth.NewJWTService("test-secret", 24)
	require.NoError(t, err)

	google := &stubGoogleVerifier{info: &service.GoogleTokenInfo{Sub: "sub-1", Email: "user@example.com"}}
	facebook := &stubFacebookVerifier{info: &service.FacebookTokenInfo{UserID: "9001", Email: "fb@example.com"}}

	linkService, err := service.NewLinkService(google, facebook, store, store, jwtService)
	require.NoError(t, err)
	progressService, err := service.NewProgressService(store)
	require.NoError(t, err)

	linkHandler := NewLinkHandler(linkService, progressService)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	router := gin.New()
	router.POST("/verify_and_link_google", linkHandler.VerifyAndLinkGoogle)
	router.POST("/exchange_authcode_and_link", linkHandler.ExchangeAuthCodeAndLink)
	router.POST("/verify_and_link_facebook", linkHandler.VerifyAndLinkFacebook)
	router.POST("/post_count", authMiddleware.RequireSession(), linkHandler.PostCount)

	return &linkTestEnv{router: router, google: google, facebook: facebook}
}

func (env *linkTestEnv) do(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

var inGameIDPattern = regexp.MustCompile(`^ingame-\d+$`)

func TestLinkEndpoints_ValidationErrors(t *testing.T) {
	env := newLinkTestEnv(t)

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{name: "google empty body", path: "/verify_and_link_google", body: nil},
		{name: "google missing playerID", path: "/verify_and_link_google", body: map[string]string{"idToken": "t"}},
		{name: "google missing idToken", path: "/verify_and_link_google", body: map[string]string{"playerID": "p"}},
		{name: "authcode missing authCode", path: "/exchange_authcode_and_link", body: map[string]string{"playerID": "p"}},
		{name: "authcode missing playerID", path: "/exchange_authcode_and_link", body: map[string]string{"authCode": "c"}},
		{name: "facebook missing accessToken", path: "/verify_and_link_facebook", body: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestVerifyAndLinkGoogle_Success(t *testing.T) {
	env := newLinkTestEnv(t)

	w := env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "token", "playerID": "player-1"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON(t, w)
	assert.Equal(t, "player-1", resp["playerID"])
	assert.Equal(t, "user@example.com", resp["email"])
	assert.Regexp(t, inGameIDPattern, resp["inGameAccountID"])
	assert.Equal(t, float64(0), resp["inGameCount"])
	assert.NotEmpty(t, resp["jwtToken"])
}

func TestVerifyAndLinkGoogle_SameIdentitySameAccount(t *testing.T) {
	env := newLinkTestEnv(t)

	first := decodeJSON(t, env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "token", "playerID": "player-1"}, ""))
	second := decodeJSON(t, env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "token", "playerID": "player-1"}, ""))

	assert.Equal(t, first["inGameAccountID"], second["inGameAccountID"])
}

func TestVerifyAndLinkGoogle_RejectedCredential(t *testing.T) {
	env := newLinkTestEnv(t)
	env.google.info = nil
	env.google.err = apperrors.ErrInvalidCredential

	w := env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "bad", "playerID": "player-1"}, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeJSON(t, w)
	assert.Equal(t, "Failed to verify authentication", resp["error"])
}

func TestVerifyAndLinkGoogle_ProviderUnavailable(t *testing.T) {
	env := newLinkTestEnv(t)
	env.google.info = nil
	env.google.err = apperrors.ErrUpstreamUnavailable

	w := env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "token", "playerID": "player-1"}, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestExchangeAuthCodeAndLink_Success(t *testing.T) {
	env := newLinkTestEnv(t)

	w := env.do(t, http.MethodPost, "/exchange_authcode_and_link",
		map[string]string{"authCode": "one-time-code", "playerID": "player-1"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON(t, w)
	assert.Equal(t, "player-1", resp["playerID"])
	assert.NotEmpty(t, resp["jwtToken"])
}

func TestExchangeAuthCodeAndLink_ExchangeFailed(t *testing.T) {
	env := newLinkTestEnv(t)
	env.google.info = nil
	env.google.err = apperrors.ErrExchangeFailed

	w := env.do(t, http.MethodPost, "/exchange_authcode_and_link",
		map[string]string{"authCode": "used-code", "playerID": "player-1"}, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeJSON(t, w)
	assert.Equal(t, "Failed to verify authentication", resp["error"])
}

func TestVerifyAndLinkFacebook_Success(t *testing.T) {
	env := newLinkTestEnv(t)

	w := env.do(t, http.MethodPost, "/verify_and_link_facebook",
		map[string]string{"accessToken": "fb-token"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON(t, w)
	assert.Equal(t, "fb-9001", resp["playerID"])
	assert.Equal(t, "fb@example.com", resp["email"])
	assert.Regexp(t, inGameIDPattern, resp["inGameAccountID"])
}

func TestVerifyAndLinkFacebook_GoogleAndFacebookAccountsAreSeparate(t *testing.T) {
	env := newLinkTestEnv(t)

	google := decodeJSON(t, env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "token", "playerID": "9001"}, ""))
	facebook := decodeJSON(t, env.do(t, http.MethodPost, "/verify_and_link_facebook",
		map[string]string{"accessToken": "fb-token"}, ""))

	// Совпадение сырых значений id у разных провайдеров не должно склеивать аккаунты
	assert.NotEqual(t, google["inGameAccountID"], facebook["inGameAccountID"])
}

func TestPostCount_RequiresAuthentication(t *testing.T) {
	env := newLinkTestEnv(t)

	t.Run("no header", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/post_count", map[string]int{"count": 5}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad header format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/post_count", bytes.NewReader([]byte(`{"count":5}`)))
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		link := decodeJSON(t, env.do(t, http.MethodPost, "/verify_and_link_google",
			map[string]string{"idToken": "token", "playerID": "player-1"}, ""))
		token := link["jwtToken"].(string) + "x"

		w := env.do(t, http.MethodPost, "/post_count", map[string]int{"count": 5}, token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestPostCount_OverwritesProgress(t *testing.T) {
	env := newLinkTestEnv(t)

	link := decodeJSON(t, env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "token", "playerID": "player-1"}, ""))
	token := link["jwtToken"].(string)

	w := env.do(t, http.MethodPost, "/post_count", map[string]int{"count": 42}, token)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON(t, w)
	assert.Equal(t, "player-1", resp["playerID"])
	assert.Equal(t, link["inGameAccountID"], resp["inGameAccountID"])
	assert.Equal(t, float64(42), resp["inGameCount"])
	assert.Equal(t, "", resp["email"])

	// Повторная отправка того же значения идемпотентна
	again := decodeJSON(t, env.do(t, http.MethodPost, "/post_count", map[string]int{"count": 42}, token))
	assert.Equal(t, float64(42), again["inGameCount"])

	// Меньшее значение тоже перезаписывает: last-write-wins без max()
	lower := decodeJSON(t, env.do(t, http.MethodPost, "/post_count", map[string]int{"count": 7}, token))
	assert.Equal(t, float64(7), lower["inGameCount"])
}

func TestPostCount_ZeroCountIsValid(t *testing.T) {
	env := newLinkTestEnv(t)

	link := decodeJSON(t, env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "token", "playerID": "player-1"}, ""))
	token := link["jwtToken"].(string)

	w := env.do(t, http.MethodPost, "/post_count", map[string]int{"count": 0}, token)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON(t, w)
	assert.Equal(t, float64(0), resp["inGameCount"])
}

func TestPostCount_MissingCountIsBadRequest(t *testing.T) {
	env := newLinkTestEnv(t)

	link := decodeJSON(t, env.do(t, http.MethodPost, "/verify_and_link_google",
		map[string]string{"idToken": "token", "playerID": "player-1"}, ""))
	token := link["jwtToken"].(string)

	w := env.do(t, http.MethodPost, "/post_count", map[string]string{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
