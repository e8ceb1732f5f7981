package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-passwordless/internal/application/auth"
	"github.com/go-passwordless/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockController struct {
	mock.Mock
	ch auth.Channel
}

func (m *mockController) Channel() auth.Channel { return m.ch }

func (m *mockController) Authenticate(ctx context.Context, body []byte, lang string) (domain.TokenEnvelope, error) {
	args := m.Called(ctx, string(body), lang)
	return args.Get(0).(domain.TokenEnvelope), args.Error(1)
}

func (m *mockController) VerifyCode(ctx context.Context, body []byte) (domain.TokenEnvelope, error) {
	args := m.Called(ctx, string(body))
	return args.Get(0).(domain.TokenEnvelope), args.Error(1)
}

func (m *mockController) VerifyToken(ctx context.Context, body []byte) (domain.TokenEnvelope, error) {
	args := m.Called(ctx, string(body))
	return args.Get(0).(domain.TokenEnvelope), args.Error(1)
}

func (m *mockController) AuthorizeSubject(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func post(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

// --- Authenticate ---

func TestAuthenticate_Success(t *testing.T) {
	ctrl := &mockController{ch: auth.EmailChannel}
	body := `{"email":"a@b.com"}`
	ctrl.On("Authenticate", mock.Anything, body, "fi").
		Return(domain.TokenEnvelope{Token: "unverified", Address: "a@b.com"}, nil)

	rr := post(NewAuthHandler(ctrl).Authenticate, "/v1/auth/email?lang=fi", body)

	assert.Equal(t, http.StatusOK, rr.Code)
	out := decodeBody(t, rr)
	assert.Equal(t, "unverified", out["token"])
	assert.Equal(t, "a@b.com", out["email"])
	assert.NotContains(t, out, "verified")
	ctrl.AssertExpectations(t)
}

func TestAuthenticate_AcceptLanguageFallback(t *testing.T) {
	ctrl := &mockController{ch: auth.EmailChannel}
	ctrl.On("Authenticate", mock.Anything, "{}", "sv-SE,sv;q=0.9").
		Return(domain.TokenEnvelope{}, fmt.Errorf("email: %w", domain.ErrMalformedInput))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/email", strings.NewReader("{}"))
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.9")
	rr := httptest.NewRecorder()
	NewAuthHandler(ctrl).Authenticate(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	ctrl.AssertExpectations(t)
}

func TestAuthenticate_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"malformed", fmt.Errorf("email: %w", domain.ErrMalformedInput), http.StatusBadRequest},
		{"denied", fmt.Errorf("code: %w", domain.ErrAccessDenied), http.StatusForbidden},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"delivery", fmt.Errorf("email: %w", domain.ErrDeliveryFailed), http.StatusInternalServerError},
		{"signing", domain.ErrSigningFailed, http.StatusInternalServerError},
		{"internal", domain.ErrInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &mockController{ch: auth.EmailChannel}
			ctrl.On("Authenticate", mock.Anything, `{"email":"a@b.com"}`, "").
				Return(domain.TokenEnvelope{}, tc.err)

			rr := post(NewAuthHandler(ctrl).Authenticate, "/v1/auth/email", `{"email":"a@b.com"}`)

			assert.Equal(t, tc.status, rr.Code)
			out := decodeBody(t, rr)
			assert.NotEmpty(t, out["error"])
			assert.NotContains(t, out, "token")
		})
	}
}

func TestAuthenticate_InternalErrorHidesDetail(t *testing.T) {
	ctrl := &mockController{ch: auth.EmailChannel}
	ctrl.On("Authenticate", mock.Anything, mock.Anything, "").
		Return(domain.TokenEnvelope{}, fmt.Errorf("smtp dial 10.0.0.5: %w", domain.ErrDeliveryFailed))

	rr := post(NewAuthHandler(ctrl).Authenticate, "/v1/auth/email", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", decodeBody(t, rr)["error"])
}

func TestAuthenticate_BodyTooLarge(t *testing.T) {
	ctrl := &mockController{ch: auth.EmailChannel}
	big := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	rr := post(NewAuthHandler(ctrl).Authenticate, "/v1/auth/email", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	ctrl.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
}

// --- VerifyCode / VerifyToken ---

func TestVerifyCode_Success(t *testing.T) {
	ctrl := &mockController{ch: auth.SMSChannel}
	body := `{"token":{"token":"u","sms":"+358401234567"},"code":"1234"}`
	ctrl.On("VerifyCode", mock.Anything, body).
		Return(domain.TokenEnvelope{Token: "v", Address: "+358401234567", Verified: true}, nil)

	rr := post(NewAuthHandler(ctrl).VerifyCode, "/v1/auth/sms/verify-code", body)

	assert.Equal(t, http.StatusOK, rr.Code)
	out := decodeBody(t, rr)
	assert.Equal(t, "v", out["token"])
	assert.Equal(t, "+358401234567", out["sms"])
	assert.Equal(t, true, out["verified"])
}

func TestVerifyCode_Denied(t *testing.T) {
	ctrl := &mockController{ch: auth.EmailChannel}
	ctrl.On("VerifyCode", mock.Anything, mock.Anything).
		Return(domain.TokenEnvelope{}, fmt.Errorf("code: %w", domain.ErrAccessDenied))

	rr := post(NewAuthHandler(ctrl).VerifyCode, "/v1/auth/email/verify-code", `{}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "access denied", decodeBody(t, rr)["error"])
}

func TestVerifyToken_Success(t *testing.T) {
	ctrl := &mockController{ch: auth.EmailChannel}
	body := `{"token":{"token":"v","email":"a@b.com","verified":true}}`
	ctrl.On("VerifyToken", mock.Anything, body).
		Return(domain.TokenEnvelope{Token: "v2", Address: "a@b.com", Verified: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/email/verify-token", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	NewAuthHandler(ctrl).VerifyToken(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "v2", decodeBody(t, rr)["token"])
}
