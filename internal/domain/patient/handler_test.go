package patient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/notification"
)

func newTestHandler(patients ...*Patient) (*Handler, *mockChallengeStore, *echo.Echo) {
	repo := &mockRepo{patients: map[uuid.UUID]*Patient{}}
	for _, p := range patients {
		repo.patients[p.ID] = p
	}
	store := newMockChallengeStore()
	svc := newTestService(repo, store, &notification.MockEmailSender{})
	sessions := auth.NewSessionManager("test-secret", time.Hour, false)
	return NewHandler(svc, sessions), store, echo.New()
}

func TestHandler_SendOTP(t *testing.T) {
	dob := time.Date(1984, 3, 12, 0, 0, 0, 0, time.UTC)
	p := &Patient{ID: uuid.New(), Name: "Jordan Baker", Email: "jordan@example.com", DateOfBirth: dob}
	h, _, e := newTestHandler(p)

	body := `{"name":"Jordan Baker","date_of_birth":"1984-03-12"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SendOTP(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp["masked_email"] != "j***@example.com" {
		t.Errorf("masked_email = %v", resp["masked_email"])
	}
	if resp["success"] != true {
		t.Errorf("success = %v", resp["success"])
	}
}

func TestHandler_SendOTP_NoMatch(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"name":"Nobody","date_of_birth":"1990-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SendOTP(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_SendOTP_BadDate(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"name":"Jordan Baker","date_of_birth":"03/12/1984"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SendOTP(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_VerifyOTP_SetsSessionCookie(t *testing.T) {
	dob := time.Date(1984, 3, 12, 0, 0, 0, 0, time.UTC)
	p := &Patient{ID: uuid.New(), Name: "Jordan Baker", Email: "jordan@example.com", DateOfBirth: dob}
	h, store, e := newTestHandler(p)
	store.codes[p.Email+"|"+auth.PurposeLogin] = "123456"

	body := `{"patient_id":"` + p.ID.String() + `","code":"123456"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.VerifyOTP(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var sessionCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == auth.SessionCookieName {
			sessionCookie = ck
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("expected a session cookie to be set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie should be http-only")
	}
}

func TestHandler_VerifyOTP_WrongCode(t *testing.T) {
	dob := time.Date(1984, 3, 12, 0, 0, 0, 0, time.UTC)
	p := &Patient{ID: uuid.New(), Name: "Jordan Baker", Email: "jordan@example.com", DateOfBirth: dob}
	h, store, e := newTestHandler(p)
	store.codes[p.Email+"|"+auth.PurposeLogin] = "123456"

	body := `{"patient_id":"` + p.ID.String() + `","code":"654321"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.VerifyOTP(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestHandler_UpdateSettings_OwnershipMismatch(t *testing.T) {
	p := &Patient{ID: uuid.New(), Name: "Jordan Baker", Email: "jordan@example.com"}
	h, _, e := newTestHandler(p)

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"allow_emergency_access":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	// No session patient in context, so the id cannot match.

	err := h.UpdateSettings(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
