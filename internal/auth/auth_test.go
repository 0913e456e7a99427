package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("secret", time.Hour)
	token, err := svc.IssueToken("sess_1", "user_1", "Ada", RoleOwner)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.SessionID != "sess_1" || claims.UserID() != "user_1" || claims.DisplayName != "Ada" || claims.Role != RoleOwner {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewService("secret", time.Hour)
	good, _ := svc.IssueToken("sess_1", "user_1", "Ada", RoleGuest)

	other := NewService("other", time.Hour)
	forged, _ := other.IssueToken("sess_1", "user_1", "Ada", RoleGuest)

	expired := NewService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := expired.IssueToken("sess_1", "user_1", "Ada", RoleGuest)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", forged},
		{"expired", stale},
		{"truncated", good[:len(good)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestPasscode(t *testing.T) {
	hash, err := HashPasscode("open sesame")
	if err != nil {
		t.Fatalf("HashPasscode: %v", err)
	}
	if err := CheckPasscode(hash, "open sesame"); err != nil {
		t.Errorf("matching passcode: %v", err)
	}
	if err := CheckPasscode(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong passcode: %v", err)
	}

	empty, _ := HashPasscode("")
	if empty != "" || CheckPasscode(empty, "anything") != nil {
		t.Errorf("empty passcode should admit everyone")
	}
}

func TestAuthMiddleware(t *testing.T) {
	svc := NewService("secret", time.Hour)
	token, _ := svc.IssueToken("sess_1", "user_1", "Ada", RoleGuest)
	h := svc.AuthMiddleware(http.HandlerFunc(NewHandler(svc).Me))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK},
		{"query", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			var me meResponse
			if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if me.UserID != "user_1" || me.SessionID != "sess_1" {
				t.Errorf("me = %+v", me)
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	svc := NewService("secret", time.Hour)
	req := httptest.NewRequest(http.MethodPost, "/api/token", nil)
	claims := &Claims{SessionID: "sess_1", DisplayName: "Ada", Role: RoleGuest}
	claims.Subject = "user_1"
	req = req.WithContext(WithClaims(req.Context(), claims))

	rec := httptest.NewRecorder()
	NewHandler(svc).Refresh(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	got, err := svc.ValidateToken(body["token"])
	if err != nil {
		t.Fatalf("refreshed token: %v", err)
	}
	if got.UserID() != "user_1" {
		t.Errorf("subject = %q", got.UserID())
	}
}

func TestOptionalMiddleware(t *testing.T) {
	svc := NewService("secret", time.Hour)
	token, _ := svc.IssueToken("sess_1", "user_1", "Ada", RoleGuest)

	var seen *Claims
	h := svc.OptionalMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantClaims bool
	}{
		{"anonymous", "", http.StatusOK, false},
		{"valid", "?token=" + token, http.StatusOK, true},
		{"invalid", "?token=junk", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if (seen != nil) != tt.wantClaims {
				t.Errorf("claims = %+v", seen)
			}
		})
	}
}
