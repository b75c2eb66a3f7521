package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carlsburger/GastroCore-sub000/internal/security"
)

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc.def.ghi", "abc.def.ghi"},
		{"  Bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := extractBearer(c.header); got != c.want {
			t.Errorf("extractBearer(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

func authTestRouter(tokens *security.TokenProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(tokens))
	r.GET("/whoami", func(c *gin.Context) {
		p, _ := GetPrincipal(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID})
	})
	return r
}

func TestAuth(t *testing.T) {
	tokens := security.NewTokenProvider([]byte("test-secret"), "iss", "aud", time.Hour)
	r := authTestRouter(tokens)

	token, _, err := tokens.Issue(security.Principal{UserID: "user-1", Role: security.RoleEmployee})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer tampered")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", w.Code)
	}
}
