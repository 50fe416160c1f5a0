package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, rec
}

func TestRequireUser(t *testing.T) {
	c, rec := testContext("/api/accounts")
	c.Request.Header.Set("X-User-ID", "42")
	userID, ok := requireUser(c)
	if !ok || userID != 42 {
		t.Errorf("requireUser = %d, %v, want 42, true", userID, ok)
	}

	for _, raw := range []string{"", "abc", "0", "-3"} {
		c, rec = testContext("/api/accounts")
		if raw != "" {
			c.Request.Header.Set("X-User-ID", raw)
		}
		if _, ok := requireUser(c); ok {
			t.Errorf("requireUser accepted header %q", raw)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", raw, rec.Code)
		}
	}
}

func TestScopeFromQuery(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantSet   bool
		wantID    int64
		wantHasID bool
		wantErr   bool
	}{
		{"absent", "/api/transactions", false, 0, false, false},
		{"personal keyword", "/api/transactions?business_id=personal", true, 0, false, false},
		{"null keyword", "/api/transactions?business_id=null", true, 0, false, false},
		{"empty value", "/api/transactions?business_id=", true, 0, false, false},
		{"numeric", "/api/transactions?business_id=7", true, 7, true, false},
		{"garbage", "/api/transactions?business_id=abc", false, 0, false, true},
		{"negative", "/api/transactions?business_id=-2", false, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testContext(tt.target)
			scope, err := scopeFromQuery(c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if scope.set != tt.wantSet {
				t.Errorf("set = %v, want %v", scope.set, tt.wantSet)
			}
			if tt.wantHasID {
				if scope.businessID == nil || *scope.businessID != tt.wantID {
					t.Errorf("businessID = %v, want %d", scope.businessID, tt.wantID)
				}
			} else if scope.businessID != nil {
				t.Errorf("businessID = %v, want nil", *scope.businessID)
			}
		})
	}
}

func TestRespondErrMasksOwnership(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errNotFound("account"), http.StatusNotFound},
		{errOwnership("account"), http.StatusNotFound},
		{errInvalidInput("bad"), http.StatusBadRequest},
		{errScopeCoherence("mismatch"), http.StatusUnprocessableEntity},
		{errStateConflict("state"), http.StatusConflict},
		{errNothingToInvoice(), http.StatusConflict},
	}
	for _, tt := range tests {
		c, rec := testContext("/api/x")
		respondErr(c, tt.err)
		if rec.Code != tt.want {
			t.Errorf("respondErr(%v) status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}
