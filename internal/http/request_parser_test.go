package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON_AnalysisRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantUserID UserID
		wantErr    error
		errSubstr  string
	}{
		{name: "string user", body: `{"userId": "u-1", "token": "abc"}`, wantUserID: "u-1"},
		{name: "numeric user", body: `{"userId": 17, "token": "abc"}`, wantUserID: "17"},
		{name: "padded user", body: `{"userId": "  u-2 ", "token": "abc"}`, wantUserID: "u-2"},
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
		{name: "whitespace body", body: "  \n", wantErr: ErrEmptyBody},
		{name: "null user", body: `{"userId": null, "token": "abc"}`, wantErr: ErrMissingIdentity},
		{name: "blank token", body: `{"userId": "u-1", "token": "  "}`, wantErr: ErrMissingIdentity},
		{name: "boolean user", body: `{"userId": true, "token": "abc"}`, errSubstr: "userId must be a string or number"},
		{name: "truncated", body: `{"userId": "u-1"`, errSubstr: "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/predict-expense", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var req AnalysisRequest
			err := DecodeJSON(w, r, &req)

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.errSubstr != "":
				if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
					t.Fatalf("err = %v, want containing %q", err, tt.errSubstr)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if req.UserID != tt.wantUserID {
					t.Errorf("UserID = %q, want %q", req.UserID, tt.wantUserID)
				}
			}
		})
	}
}

func TestDecodeJSON_ChatRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"userId": "u-1", "token": "abc", "message": "Can I afford a holiday?"}`))
	var req ChatRequest
	if err := DecodeJSON(httptest.NewRecorder(), r, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.UserID != "u-1" || req.Token != "abc" || req.Message != "Can I afford a holiday?" {
		t.Errorf("decoded %+v", req)
	}

	// The message is checked before identity
	r = httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": ""}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, &req); !errors.Is(err, ErrMissingMessage) {
		t.Errorf("err = %v, want %v", err, ErrMissingMessage)
	}
}

func TestDecodeJSON_BodyLimit(t *testing.T) {
	big := `{"userId": "u-1", "token": "` + strings.Repeat("a", MaxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/predict-expense", strings.NewReader(big))

	var req AnalysisRequest
	err := DecodeJSON(httptest.NewRecorder(), r, &req)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v, want body limit error", err)
	}
}

func TestRequireMethod(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/chat", nil)
	if resp := RequirePOST(r); resp != nil {
		t.Errorf("POST should be accepted")
	}

	r = httptest.NewRequest(http.MethodPut, "/chat", nil)
	resp := RequireMethod(r, http.MethodGet, http.MethodPost)
	if resp == nil {
		t.Fatal("PUT should be rejected")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "GET, POST" {
		t.Errorf("Allow = %q", got)
	}
}
