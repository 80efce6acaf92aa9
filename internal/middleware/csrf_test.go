// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantCalled  bool
		wantStatus  int
	}{
		{"GET passes", http.MethodGet, "", "", true, http.StatusOK},
		{"HEAD passes", http.MethodHead, "", "", true, http.StatusOK},
		{"POST json", http.MethodPost, "application/json", "{}", true, http.StatusOK},
		{"POST json with charset", http.MethodPost, "application/json; charset=utf-8", "{}", true, http.StatusOK},
		{"POST form", http.MethodPost, "application/x-www-form-urlencoded", "a=b", false, http.StatusUnsupportedMediaType},
		{"PUT text", http.MethodPut, "text/plain", "{}", false, http.StatusUnsupportedMediaType},
		{"POST without type", http.MethodPost, "", "{}", false, http.StatusUnsupportedMediaType},
		{"DELETE without body", http.MethodDelete, "", "", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, called := okHandler()
			handler := RequireJSON(next)

			req := httptest.NewRequest(tt.method, "/api/blurbs", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if *called != tt.wantCalled {
				t.Errorf("next called: got %v, want %v", *called, tt.wantCalled)
			}
			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}
