package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
)

// requireAPIKey gates the dashboard read API. With no key configured the
// gate is open, which keeps local development friction-free.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "Unauthorized: Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSignature verifies the webhook HMAC when a secret is configured.
// The body is re-buffered so the handler can still read it.
func (s *Server) requireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.webhookSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get("X-Hub-Signature-256")
		if signature == "" {
			signature = r.Header.Get("X-Signature")
		}
		if signature == "" {
			writeError(w, http.StatusUnauthorized, "Missing signature header")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(s.webhookSecret))
		mac.Write(body)
		expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(signature), []byte(expected)) {
			writeError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}
