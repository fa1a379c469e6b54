// Package api provides HTTP handlers for the Aura chat backend.
package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/store"
)

// maxRequestBodySize bounds JSON request bodies.
const maxRequestBodySize = 1 << 20 // 1MB

var langPattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})?$`)

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// NormalizeLang lower-cases the primary subtag and reports whether the code looks like a
// language tag ("sv", "en", "sv-SE").
func NormalizeLang(lang string) (string, bool) {
	lang = strings.TrimSpace(lang)
	if primary, region, ok := strings.Cut(lang, "-"); ok {
		lang = strings.ToLower(primary) + "-" + region
	} else {
		lang = strings.ToLower(lang)
	}
	return lang, langPattern.MatchString(lang)
}
