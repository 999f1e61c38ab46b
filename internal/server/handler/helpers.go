// Package handler holds the HTTP handlers for the headless API.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// writeJSON marshals v and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parsePairParam parses a pair path segment. URLs cannot carry the
// canonical "ASSET/FIAT" slash, so "USDT-VES" and "usdt_ves" are
// accepted too.
func parsePairParam(raw string) (domain.Pair, error) {
	s := strings.NewReplacer("-", "/", "_", "/").Replace(raw)
	return domain.ParsePair(s)
}
