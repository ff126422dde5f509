package fakeapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// detailResponse mirrors the error body of the notes API.
type detailResponse struct {
	Detail any `json:"detail"`
}

func errorBody(msg string) detailResponse {
	return detailResponse{Detail: msg}
}

// fieldError is one entry of a 422 validation error list.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func missingFields(names ...string) detailResponse {
	errs := make([]fieldError, 0, len(names))
	for _, n := range names {
		errs = append(errs, fieldError{
			Loc:  []string{"body", n},
			Msg:  n + ": field required",
			Type: "value_error.missing",
		})
	}
	return detailResponse{Detail: errs}
}
