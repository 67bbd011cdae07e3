package handler

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error string `json:"error"`
}

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, j.status, j.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// JSON renders v with status 200.
func JSON(v any) Response {
	return jsonResponse{status: http.StatusOK, body: v}
}

// JSONStatus renders v with the given status.
func JSONStatus(status int, v any) Response {
	return jsonResponse{status: status, body: v}
}

// Error renders {"error": message}.
func Error(status int, message string) Response {
	return jsonResponse{status: status, body: errorBody{Error: message}}
}

// Fail renders err through StatusOf.
func Fail(err error) Response {
	status, msg := StatusOf(err)
	return Error(status, msg)
}
