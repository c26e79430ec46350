// Package response renders the JSON bodies of the admin API. Error shapes
// are part of the client contract: not-found responses carry a message
// object, validation failures carry the flat attribute-to-message map the
// client form adopts as its error state.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/lucent-admin/lucent/internal/resource"
)

// JSON writes a JSON body with the given status code.
func JSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, body any) {
	JSON(w, http.StatusOK, body)
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, body any) {
	JSON(w, http.StatusCreated, body)
}

// NotFound writes a 404 with the standard message body.
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found."
	}
	JSON(w, http.StatusNotFound, map[string]string{"message": message})
}

// BadRequest writes a 400 with a message body.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, map[string]string{"message": message})
}

// Forbidden writes a 403 with a message body.
func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "You are not authorized to perform this action."
	}
	JSON(w, http.StatusForbidden, map[string]string{"message": message})
}

// Unauthorized writes a 401 with a message body.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required."
	}
	JSON(w, http.StatusUnauthorized, map[string]string{"message": message})
}

// ValidationFailed writes a 422 whose body is the attribute error map
// itself, keyed identically to the client's form state.
func ValidationFailed(w http.ResponseWriter, errs resource.Errors) {
	JSON(w, http.StatusUnprocessableEntity, errs)
}

// InternalError writes a generic 500. Internal details stay in the logs.
func InternalError(w http.ResponseWriter) {
	JSON(w, http.StatusInternalServerError, map[string]string{"message": "Something went wrong."})
}
