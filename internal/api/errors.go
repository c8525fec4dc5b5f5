package api

import "net/http"

func writeInvalidArgument(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "INVALID_ARGUMENT", message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "NOT_FOUND", message)
}

func writeInternal(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}
