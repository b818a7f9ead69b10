package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"fashion-auth/pkg/errors"
	"fashion-auth/pkg/logger"
)

// successResponse is the JSON envelope for successful responses
type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(successResponse{Success: true, Data: data}); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error, log *logger.Logger) {
	appErr := &errors.AppError{}
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternalError("Unexpected error", err)
	}

	log.WithError(err).WithField("error_type", string(appErr.Type)).Warn("Request failed")

	response := errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		log.WithError(encErr).Error("Failed to encode error response")
	}
}
