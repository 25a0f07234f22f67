package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Envelope is the body of every API response
type Envelope struct {
	Status bool   `json:"status"`
	Msg    string `json:"msg"`
	Data   any    `json:"data"`
}

// RespondWithEnvelope writes an envelope. A nil data is sent as an empty array.
func RespondWithEnvelope(w http.ResponseWriter, statusCode int, status bool, msg string, data any) {
	if data == nil {
		data = []any{}
	}
	RespondWithJSON(w, statusCode, Envelope{Status: status, Msg: msg, Data: data})
}

// RespondSuccess sends a 200 envelope with status true
func RespondSuccess(w http.ResponseWriter, msg string, data any) {
	RespondWithEnvelope(w, http.StatusOK, true, msg, data)
}

// RespondWithError sends an envelope with status false and empty data
func RespondWithError(w http.ResponseWriter, statusCode int, msg string) {
	RespondWithEnvelope(w, statusCode, false, msg, nil)
}

// RespondWithValidationErrors reports the first failing field as the message and all of them as data
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	msg := "Validation error"
	if len(errors) > 0 {
		msg = errors[0].Message
	}
	RespondWithEnvelope(w, http.StatusBadRequest, false, msg, errors)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "Something went wrong")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
