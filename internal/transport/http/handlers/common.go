package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authsvc "github.com/ivankudzin/recipemarket/internal/services/auth"
	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

// multipartOverhead leaves room for form boundaries and text fields next
// to the file itself.
const multipartOverhead = 1 << 20

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// decodeOptionalJSON accepts an empty body as the zero value.
func decodeOptionalJSON(r *http.Request, target any) error {
	if err := decodeJSON(r, target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return 0
	}
	return v
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "Authentication required")
		return authsvc.Identity{}, false
	}
	return identity, true
}

// readImage parses a multipart body and returns the named file. A missing
// file yields an empty upload so the service can report it.
func readImage(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (mediasvc.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, nil, mediasvc.ErrFileTooLarge, "")
			return mediasvc.Upload{}, false
		}
		writeBadRequest(w, "INVALID_MULTIPART", "Invalid multipart form")
		return mediasvc.Upload{}, false
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		return mediasvc.Upload{}, true
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeBadRequest(w, "INVALID_MULTIPART", "Invalid multipart form")
		return mediasvc.Upload{}, false
	}
	return mediasvc.Upload{Content: content}, true
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	if fallback == "" {
		fallback = "Internal server error"
	}
	httperrors.FromError(w, log, err, fallback)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Fail(w, http.StatusBadRequest, code, message)
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Fail(w, http.StatusUnauthorized, code, message)
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Fail(w, http.StatusInternalServerError, code, message)
}
