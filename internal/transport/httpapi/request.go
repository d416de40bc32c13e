package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"slotwise/backend/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads exactly one JSON object and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.ValidationError("body", "request body must contain a single JSON object")
	}
	return nil
}

func bodyError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return domain.ValidationError("body", "request body is required")
	case errors.As(err, &syntaxErr):
		return domain.ValidationError("body", "malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return domain.ValidationError(typeErr.Field, "must be a %s", typeErr.Type)
	case errors.As(err, &maxErr):
		return domain.ValidationError("body", "request body exceeds %d bytes", maxErr.Limit)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return domain.ValidationError(name, "unknown field")
	}
	// Date and time parse failures surface from UnmarshalText.
	return domain.ValidationError("body", "%s", err.Error())
}

func queryInt64(q url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, domain.ValidationError(key, "%s must be a positive integer", key)
	}
	return &v, nil
}

func queryDate(q url.Values, key string) (*domain.Date, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return nil, domain.ValidationError(key, "%s", err.Error())
	}
	return &d, nil
}

func queryBool(q url.Values, key string) (bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.ValidationError(key, "%s must be true or false", key)
	}
	return v, nil
}

func requiredInt64(q url.Values, key string) (int64, error) {
	v, err := queryInt64(q, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, domain.ValidationError(key, "%s is required", key)
	}
	return *v, nil
}

func requiredDate(q url.Values, key string) (domain.Date, error) {
	v, err := queryDate(q, key)
	if err != nil {
		return domain.Date{}, err
	}
	if v == nil {
		return domain.Date{}, domain.ValidationError(key, "%s is required", key)
	}
	return *v, nil
}

func pathError(name string) error {
	return domain.ValidationError(name, "%s is not a valid identifier", name)
}
