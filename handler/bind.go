package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
)

const maxJSONBody = 1 << 20

// BindJSON decodes a JSON body. A missing Content-Type is accepted; an
// empty body leaves the value untouched.
func BindJSON() Bind {
	return func(r *http.Request, v any) error {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				return fmt.Errorf("%w: expected application/json", ErrUnsupportedMediaType)
			}
		}
		if r.Body == nil {
			return nil
		}
		dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return nil
	}
}

// BindPath fills string fields tagged `path:"name"` using extract, usually
// chi.URLParam.
func BindPath(extract func(r *http.Request, name string) string) Bind {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct", ErrInvalidPath)
		}
		rv = rv.Elem()
		rt := rv.Type()
		for i := range rt.NumField() {
			f := rt.Field(i)
			name := f.Tag.Get("path")
			if name == "" || name == "-" || !f.IsExported() {
				continue
			}
			if f.Type.Kind() != reflect.String {
				return fmt.Errorf("%w: field %s must be a string", ErrInvalidPath, f.Name)
			}
			rv.Field(i).SetString(extract(r, name))
		}
		return nil
	}
}
