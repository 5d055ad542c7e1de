// Package jsonc recovers data from near-valid JSON: files that carry
// comments or trailing commas, as hand-edited agent settings often do.
package jsonc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kaptinlin/jsonrepair"
)

// Parse decodes data, tolerating line comments, block comments and
// trailing commas. Numbers are decoded as json.Number so they re-encode
// exactly as written. Parse never panics; a failure is reported as an
// error whose message names the line and column.
func Parse(data []byte) (any, error) {
	v, err := decode(data)
	if err == nil {
		return v, nil
	}

	cleaned := Strip(data)
	v, err = decode(cleaned)
	if err == nil {
		return v, nil
	}
	return nil, describe(cleaned, err)
}

// ParseObject is Parse for documents whose root must be an object.
func ParseObject(data []byte) (map[string]any, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New("document is null, expected an object")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root is %s, expected an object", typeName(v))
	}
	return m, nil
}

// Repair attempts to turn broken JSON into valid JSON. It goes further than
// Parse (quotes keys, closes brackets) and is therefore only used when a
// user explicitly asks for a repair.
func Repair(data []byte) ([]byte, error) {
	repaired, err := jsonrepair.JSONRepair(string(Strip(data)))
	if err != nil {
		return nil, fmt.Errorf("repair: %w", err)
	}
	if _, err := decode([]byte(repaired)); err != nil {
		return nil, fmt.Errorf("repair produced invalid JSON: %w", err)
	}
	return []byte(repaired), nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// Anything after the first value, including a stray closing bracket,
	// is an error.
	offset := dec.InputOffset()
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &trailingError{offset: offset}
	}
	return v, nil
}

type trailingError struct{ offset int64 }

func (e *trailingError) Error() string { return "unexpected content after top-level value" }

func describe(data []byte, err error) error {
	var trailing *trailingError
	if errors.As(err, &trailing) {
		line, col := position(data, trailing.offset)
		return fmt.Errorf("invalid JSON at line %d, column %d: %s", line, col, trailing.Error())
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := position(data, syntaxErr.Offset)
		return fmt.Errorf("invalid JSON at line %d, column %d: %s", line, col, syntaxErr.Error())
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := position(data, typeErr.Offset)
		return fmt.Errorf("invalid JSON at line %d, column %d: %s", line, col, typeErr.Error())
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.New("invalid JSON: document is empty or truncated")
	}
	return fmt.Errorf("invalid JSON: %w", err)
}

func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col = 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func typeName(v any) string {
	switch v.(type) {
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
