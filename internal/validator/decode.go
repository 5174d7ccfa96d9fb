package validator

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Record is the outcome of decoding one raw payload: either Value or Err is set.
type Record[T any] struct {
	Index int
	Value T
	Err   error
}

// OK reports whether the record decoded and validated cleanly.
func (r Record[T]) OK() bool {
	return r.Err == nil
}

// DecodeError collects the failed records of a batch.
type DecodeError struct {
	Failures map[int]error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %d record(s) rejected", len(e.Failures))
}

// DecodeRecord strictly decodes raw into T and validates it.
// Malformed payloads and missing required fields are errors, never defaulted.
func DecodeRecord[T any](raw []byte) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, errors.New("decode: empty payload")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode: %w", err)
	}
	if err := Default().Validate(&out); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeRecords decodes every payload independently. The returned slice has one
// tagged entry per input in order; err is a *DecodeError when any record failed.
func DecodeRecords[T any](raws [][]byte) ([]Record[T], error) {
	records := make([]Record[T], len(raws))
	var failures map[int]error

	for i, raw := range raws {
		value, err := DecodeRecord[T](raw)
		records[i] = Record[T]{Index: i, Value: value, Err: err}
		if err != nil {
			if failures == nil {
				failures = make(map[int]error)
			}
			failures[i] = err
		}
	}

	if failures != nil {
		return records, &DecodeError{Failures: failures}
	}
	return records, nil
}

// Valid returns only the successfully decoded values.
func Valid[T any](records []Record[T]) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r.OK() {
			out = append(out, r.Value)
		}
	}
	return out
}
