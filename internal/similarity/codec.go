package similarity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate rejects empty vectors and vectors holding NaN or Inf.
func Validate(v []float64) error {
	if len(v) == 0 {
		return errors.New("vector has no dimensions")
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("value at index %d is not finite", i)
		}
	}
	return nil
}

// Encode serializes a vector as a JSON array for a text column.
func Encode(v []float64) (string, error) {
	if err := Validate(v); err != nil {
		return "", err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal vector: %w", err)
	}
	return string(data), nil
}

// Decode parses a JSON array produced by Encode.
func Decode(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty vector payload")
	}

	var v []float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("unmarshal vector: %w", err)
	}
	if len(v) == 0 {
		return nil, errors.New("vector has no dimensions")
	}
	return v, nil
}
