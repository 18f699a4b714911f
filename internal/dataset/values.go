package dataset

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var nullLiteral = []byte("null")

// Text is a loosely typed optional scalar. Source exports mix strings,
// numbers and nulls for the same field, so any scalar is kept as text.
type Text struct {
	Value string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, nullLiteral) {
		*t = Text{}
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*t = Text{Value: value, Valid: true}
		return nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return fmt.Errorf("dataset: expected scalar, got %s", trimmed)
	}
	*t = Text{Value: string(trimmed), Valid: true}
	return nil
}

// Ptr returns nil for absent values.
func (t Text) Ptr() *string {
	if !t.Valid {
		return nil
	}
	value := t.Value
	return &value
}

// String returns the value or an empty string when absent.
func (t Text) String() string {
	return t.Value
}

// Coordinate is a decimal degree accepting numbers or numeric strings,
// including a comma as decimal separator.
type Coordinate float64

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var raw Text
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	if !raw.Valid {
		return fmt.Errorf("dataset: coordinate is null")
	}
	parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw.Value), ",", "."), 64)
	if err != nil {
		return fmt.Errorf("dataset: invalid coordinate %q: %w", raw.Value, err)
	}
	*c = Coordinate(parsed)
	return nil
}

// Float64 exposes the raw value.
func (c Coordinate) Float64() float64 {
	return float64(c)
}
