package utils

import (
	"fmt"
	"time"
)

// timestampLayout is the human-readable form datasets are stamped with.
const timestampLayout = time.ANSIC

// Timestamp formats the current time in the dataset metadata layout.
func Timestamp() string {
	return time.Now().Format(timestampLayout)
}

// ParseTimestamp returns the time behind a dataset timestamp attribute.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t, nil
}
