package shared

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe represents the fixed width of a candle bucket.
type Timeframe time.Duration

const (
	OneMinute  = Timeframe(time.Minute)
	FiveMinute = Timeframe(5 * time.Minute)
	OneHour    = Timeframe(time.Hour)
)

// DefaultTimeframes returns the candle timeframes used when none are configured.
func DefaultTimeframes() []Timeframe {
	return []Timeframe{OneMinute, FiveMinute, OneHour}
}

// ParseTimeframe parses a timeframe from its textual form (eg. "1m", "5m", "1h").
func ParseTimeframe(value string) (Timeframe, error) {
	duration, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parsing timeframe %q: %v", value, err)
	}

	if duration < time.Minute {
		return 0, fmt.Errorf("timeframe %q cannot be shorter than a minute", value)
	}
	if duration%time.Minute != 0 {
		return 0, fmt.Errorf("timeframe %q must be a whole number of minutes", value)
	}

	return Timeframe(duration), nil
}

// ParseTimeframes parses a collection of timeframes from their textual forms.
func ParseTimeframes(values []string) ([]Timeframe, error) {
	timeframes := make([]Timeframe, 0, len(values))
	for idx := range values {
		timeframe, err := ParseTimeframe(values[idx])
		if err != nil {
			return nil, err
		}

		timeframes = append(timeframes, timeframe)
	}

	return timeframes, nil
}

// Duration returns the time span covered by the timeframe.
func (t Timeframe) Duration() time.Duration {
	return time.Duration(t)
}

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	duration := time.Duration(t)
	if duration >= time.Hour && duration%time.Hour == 0 {
		return fmt.Sprintf("%dh", duration/time.Hour)
	}

	return fmt.Sprintf("%dm", duration/time.Minute)
}

// Bucket truncates the provided time down to the aligned start of the bucket
// containing it. Timeframes of an hour or more align to the start of the hour,
// shorter timeframes align to the nearest multiple of their minute span.
func (t Timeframe) Bucket(timestamp time.Time) time.Time {
	timestamp = timestamp.UTC()
	if time.Duration(t) >= time.Hour {
		return time.Date(timestamp.Year(), timestamp.Month(), timestamp.Day(),
			timestamp.Hour(), 0, 0, 0, time.UTC)
	}

	span := int(time.Duration(t) / time.Minute)
	minute := (timestamp.Minute() / span) * span
	return time.Date(timestamp.Year(), timestamp.Month(), timestamp.Day(),
		timestamp.Hour(), minute, 0, 0, time.UTC)
}
