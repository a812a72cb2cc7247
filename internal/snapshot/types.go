package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// flexString accepts strings, numbers and null.
type flexString string

func (fs *flexString) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case string:
		*fs = flexString(value)
	case float64:
		*fs = flexString(strconv.FormatFloat(value, 'f', -1, 64))
	case nil:
		*fs = ""
	default:
		*fs = flexString(fmt.Sprintf("%v", value))
	}
	return nil
}

// flexPriority accepts 1..4 as a number or numeric string, or a level name.
// Anything else is kept as raw text with Level 0.
type flexPriority struct {
	Level int
	Raw   string
}

var priorityNames = map[string]int{
	"critical": 1,
	"urgent":   1,
	"high":     2,
	"medium":   3,
	"normal":   3,
	"low":      4,
}

func (fp *flexPriority) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*fp = flexPriority{}
	switch value := v.(type) {
	case float64:
		fp.Raw = strconv.FormatFloat(value, 'f', -1, 64)
		if value == float64(int(value)) {
			fp.Level = int(value)
		}
	case string:
		fp.Raw = value
		s := strings.ToLower(strings.TrimSpace(value))
		if n, err := strconv.Atoi(s); err == nil {
			fp.Level = n
		} else if n, ok := priorityNames[s]; ok {
			fp.Level = n
		}
	}
	return nil
}

// flexTime accepts the date and timestamp shapes Postgres and JavaScript
// exports produce. An unparseable value leaves Time zero and keeps Raw so
// the caller can report it.
type flexTime struct {
	Time time.Time
	Raw  string
}

// layouts are tried in order.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (ft *flexTime) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*ft = flexTime{}
	switch value := v.(type) {
	case string:
		ft.Raw = value
		ft.Time, _ = parseTime(value)
	case float64:
		// Epoch seconds, or milliseconds from JavaScript's Date.now().
		ft.Raw = strconv.FormatFloat(value, 'f', -1, 64)
		secs := int64(value)
		if secs > 1e11 {
			ft.Time = time.UnixMilli(secs).UTC()
		} else if secs > 0 {
			ft.Time = time.Unix(secs, 0).UTC()
		}
	}
	return nil
}

// Set reports whether a value was present.
func (ft flexTime) Set() bool {
	return ft.Raw != ""
}

// Malformed reports whether a value was present but could not be parsed.
func (ft flexTime) Malformed() bool {
	return ft.Set() && ft.Time.IsZero()
}

// Ptr returns the parsed time, or nil when absent or malformed.
func (ft flexTime) Ptr() *time.Time {
	if ft.Time.IsZero() {
		return nil
	}
	t := ft.Time
	return &t
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
