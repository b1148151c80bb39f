package timex

import (
	"strings"
	"time"
)

// APILayout is the timestamp layout exchanged with the server. Values are UTC
// and carry no zone designator.
const APILayout = "2006-01-02T15:04:05"

// APITime is a time.Time encoded with APILayout. The zero value encodes as
// null and null decodes to the zero value.
type APITime struct {
	time.Time
}

func NewAPITime(t time.Time) APITime {
	if t.IsZero() {
		return APITime{}
	}
	return APITime{Time: t.UTC().Truncate(time.Second)}
}

func (t APITime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(APILayout) + `"`), nil
}

func (t *APITime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	// some endpoints append fractional seconds or a zone; accept those too
	parsed, err := time.ParseInLocation(APILayout, s, time.UTC)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
	}
	t.Time = parsed.UTC()
	return nil
}

// FormatAPI renders t in APILayout (UTC). Used for multipart and query values.
func FormatAPI(t time.Time) string {
	return t.UTC().Format(APILayout)
}
