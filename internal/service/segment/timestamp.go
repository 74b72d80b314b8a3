package segment

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	sourceLayout = "20060102150405"
	targetLayout = "2006-01-02T15:04:05.0000000Z07:00"
	sourceZone   = "Europe/Berlin"
)

var berlin = mustLoadLocation(sourceZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("can't load location %s: %v", name, err))
	}
	return loc
}

// ConvertTimestamp converts plan timestamp (yyyyMMddHHmmss, Berlin local time)
// to the sequencer's format with 7 fraction digits and UTC offset.
func ConvertTimestamp(value string) (string, error) {
	t, err := time.ParseInLocation(sourceLayout, value, berlin)
	if err != nil {
		return "", fmt.Errorf("error while parsing plan timestamp %q. Err: %w", value, err)
	}

	return t.Format(targetLayout), nil
}
