package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	OrderNumberLength  = 9
	SeriesNumberLength = 4
)

// Scheduled date of a vehicle at some location
type DateEntry struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

// VehicleOrder is the order record exchanged with the sequencer.
//
// Order number is either unset or exactly OrderNumberLength characters long,
// series number is always derived from it.
type VehicleOrder struct {
	Model       string
	Description string

	orderNumber  string
	seriesNumber string
	dates        []DateEntry
	features     []string
}

func NewVehicleOrder() VehicleOrder {
	return VehicleOrder{
		dates:    []DateEntry{},
		features: []string{},
	}
}

func (o *VehicleOrder) OrderNumber() string {
	return o.orderNumber
}

func (o *VehicleOrder) SeriesNumber() string {
	return o.seriesNumber
}

// SeriesPrefix returns first SeriesNumberLength characters of the order number,
// whole number if it is shorter. Lengths are counted in characters, not bytes.
func SeriesPrefix(orderNumber string) string {
	runes := []rune(orderNumber)
	if len(runes) < SeriesNumberLength {
		return orderNumber
	}
	return string(runes[:SeriesNumberLength])
}

// SetOrderNumber ignores numbers with wrong length
func (o *VehicleOrder) SetOrderNumber(number string) {
	if utf8.RuneCountInString(number) != OrderNumberLength {
		return
	}

	o.orderNumber = number
	o.seriesNumber = SeriesPrefix(number)
}

func (o *VehicleOrder) AddDate(date string, location string, typ string) {
	o.dates = append(o.dates, DateEntry{Date: date, Location: location, Type: typ})
}

func (o *VehicleOrder) Dates() []DateEntry {
	return append([]DateEntry{}, o.dates...)
}

// SetFeatures stores copy of features with series number appended as the last entry.
// Caller's slice is never modified.
// Nothing is appended while order number is unset: features never carry an empty series code.
func (o *VehicleOrder) SetFeatures(features []string) {
	list := make([]string, 0, len(features)+1)
	list = append(list, features...)
	if o.seriesNumber != "" {
		list = append(list, o.seriesNumber)
	}
	o.features = list
}

func (o *VehicleOrder) Features() []string {
	return append([]string{}, o.features...)
}

// Equal reports whether both orders have the same order number.
// Orders without order number are never equal.
func (o *VehicleOrder) Equal(other VehicleOrder) bool {
	return o.orderNumber != "" && o.orderNumber == other.orderNumber
}

type vehicleOrderJSON struct {
	OrderNumber *string     `json:"orderNumber"`
	Model       *string     `json:"model"`
	Description *string     `json:"description"`
	Dates       []DateEntry `json:"dates"`
	Features    []string    `json:"features"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (o VehicleOrder) MarshalJSON() ([]byte, error) {
	v := vehicleOrderJSON{
		OrderNumber: nullable(o.orderNumber),
		Model:       nullable(o.Model),
		Description: nullable(o.Description),
		Dates:       o.Dates(),
		Features:    o.Features(),
	}
	return json.Marshal(v)
}

// UnmarshalJSON replaces all fields. Missing keys leave fields unset,
// malformed list entries are dropped.
func (o *VehicleOrder) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("error while decoding vehicle order. Err: %w", err)
	}

	*o = NewVehicleOrder()

	if s, ok := stringField(raw, "orderNumber"); ok {
		o.SetOrderNumber(s)
	}
	if s, ok := stringField(raw, "model"); ok {
		o.Model = s
	}
	if s, ok := stringField(raw, "description"); ok {
		o.Description = s
	}

	for _, item := range arrayField(raw, "dates") {
		if isNull(item) {
			continue
		}
		var d DateEntry
		if err := json.Unmarshal(item, &d); err != nil {
			continue
		}
		o.dates = append(o.dates, d)
	}

	for _, item := range arrayField(raw, "features") {
		var s string
		if isNull(item) || json.Unmarshal(item, &s) != nil {
			continue
		}
		o.features = append(o.features, s)
	}

	return nil
}

// Returns string value of the key, ok is false if key is missing or not a string
func stringField(raw map[string]json.RawMessage, key string) (string, bool) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func arrayField(raw map[string]json.RawMessage, key string) []json.RawMessage {
	var items []json.RawMessage
	if v, ok := raw[key]; ok {
		_ = json.Unmarshal(v, &items)
	}
	return items
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
