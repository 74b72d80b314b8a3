package models

import (
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleOrder_SetOrderNumber(t *testing.T) {
	t.Run("valid number sets series", func(t *testing.T) {
		o := NewVehicleOrder()

		o.SetOrderNumber("123456789")

		require.Equal(t, "123456789", o.OrderNumber())
		require.Equal(t, "1234", o.SeriesNumber())
	})

	t.Run("length counted in characters", func(t *testing.T) {
		o := NewVehicleOrder()

		o.SetOrderNumber("Ä12345678")
		o.SetFeatures([]string{"D1"})

		require.Equal(t, "Ä12345678", o.OrderNumber())
		require.Equal(t, "Ä123", o.SeriesNumber())
		require.True(t, utf8.ValidString(o.SeriesNumber()))
		require.Equal(t, []string{"D1", "Ä123"}, o.Features())
	})

	t.Run("wrong length ignored", func(t *testing.T) {
		tests := []struct {
			name   string
			number string
		}{
			{"empty", ""},
			{"short", "12345678"},
			{"long", "1234567890"},
			{"short with multibyte character", "123Ä5678"},
			{"long with multibyte characters", "ÄÖÜ1234567"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				o := NewVehicleOrder()
				o.SetOrderNumber("111122222")

				o.SetOrderNumber(tt.number)

				require.Equal(t, "111122222", o.OrderNumber(), "previous number must be kept")
				require.Equal(t, "1111", o.SeriesNumber())
			})
		}
	})
}

func TestVehicleOrder_SetFeatures(t *testing.T) {
	t.Run("series appended", func(t *testing.T) {
		o := NewVehicleOrder()
		o.SetOrderNumber("123456789")

		o.SetFeatures([]string{"D1", "O1"})

		require.Equal(t, []string{"D1", "O1", "1234"}, o.Features())
	})

	t.Run("caller slice not modified", func(t *testing.T) {
		o := NewVehicleOrder()
		o.SetOrderNumber("123456789")
		features := make([]string, 2, 10)
		features[0], features[1] = "D1", "O1"

		o.SetFeatures(features)
		features = append(features, "X")

		require.Equal(t, []string{"D1", "O1", "X"}, features)
		require.Equal(t, []string{"D1", "O1", "1234"}, o.Features())
	})

	t.Run("no series without order number", func(t *testing.T) {
		o := NewVehicleOrder()

		o.SetFeatures([]string{"D1"})

		require.Equal(t, []string{"D1"}, o.Features())
	})
}

func TestVehicleOrder_Equal(t *testing.T) {
	a, b, c := NewVehicleOrder(), NewVehicleOrder(), NewVehicleOrder()
	a.SetOrderNumber("123456789")
	b.SetOrderNumber("123456789")
	b.Model = "other"
	c.SetOrderNumber("987654321")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	empty := NewVehicleOrder()
	assert.False(t, empty.Equal(NewVehicleOrder()), "orders without number never equal")
}

func TestSeriesPrefix(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   string
	}{
		{"ascii", "123456789", "1234"},
		{"multibyte first", "Ä12345678", "Ä123"},
		{"multibyte inside", "12Ä456789", "12Ä4"},
		{"shorter than series", "12", "12"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeriesPrefix(tt.number))
		})
	}
}

func TestVehicleOrder_JSON(t *testing.T) {
	t.Run("marshal", func(t *testing.T) {
		o := NewVehicleOrder()
		o.SetOrderNumber("123456789")
		o.Model = "M1"
		o.AddDate("2024-03-01T14:30:00.0000000+01:00", "Station1", "PLAN")
		o.SetFeatures([]string{"D1"})

		data, err := json.Marshal(o)

		require.NoError(t, err)
		require.JSONEq(t, `{
			"orderNumber": "123456789",
			"model": "M1",
			"description": null,
			"dates": [{"date": "2024-03-01T14:30:00.0000000+01:00", "location": "Station1", "type": "PLAN"}],
			"features": ["D1", "1234"]
		}`, string(data))
	})

	t.Run("marshal empty", func(t *testing.T) {
		data, err := json.Marshal(NewVehicleOrder())

		require.NoError(t, err)
		require.JSONEq(t, `{"orderNumber": null, "model": null, "description": null, "dates": [], "features": []}`, string(data))
	})

	t.Run("round trip", func(t *testing.T) {
		o := NewVehicleOrder()
		o.SetOrderNumber("123456789")
		o.Model = "M1"
		o.Description = "Desc"
		o.AddDate("2024-03-01T14:30:00.0000000+01:00", "Station1", "PLAN")
		o.SetFeatures([]string{"D1", "O1"})

		data, err := json.Marshal(o)
		require.NoError(t, err)

		var got VehicleOrder
		require.NoError(t, json.Unmarshal(data, &got))

		require.Equal(t, o.OrderNumber(), got.OrderNumber())
		require.Equal(t, o.SeriesNumber(), got.SeriesNumber())
		require.Equal(t, o.Model, got.Model)
		require.Equal(t, o.Description, got.Description)
		require.Equal(t, o.Dates(), got.Dates())
		require.Equal(t, []string{"D1", "O1", "1234"}, got.Features(), "series entry must not be duplicated")
	})

	t.Run("unmarshal defensive", func(t *testing.T) {
		var got VehicleOrder
		err := json.Unmarshal([]byte(`{
			"orderNumber": "123456789",
			"dates": [{"date": "d", "location": "l", "type": "t"}, 5, null],
			"features": ["A", 1, null, {"x": 1}, "B"]
		}`), &got)

		require.NoError(t, err)
		require.Equal(t, "123456789", got.OrderNumber())
		require.Empty(t, got.Model)
		require.Empty(t, got.Description)
		require.Equal(t, []DateEntry{{Date: "d", Location: "l", Type: "t"}}, got.Dates())
		require.Equal(t, []string{"A", "B"}, got.Features())
	})

	t.Run("unmarshal replaces previous fields", func(t *testing.T) {
		got := NewVehicleOrder()
		got.SetOrderNumber("111122222")
		got.Model = "old"
		got.SetFeatures([]string{"old"})

		require.NoError(t, json.Unmarshal([]byte(`{"model": "new"}`), &got))

		require.Empty(t, got.OrderNumber())
		require.Equal(t, "new", got.Model)
		require.Empty(t, got.Features())
	})

	t.Run("unmarshal invalid order number", func(t *testing.T) {
		var got VehicleOrder
		require.NoError(t, json.Unmarshal([]byte(`{"orderNumber": "123"}`), &got))

		require.Empty(t, got.OrderNumber())
		require.Empty(t, got.SeriesNumber())
	})

	t.Run("unmarshal not an object", func(t *testing.T) {
		var got VehicleOrder
		require.Error(t, json.Unmarshal([]byte(`[1, 2]`), &got))
	})
}
