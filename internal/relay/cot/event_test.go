package cot

import (
	"testing"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("full envelope", func(t *testing.T) {
		payload := []byte(`{"payload":{"cotEvent":{"uid":"MESH-001","type":"a-f-G-U-C","lat":40.0,"lon":-105.0,"detail":"<__meshtastic/>"}}}`)
		event, err := Decode(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event == nil {
			t.Fatal("expected event")
		}
		if event.UID != "MESH-001" {
			t.Fatalf("unexpected uid: %q", event.UID)
		}
		if event.Lat != 40.0 || event.Lon != -105.0 {
			t.Fatalf("unexpected position: %v %v", event.Lat, event.Lon)
		}
	})

	t.Run("envelope without event", func(t *testing.T) {
		event, err := Decode([]byte(`{"payload":{}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event != nil {
			t.Fatalf("expected nil event, got %+v", event)
		}
	})

	t.Run("empty wrapper", func(t *testing.T) {
		event, err := Decode([]byte(`{}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event != nil {
			t.Fatal("expected nil event")
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		event, err := Decode(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event != nil {
			t.Fatal("expected nil event")
		}
	})

	t.Run("undecodable payload", func(t *testing.T) {
		if _, err := Decode([]byte("not json")); err == nil {
			t.Fatal("expected error for undecodable payload")
		}
	})
}

func TestWantsMeshRelay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		detail string
		want   bool
	}{
		{"marker present", `<contact callsign="A1"/><__meshtastic/>`, true},
		{"marker embedded in text", `before __meshtastic after`, true},
		{"no marker", `<contact callsign="A1"/>`, false},
		{"empty detail", "", false},
		{"case sensitive", `<__MESHTASTIC/>`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := &Event{Detail: tc.detail}
			if got := event.WantsMeshRelay(); got != tc.want {
				t.Fatalf("WantsMeshRelay() = %v, want %v", got, tc.want)
			}
		})
	}

	t.Run("nil event", func(t *testing.T) {
		var event *Event
		if event.WantsMeshRelay() {
			t.Fatal("nil event must not want relay")
		}
	})
}
