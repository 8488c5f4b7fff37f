package cot

import (
	"fmt"
	"strings"

	"github.com/tacmesh/meshrelay/internal/relay/jsoncodec"
)

// MeshMarker is the detail token whose presence requests mesh relay.
// Detection is a plain substring test on the raw detail text,
// case-sensitive and not XML-aware. Downstream producers rely on this
// loose contract, so it must not be tightened into a structural parse.
const MeshMarker = "__meshtastic"

// Event is the structured CoT record carried inside a pipeline message.
// Field names mirror the TAK wire representation. Zero values mean
// "absent": empty strings, zero timestamps, and zero numerics are
// omitted from the canonical encoding.
type Event struct {
	UID  string `json:"uid,omitempty"`
	Type string `json:"type,omitempty"`
	How  string `json:"how,omitempty"`

	SendTime  int64 `json:"sendTime,omitempty"`
	StartTime int64 `json:"startTime,omitempty"`
	StaleTime int64 `json:"staleTime,omitempty"`

	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
	Hae float64 `json:"hae,omitempty"`
	Ce  float64 `json:"ce,omitempty"`
	Le  float64 `json:"le,omitempty"`

	// Detail is the raw XML detail payload, carried verbatim.
	Detail string `json:"detail,omitempty"`
}

// Envelope mirrors the TAK message wrapper: the event, when present,
// sits at payload.cotEvent.
type Envelope struct {
	Payload *Payload `json:"payload,omitempty"`
}

// Payload is the inner wrapper of an Envelope.
type Payload struct {
	CotEvent *Event `json:"cotEvent,omitempty"`
}

// Decode extracts the event from a pipeline message payload. It returns
// (nil, nil) when the envelope decodes cleanly but carries no event, and
// an error only when the payload is not a decodable envelope at all.
func Decode(payload []byte) (*Event, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	var env Envelope
	if err := jsoncodec.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.Payload == nil {
		return nil, nil
	}
	return env.Payload.CotEvent, nil
}

// WantsMeshRelay reports whether the event's detail payload carries the
// mesh relay marker.
func (e *Event) WantsMeshRelay() bool {
	if e == nil {
		return false
	}
	return strings.Contains(e.Detail, MeshMarker)
}
