package ingest

import (
	"encoding/gob"
	"os"

	"github.com/chingiztob/cascade/internal/coreerr"
)

// FootAccess is the per-way pedestrian access tag carried by the street
// feed.
type FootAccess uint8

const (
	FootAllowed FootAccess = iota
	FootDenied
	FootUnknown
)

// StreetNode is a pedestrian-network vertex as read from the street feed,
// keyed by its external (OSM) identifier.
type StreetNode struct {
	ID  int64
	Lon float64
	Lat float64
}

// StreetWay is one tagged way: an ordered sequence of node identifiers
// forming a polyline, with the foot-access classification assembly uses to
// decide whether to admit it.
type StreetWay struct {
	NodeIDs []int64
	Foot    FootAccess
}

// StreetData is the ingestion adapter's output for the street network.
type StreetData struct {
	Nodes []StreetNode
	Ways  []StreetWay
}

// LoadStreets decodes a binary stream of OSM-style nodes and ways. The wire
// format is gob-encoded StreetData, decoded with the standard library (see
// DESIGN.md). Ways are returned with their foot-access tag; filtering on it
// happens in graph assembly.
func LoadStreets(path string) (*StreetData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoError, err, "opening street feed %s", path)
	}
	defer f.Close()

	var data StreetData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidData, err, "decoding street feed %s", path)
	}
	return &data, nil
}
