// Package satellite defines the orbital-element records served by a catalog
// origin and consumed by the client.
package satellite

import (
	"fmt"
	"strconv"
	"time"
)

// Record is one set of CCSDS OMM mean elements in the CelesTrak GP JSON layout.
// Orbit propagation treats it as input; the client never interprets it.
type Record struct {
	ObjectName         string  `json:"OBJECT_NAME"`
	ObjectID           string  `json:"OBJECT_ID"`
	Epoch              string  `json:"EPOCH"`
	MeanMotion         float64 `json:"MEAN_MOTION"`
	Eccentricity       float64 `json:"ECCENTRICITY"`
	Inclination        float64 `json:"INCLINATION"`
	RAOfAscNode        float64 `json:"RA_OF_ASC_NODE"`
	ArgOfPericenter    float64 `json:"ARG_OF_PERICENTER"`
	MeanAnomaly        float64 `json:"MEAN_ANOMALY"`
	EphemerisType      int     `json:"EPHEMERIS_TYPE"`
	ClassificationType string  `json:"CLASSIFICATION_TYPE"`
	NoradCatID         int     `json:"NORAD_CAT_ID"`
	ElementSetNo       int     `json:"ELEMENT_SET_NO"`
	RevAtEpoch         int     `json:"REV_AT_EPOCH"`
	BStar              float64 `json:"BSTAR"`
	MeanMotionDot      float64 `json:"MEAN_MOTION_DOT"`
	MeanMotionDDot     float64 `json:"MEAN_MOTION_DDOT"`
}

// ID returns the NORAD catalog number as used in /satellites/{id}.
func (r Record) ID() string {
	return strconv.Itoa(r.NoradCatID)
}

// Validate reports whether the record can be stored and served.
func (r Record) Validate() error {
	if r.NoradCatID <= 0 {
		return fmt.Errorf("norad_cat_id must be positive (got %d)", r.NoradCatID)
	}
	if r.ObjectName == "" {
		return fmt.Errorf("object_name is required (norad_cat_id %d)", r.NoradCatID)
	}
	return nil
}

// CacheStatus is the body returned by POST /satellites/cache.
type CacheStatus struct {
	Status      string    `json:"status"`
	Group       string    `json:"group"`
	Cached      int       `json:"cached"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Clone returns a copy of records that shares no backing array with the input.
func Clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
