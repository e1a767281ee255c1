package domain

import "github.com/samirrijal/digipin/internal/pkg/digipin"

// PinRequest carries a single DIGIPIN.
type PinRequest struct {
	Pin string `json:"pin"`
}

// EncodeRequest carries a coordinate pair. Both fields are required.
type EncodeRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Check reports a missing coordinate.
func (r EncodeRequest) Check() error {
	if r.Latitude == nil {
		return &digipin.ValidationError{Field: "latitude", Reason: "latitude is required"}
	}
	if r.Longitude == nil {
		return &digipin.ValidationError{Field: "longitude", Reason: "longitude is required"}
	}
	return nil
}

type DistanceRequest struct {
	StartPin string `json:"start_pin"`
	EndPin   string `json:"end_pin"`
}

type NearestRequest struct {
	ReferencePin string   `json:"reference_pin"`
	Candidates   []string `json:"candidates"`
}

type BatchEncodeRequest struct {
	Items []CoordinateInput `json:"items"`
}

type BatchDecodeRequest struct {
	Pins []string `json:"pins"`
}

type BatchEncodeResponse struct {
	Items   []BatchEncodeItem `json:"items"`
	Summary BatchSummary      `json:"summary"`
}

type BatchDecodeResponse struct {
	Items   []BatchDecodeItem `json:"items"`
	Summary BatchSummary      `json:"summary"`
}
