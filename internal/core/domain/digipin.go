package domain

// EncodeResult is the DIGIPIN for a coordinate pair.
type EncodeResult struct {
	Pin       string  `json:"pin"`
	Canonical string  `json:"canonical"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DecodeResult is the center and cell addressed by a DIGIPIN.
type DecodeResult struct {
	Pin       string  `json:"pin"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Bounds    Bounds  `json:"bounds"`
}

// ValidationResult reports whether a DIGIPIN is well formed.
type ValidationResult struct {
	Pin     string `json:"pin"`
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
	// Normalized is the hyphenated form; empty when IsValid is false.
	Normalized string `json:"normalized,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// DistanceSummary is the great-circle distance between two cell centers.
type DistanceSummary struct {
	StartPin   string  `json:"start_pin"`
	EndPin     string  `json:"end_pin"`
	Meters     float64 `json:"meters"`
	Kilometers float64 `json:"kilometers"`
	Formatted  string  `json:"formatted"`
}

// NearestResult is the candidate closest to a reference DIGIPIN.
type NearestResult struct {
	ReferencePin   string  `json:"reference_pin"`
	Nearest        string  `json:"nearest"`
	Index          int     `json:"index"`
	DistanceMeters float64 `json:"distance_meters"`
}

// CoordinateInput is one row of a batch encode.
type CoordinateInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BatchEncodeItem is one row of a batch encode result. Error is set instead
// of Pin when the row was rejected.
type BatchEncodeItem struct {
	Index     int     `json:"index"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Pin       string  `json:"pin,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// BatchDecodeItem is one row of a batch decode result.
type BatchDecodeItem struct {
	Index  int           `json:"index"`
	Input  string        `json:"input"`
	Result *DecodeResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// BatchSummary counts the rows of a batch result.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
