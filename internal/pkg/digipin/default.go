package digipin

// Normalize calls Default.Normalize.
func Normalize(pin string) (string, error) { return Default.Normalize(pin) }

// Validate calls Default.Validate.
func Validate(pin string) error { return Default.Validate(pin) }

// IsValid calls Default.IsValid.
func IsValid(pin string) bool { return Default.IsValid(pin) }

// Encode calls Default.Encode.
func Encode(lat, lon float64) (string, error) { return Default.Encode(lat, lon) }

// Decode calls Default.Decode.
func Decode(pin string) (Decoded, error) { return Default.Decode(pin) }

// Distance calls Default.Distance.
func Distance(a, b string) (float64, error) { return Default.Distance(a, b) }

// Summarize calls Default.Summarize.
func Summarize(a, b string) (Summary, error) { return Default.Summarize(a, b) }

// Nearest calls Default.Nearest.
func Nearest(ref string, candidates []string) (string, error) {
	return Default.Nearest(ref, candidates)
}
