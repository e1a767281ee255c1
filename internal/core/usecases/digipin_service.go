package usecases

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/digipin/internal/core/domain"
	"github.com/samirrijal/digipin/internal/pkg/digipin"
	"github.com/samirrijal/digipin/internal/pkg/metrics"
	"github.com/samirrijal/digipin/internal/pkg/telemetry"
)

// MaxBatchItems caps the number of rows in a batch request.
const MaxBatchItems = 1000

// Validation messages shown to API and agent callers.
const (
	MessageValid   = "Valid DIGIPIN."
	MessageInvalid = "DIGIPIN is invalid or outside coverage."
)

// DigipinService exposes the codec to the transport layers.
type DigipinService struct {
	codec *digipin.Codec
}

// NewDigipinService creates a new DigipinService. A nil codec uses digipin.Default.
func NewDigipinService(codec *digipin.Codec) *DigipinService {
	if codec == nil {
		codec = digipin.Default
	}
	return &DigipinService{codec: codec}
}

// Validate reports whether pin is well formed. It never fails.
func (s *DigipinService) Validate(ctx context.Context, pin string) domain.ValidationResult {
	_, span := telemetry.Tracer().Start(ctx, "digipin.validate")
	defer span.End()

	res := domain.ValidationResult{Pin: pin, IsValid: true, Message: MessageValid}
	code, err := s.codec.Normalize(pin)
	if err != nil {
		res.IsValid = false
		res.Message = MessageInvalid
		res.Reason = err.Error()
	} else {
		res.Normalized = digipin.Format(code)
	}
	span.SetAttributes(attribute.Bool("digipin.valid", res.IsValid))
	record("validate", err)
	return res
}

// Encode returns the DIGIPIN of (lat, lon).
func (s *DigipinService) Encode(ctx context.Context, lat, lon float64) (*domain.EncodeResult, error) {
	_, span := telemetry.Tracer().Start(ctx, "digipin.encode")
	defer span.End()

	code, err := s.codec.EncodeCanonical(lat, lon)
	if err != nil {
		return nil, finish(span, "encode", err)
	}
	pin := digipin.Format(code)
	span.SetAttributes(attribute.String(telemetry.AttrPin, pin))
	_ = finish(span, "encode", nil)
	return &domain.EncodeResult{Pin: pin, Canonical: code, Latitude: lat, Longitude: lon}, nil
}

// Decode returns the center and bounds of pin.
func (s *DigipinService) Decode(ctx context.Context, pin string) (*domain.DecodeResult, error) {
	_, span := telemetry.Tracer().Start(ctx, "digipin.decode")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrPin, pin))

	d, err := s.codec.Decode(pin)
	if err != nil {
		return nil, finish(span, "decode", err)
	}
	_ = finish(span, "decode", nil)
	return toDecodeResult(d), nil
}

// Cell returns the cell addressed by the first depth symbols of pin as a
// GeoJSON polygon feature.
func (s *DigipinService) Cell(ctx context.Context, pin string, depth int) (*geojson.Feature, error) {
	_, span := telemetry.Tracer().Start(ctx, "digipin.cell")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrPin, pin), attribute.Int("digipin.depth", depth))

	code, err := s.codec.Normalize(pin)
	if err != nil {
		return nil, finish(span, "cell", err)
	}
	cell, err := s.codec.CellAt(code, depth)
	if err != nil {
		return nil, finish(span, "cell", err)
	}
	_ = finish(span, "cell", nil)

	bound := orb.Bound{
		Min: orb.Point{cell.SouthWest.Lon, cell.SouthWest.Lat},
		Max: orb.Point{cell.NorthEast.Lon, cell.NorthEast.Lat},
	}
	center := bound.Center()

	f := geojson.NewFeature(bound.ToPolygon())
	f.BBox = geojson.NewBBox(bound)
	f.Properties["pin"] = digipin.Format(code)
	f.Properties["prefix"] = code[:depth]
	f.Properties["depth"] = depth
	f.Properties["center"] = []float64{center.Lon(), center.Lat()}
	return f, nil
}

// Distance returns the great-circle distance between the centers of a and b.
func (s *DigipinService) Distance(ctx context.Context, a, b string) (*domain.DistanceSummary, error) {
	_, span := telemetry.Tracer().Start(ctx, "digipin.distance")
	defer span.End()

	sum, err := s.codec.Summarize(a, b)
	if err != nil {
		return nil, finish(span, "distance", err)
	}
	span.SetAttributes(attribute.Float64("digipin.distance_meters", sum.Meters))
	_ = finish(span, "distance", nil)
	return &domain.DistanceSummary{
		StartPin:   a,
		EndPin:     b,
		Meters:     sum.Meters,
		Kilometers: sum.Kilometers,
		Formatted:  sum.Formatted,
	}, nil
}

// Nearest returns the candidate closest to ref. Ties go to the earliest candidate.
func (s *DigipinService) Nearest(ctx context.Context, ref string, candidates []string) (*domain.NearestResult, error) {
	_, span := telemetry.Tracer().Start(ctx, "digipin.nearest")
	defer span.End()
	span.SetAttributes(attribute.Int("digipin.candidates", len(candidates)))

	m, err := s.codec.NearestMatch(ref, candidates)
	if err != nil {
		return nil, finish(span, "nearest", err)
	}
	_ = finish(span, "nearest", nil)
	return &domain.NearestResult{
		ReferencePin:   ref,
		Nearest:        m.Pin,
		Index:          m.Index,
		DistanceMeters: m.Meters,
	}, nil
}

// BatchEncode encodes every row. A rejected row is reported in its item and
// never fails the batch.
func (s *DigipinService) BatchEncode(ctx context.Context, rows []domain.CoordinateInput) ([]domain.BatchEncodeItem, domain.BatchSummary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "digipin.batch_encode")
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrBatchSize, len(rows)))

	if err := checkBatch(len(rows)); err != nil {
		return nil, domain.BatchSummary{}, finish(span, "batch_encode", err)
	}
	metrics.CodecBatchSize.WithLabelValues("encode").Observe(float64(len(rows)))

	items := make([]domain.BatchEncodeItem, len(rows))
	sum := domain.BatchSummary{Total: len(rows)}
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, domain.BatchSummary{}, finish(span, "batch_encode", err)
		}
		item := domain.BatchEncodeItem{Index: i, Latitude: r.Latitude, Longitude: r.Longitude}
		if pin, err := s.codec.Encode(r.Latitude, r.Longitude); err != nil {
			item.Error = err.Error()
			sum.Failed++
		} else {
			item.Pin = pin
			sum.Succeeded++
		}
		items[i] = item
	}
	_ = finish(span, "batch_encode", nil)
	return items, sum, nil
}

// BatchDecode decodes every pin. A rejected pin is reported in its item and
// never fails the batch.
func (s *DigipinService) BatchDecode(ctx context.Context, pins []string) ([]domain.BatchDecodeItem, domain.BatchSummary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "digipin.batch_decode")
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.AttrBatchSize, len(pins)))

	if err := checkBatch(len(pins)); err != nil {
		return nil, domain.BatchSummary{}, finish(span, "batch_decode", err)
	}
	metrics.CodecBatchSize.WithLabelValues("decode").Observe(float64(len(pins)))

	items := make([]domain.BatchDecodeItem, len(pins))
	sum := domain.BatchSummary{Total: len(pins)}
	for i, pin := range pins {
		if err := ctx.Err(); err != nil {
			return nil, domain.BatchSummary{}, finish(span, "batch_decode", err)
		}
		item := domain.BatchDecodeItem{Index: i, Input: pin}
		if d, err := s.codec.Decode(pin); err != nil {
			item.Error = err.Error()
			sum.Failed++
		} else {
			item.Result = toDecodeResult(d)
			sum.Succeeded++
		}
		items[i] = item
	}
	_ = finish(span, "batch_decode", nil)
	return items, sum, nil
}

func checkBatch(n int) error {
	if n == 0 {
		return &digipin.ValidationError{Field: "items", Reason: "batch must contain at least one item"}
	}
	if n > MaxBatchItems {
		return &digipin.ValidationError{
			Field:  "items",
			Reason: fmt.Sprintf("batch must contain at most %d items, got %d", MaxBatchItems, n),
		}
	}
	return nil
}

func toDecodeResult(d digipin.Decoded) *domain.DecodeResult {
	return &domain.DecodeResult{
		Pin:       d.Pin,
		Latitude:  d.Center.Lat,
		Longitude: d.Center.Lon,
		Bounds: domain.Bounds{
			SouthWest: domain.GeoPoint{Lat: d.Cell.SouthWest.Lat, Lon: d.Cell.SouthWest.Lon},
			NorthEast: domain.GeoPoint{Lat: d.Cell.NorthEast.Lat, Lon: d.Cell.NorthEast.Lon},
		},
	}
}

// finish records the outcome of op on span and in metrics, returning err unchanged.
func finish(span trace.Span, op string, err error) error {
	o := outcome(err)
	span.SetAttributes(attribute.String(telemetry.AttrOutcome, o))
	if o == metrics.OutcomeError {
		span.SetStatus(codes.Error, err.Error())
	}
	record(op, err)
	return err
}

func record(op string, err error) {
	metrics.CodecOperations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case digipin.IsValidationError(err):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
