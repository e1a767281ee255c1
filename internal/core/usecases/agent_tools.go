package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samirrijal/digipin/internal/core/domain"
	"github.com/samirrijal/digipin/internal/pkg/digipin"
	"github.com/samirrijal/digipin/internal/pkg/metrics"
)

// Tool names exposed to the language model.
const (
	ToolValidate = "validate_digipin"
	ToolDecode   = "decode_digipin"
	ToolEncode   = "encode_coordinates"
	ToolDistance = "distance_between"
	ToolNearest  = "nearest_digipin"
)

// ToolDeclarations describes the codec operations the model may call.
func ToolDeclarations() []domain.ToolDeclaration {
	str := func() *domain.Schema { return &domain.Schema{Type: "STRING"} }
	num := func() *domain.Schema { return &domain.Schema{Type: "NUMBER"} }
	object := func(required []string, props map[string]*domain.Schema) *domain.Schema {
		return &domain.Schema{Type: "OBJECT", Properties: props, Required: required}
	}

	return []domain.ToolDeclaration{
		{
			Name:        ToolValidate,
			Description: "Validate a DIGIPIN code and return status plus hints",
			Parameters:  object([]string{"pin"}, map[string]*domain.Schema{"pin": str()}),
		},
		{
			Name:        ToolDecode,
			Description: "Convert DIGIPIN to latitude, longitude and bounding box",
			Parameters:  object([]string{"pin"}, map[string]*domain.Schema{"pin": str()}),
		},
		{
			Name:        ToolEncode,
			Description: "Encode latitude & longitude into a DIGIPIN code",
			Parameters: object([]string{"latitude", "longitude"}, map[string]*domain.Schema{
				"latitude":  num(),
				"longitude": num(),
			}),
		},
		{
			Name:        ToolDistance,
			Description: "Calculate aerial distance between two DIGIPIN points",
			Parameters: object([]string{"start_pin", "end_pin"}, map[string]*domain.Schema{
				"start_pin": str(),
				"end_pin":   str(),
			}),
		},
		{
			Name:        ToolNearest,
			Description: "Find nearest DIGIPIN from a candidate list relative to reference pin",
			Parameters: object([]string{"reference_pin", "candidates"}, map[string]*domain.Schema{
				"reference_pin": str(),
				"candidates": {
					Type:        "ARRAY",
					Items:       str(),
					Description: "List of DIGIPIN codes",
				},
			}),
		},
	}
}

// runTool executes one model function call. Failures are reported in the
// returned map as {"error": ...} and never abort the turn.
func (s *AgentService) runTool(ctx context.Context, call domain.FunctionCall) map[string]any {
	result, err := s.dispatch(ctx, call.Name, call.Args)

	label := call.Name
	switch {
	case err == nil:
		metrics.AgentToolCalls.WithLabelValues(label, metrics.OutcomeOK).Inc()
		return result
	case errUnknownTool(err):
		metrics.AgentToolCalls.WithLabelValues("unknown", metrics.OutcomeError).Inc()
		return map[string]any{"error": err.Error()}
	case digipin.IsValidationError(err):
		slog.WarnContext(ctx, "tool validation error", "tool", call.Name, "error", err)
		metrics.AgentToolCalls.WithLabelValues(label, metrics.OutcomeInvalid).Inc()
		return map[string]any{"error": err.Error()}
	default:
		slog.ErrorContext(ctx, "tool failed", "tool", call.Name, "error", err)
		metrics.AgentToolCalls.WithLabelValues(label, metrics.OutcomeError).Inc()
		return map[string]any{"error": call.Name + " failed"}
	}
}

type unknownToolError struct{ name string }

func (e *unknownToolError) Error() string { return "unknown function: " + e.name }

func errUnknownTool(err error) bool {
	_, ok := err.(*unknownToolError)
	return ok
}

func (s *AgentService) dispatch(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch name {
	case ToolValidate:
		pin, _ := stringArg(args, "pin")
		res := s.codec.Validate(ctx, pin)
		return map[string]any{"pin": pin, "is_valid": res.IsValid, "message": res.Message}, nil

	case ToolDecode:
		pin, err := requiredString(args, "pin")
		if err != nil {
			return nil, err
		}
		res, err := s.codec.Decode(ctx, pin)
		if err != nil {
			return nil, err
		}
		return toMap(res)

	case ToolEncode:
		lat, err := requiredFloat(args, "latitude")
		if err != nil {
			return nil, err
		}
		lon, err := requiredFloat(args, "longitude")
		if err != nil {
			return nil, err
		}
		res, err := s.codec.Encode(ctx, lat, lon)
		if err != nil {
			return nil, err
		}
		return map[string]any{"pin": res.Pin}, nil

	case ToolDistance:
		start, err := requiredString(args, "start_pin")
		if err != nil {
			return nil, err
		}
		end, err := requiredString(args, "end_pin")
		if err != nil {
			return nil, err
		}
		res, err := s.codec.Distance(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return toMap(res)

	case ToolNearest:
		ref, err := requiredString(args, "reference_pin")
		if err != nil {
			return nil, err
		}
		res, err := s.codec.Nearest(ctx, ref, candidateList(args["candidates"]))
		if err != nil {
			return nil, err
		}
		return map[string]any{"nearest": res.Nearest}, nil
	}
	return nil, &unknownToolError{name: name}
}

func stringArg(args map[string]any, key string) (string, bool) {
	switch v := args[key].(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

func requiredString(args map[string]any, key string) (string, error) {
	v, ok := stringArg(args, key)
	if !ok {
		return "", &digipin.ValidationError{Field: key, Reason: "missing argument: " + key}
	}
	return v, nil
}

func requiredFloat(args map[string]any, key string) (float64, error) {
	switch v := args[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, &digipin.ValidationError{Field: key, Reason: fmt.Sprintf("%s must be a number, got %q", key, v)}
		}
		return f, nil
	case nil:
		return 0, &digipin.ValidationError{Field: key, Reason: "missing argument: " + key}
	default:
		return 0, &digipin.ValidationError{Field: key, Reason: fmt.Sprintf("%s must be a number", key)}
	}
}

// candidateList accepts a list or a comma-separated string.
func candidateList(v any) []string {
	var out []string
	switch c := v.(type) {
	case []string:
		out = append(out, c...)
	case []any:
		for _, item := range c {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
	case string:
		for _, part := range strings.Split(c, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
