package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/digipin/internal/adapters/http"
	"github.com/samirrijal/digipin/internal/core/domain"
	"github.com/samirrijal/digipin/internal/core/usecases"
)

const (
	delhi  = "39J-49L-L8T4"
	mumbai = "4FK-595-8823"
)

// ---- Mock LanguageModel ----

type mockModel struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (m *mockModel) Generate(ctx context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ModelResponse{Content: domain.ChatContent{
		Role:  domain.RoleModel,
		Parts: []domain.ChatPart{{Text: m.text}},
	}}, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := handler.NewApp(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	svc := usecases.NewDigipinService(nil)
	d := &handler.Dependencies{
		Digipin: svc,
		Agent:   usecases.NewAgentService(nil, svc, nil, nil, usecases.AgentOptions{}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func withModel(m *mockModel) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Agent = usecases.NewAgentService(m, d.Digipin, nil, nil, usecases.AgentOptions{})
	}
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body)
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeAPIError(t *testing.T, body []byte) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return apiErr
}

// ---- Encode ----

func TestEncode_Success(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/digipin/encode", `{"latitude":28.622788,"longitude":77.213033}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res domain.EncodeResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Pin != delhi {
		t.Errorf("expected %s, got %s", delhi, res.Pin)
	}
	if res.Canonical != "39J49LL8T4" {
		t.Errorf("expected canonical 39J49LL8T4, got %s", res.Canonical)
	}
}

func TestEncode_BadInput(t *testing.T) {
	app := setupApp(makeDeps())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing latitude", `{"longitude":77.2}`, "latitude is required"},
		{"missing longitude", `{"latitude":28.6}`, "longitude is required"},
		{"latitude out of range", `{"latitude":40,"longitude":77.2}`, "latitude"},
		{"longitude out of range", `{"latitude":28.6,"longitude":100}`, "longitude"},
		{"malformed body", `{"latitude":`, "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postJSON(t, app, "/v1/digipin/encode", tt.body)
			if status != 400 {
				t.Fatalf("expected 400, got %d", status)
			}
			apiErr := decodeAPIError(t, body)
			if apiErr.Code != "bad_request" {
				t.Errorf("expected bad_request, got %s", apiErr.Code)
			}
			if !strings.Contains(apiErr.Message, tt.want) {
				t.Errorf("expected message containing %q, got %q", tt.want, apiErr.Message)
			}
			if apiErr.RequestID == "" {
				t.Error("expected request_id in error body")
			}
		})
	}
}

// ---- Decode ----

func TestDecode_Post(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/digipin/decode", `{"pin":"39j49ll8t4"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res domain.DecodeResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Pin != delhi {
		t.Errorf("expected %s, got %s", delhi, res.Pin)
	}
	if res.Latitude < res.Bounds.SouthWest.Lat || res.Latitude > res.Bounds.NorthEast.Lat {
		t.Errorf("center latitude %f outside bounds %+v", res.Latitude, res.Bounds)
	}
	if res.Longitude < res.Bounds.SouthWest.Lon || res.Longitude > res.Bounds.NorthEast.Lon {
		t.Errorf("center longitude %f outside bounds %+v", res.Longitude, res.Bounds)
	}
}

func TestDecode_InvalidPin(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/digipin/decode", `{"pin":"39J-49L"}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if msg := decodeAPIError(t, body).Message; msg != "DIGIPIN must have 10 characters, got 6" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestGetDigipin_CachingAndETag(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/digipin/"+delhi, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("expected immutable Cache-Control, got %q", cc)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/digipin/"+delhi, nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

func TestGetDigipin_Invalid(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/digipin/39J-49L-L8TA", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store on errors, got %q", cc)
	}
}

// ---- GeoJSON ----

func TestCellGeoJSON(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/digipin/"+delhi+"/geojson?depth=3", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected application/geo+json, got %q", ct)
	}

	var f struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.Type != "Feature" || f.Geometry.Type != "Polygon" {
		t.Fatalf("expected Feature/Polygon, got %s/%s", f.Type, f.Geometry.Type)
	}
	if len(f.Geometry.Coordinates) != 1 || len(f.Geometry.Coordinates[0]) != 5 {
		t.Errorf("expected one closed ring of 5 points, got %v", f.Geometry.Coordinates)
	}
	if f.Properties["prefix"] != "39J" {
		t.Errorf("expected prefix 39J, got %v", f.Properties["prefix"])
	}
	if f.Properties["depth"] != float64(3) {
		t.Errorf("expected depth 3, got %v", f.Properties["depth"])
	}
}

func TestCellGeoJSON_BadDepth(t *testing.T) {
	app := setupApp(makeDeps())

	for _, q := range []string{"abc", "11", "-1"} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/digipin/"+delhi+"/geojson?depth="+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("depth=%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

// ---- Validate / Distance / Nearest ----

func TestValidate(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/digipin/validate", `{"pin":"39J-49L-L8T0"}`)
	if status != 200 {
		t.Fatalf("expected 200 for an invalid pin, got %d", status)
	}
	var res domain.ValidationResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.IsValid {
		t.Error("expected is_valid false")
	}
	if res.Message != usecases.MessageInvalid {
		t.Errorf("expected %q, got %q", usecases.MessageInvalid, res.Message)
	}

	_, body = postJSON(t, app, "/v1/digipin/validate", `{"pin":"39j49ll8t4"}`)
	res = domain.ValidationResult{}
	_ = json.Unmarshal(body, &res)
	if !res.IsValid || res.Normalized != delhi {
		t.Errorf("expected valid %s, got %+v", delhi, res)
	}
}

func TestDistance(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/digipin/distance",
		fmt.Sprintf(`{"start_pin":%q,"end_pin":%q}`, delhi, mumbai))
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res domain.DistanceSummary
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Formatted != "1149.16 km" {
		t.Errorf("expected 1149.16 km, got %s", res.Formatted)
	}
	if res.StartPin != delhi || res.EndPin != mumbai {
		t.Errorf("pins not echoed: %+v", res)
	}
}

func TestNearest(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/digipin/nearest",
		fmt.Sprintf(`{"reference_pin":%q,"candidates":[%q,%q]}`, delhi, mumbai, "39J-49L-L8T5"))
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res domain.NearestResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Nearest != "39J-49L-L8T5" || res.Index != 1 {
		t.Errorf("expected 39J-49L-L8T5 at index 1, got %+v", res)
	}

	status, body = postJSON(t, app, "/v1/digipin/nearest", fmt.Sprintf(`{"reference_pin":%q,"candidates":[]}`, delhi))
	if status != 400 {
		t.Fatalf("expected 400 for empty candidates, got %d", status)
	}
	if msg := decodeAPIError(t, body).Message; msg != "no candidate DIGIPINs supplied" {
		t.Errorf("unexpected message %q", msg)
	}
}

// ---- Batch ----

func TestBatchEncode(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/digipin/batch/encode",
		`{"items":[{"latitude":28.622788,"longitude":77.213033},{"latitude":0,"longitude":0},{"latitude":19.076,"longitude":72.8777}]}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res domain.BatchEncodeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Summary != (domain.BatchSummary{Total: 3, Succeeded: 2, Failed: 1}) {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
	if res.Items[0].Pin != delhi || res.Items[2].Pin != mumbai {
		t.Errorf("unexpected pins %+v", res.Items)
	}
	if res.Items[1].Error == "" || res.Items[1].Pin != "" {
		t.Errorf("expected row 1 to carry an error, got %+v", res.Items[1])
	}
}

func TestBatchDecode_Limits(t *testing.T) {
	app := setupApp(makeDeps())

	status, _ := postJSON(t, app, "/v1/digipin/batch/decode", `{"pins":[]}`)
	if status != 400 {
		t.Errorf("expected 400 for empty batch, got %d", status)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"pins":[`)
	for i := 0; i <= usecases.MaxBatchItems; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`"` + delhi + `"`)
	}
	buf.WriteString(`]}`)

	status, _ = postJSON(t, app, "/v1/digipin/batch/decode", buf.String())
	if status != 400 {
		t.Errorf("expected 400 for oversized batch, got %d", status)
	}
}

func TestBatchDecode(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/digipin/batch/decode", fmt.Sprintf(`{"pins":[%q,"nope"]}`, delhi))
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var res domain.BatchDecodeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Summary.Succeeded != 1 || res.Summary.Failed != 1 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
	if res.Items[0].Result == nil || res.Items[0].Result.Pin != delhi {
		t.Errorf("unexpected first item %+v", res.Items[0])
	}
	if res.Items[1].Input != "nope" || res.Items[1].Error == "" {
		t.Errorf("unexpected second item %+v", res.Items[1])
	}
}

// ---- Agent ----

func TestAgentRespond_NotConfigured(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/v1/agent/respond", `{"message":"hi"}`)
	if status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
	if code := decodeAPIError(t, body).Code; code != "service_unavailable" {
		t.Errorf("expected service_unavailable, got %s", code)
	}
}

func TestAgentRespond_Success(t *testing.T) {
	model := &mockModel{text: "That pin is in New Delhi."}
	app := setupApp(makeDeps(withModel(model)))

	status, body := postJSON(t, app, "/v1/agent/respond", `{"message":"Where is 39J-49L-L8T4?"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var reply domain.AgentReply
	if err := json.Unmarshal(body, &reply); err != nil {
		t.Fatal(err)
	}
	if reply.Response != "That pin is in New Delhi." {
		t.Errorf("unexpected response %q", reply.Response)
	}
	if reply.TurnID == "" {
		t.Error("expected a turn id")
	}
	if model.calls != 1 {
		t.Errorf("expected 1 model call, got %d", model.calls)
	}
}

func TestAgentRespond_Errors(t *testing.T) {
	app := setupApp(makeDeps(withModel(&mockModel{err: errors.New("quota exceeded")})))

	status, body := postJSON(t, app, "/v1/agent/respond", `{"message":"hi"}`)
	if status != 502 {
		t.Fatalf("expected 502, got %d", status)
	}
	apiErr := decodeAPIError(t, body)
	if apiErr.Code != "bad_gateway" {
		t.Errorf("expected bad_gateway, got %s", apiErr.Code)
	}
	if strings.Contains(apiErr.Message, "quota") {
		t.Errorf("provider detail leaked: %q", apiErr.Message)
	}

	status, _ = postJSON(t, app, "/v1/agent/respond", `{"message":"   "}`)
	if status != 400 {
		t.Errorf("expected 400 for blank message, got %d", status)
	}
}

// ---- Health / legacy / misc ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(withModel(&mockModel{})))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["agent_ready"] != true {
		t.Errorf("unexpected health body %v", body)
	}
	if resp.Header.Get("Deprecation") != "" {
		t.Error("versioned health must not be deprecated")
	}
}

func TestReady_NothingConfigured(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Checks["cache"] != "not configured" || body.Checks["nats"] != "not configured" {
		t.Errorf("unexpected checks %v", body.Checks)
	}
}

func TestLegacyRoutes(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header on /health")
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, "/v1/health") {
		t.Errorf("expected successor link, got %q", link)
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header")
	}

	req := httptest.NewRequest("POST", "/api/digipin/distance",
		strings.NewReader(fmt.Sprintf(`{"start_pin":%q,"end_pin":%q}`, delhi, mumbai)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if _, ok := body["distance_meters"].(float64); !ok {
		t.Errorf("expected distance_meters in legacy reply, got %v", body)
	}
}

func TestGraphQL(t *testing.T) {
	app := setupApp(makeDeps())

	q := `{"query":"{ encode(latitude: 28.622788, longitude: 77.213033) { pin } decode(pin: \"4FK5958823\") { pin bounds { south_west { lat } } } }"}`
	status, body := postJSON(t, app, "/graphql", q)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var res struct {
		Data struct {
			Encode struct {
				Pin string `json:"pin"`
			} `json:"encode"`
			Decode struct {
				Pin    string `json:"pin"`
				Bounds struct {
					SouthWest struct {
						Lat float64 `json:"lat"`
					} `json:"south_west"`
				} `json:"bounds"`
			} `json:"decode"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
	if res.Data.Encode.Pin != delhi || res.Data.Decode.Pin != mumbai {
		t.Errorf("unexpected data %+v", res.Data)
	}
	if res.Data.Decode.Bounds.SouthWest.Lat == 0 {
		t.Error("expected nested bounds to resolve")
	}
}

func TestGraphQL_InvalidPinReportsError(t *testing.T) {
	app := setupApp(makeDeps())

	status, body := postJSON(t, app, "/graphql", `{"query":"{ decode(pin: \"XYZ\") { pin } }"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), "DIGIPIN must have 10 characters") {
		t.Errorf("expected validation message in errors, got %s", body)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/nope", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if code := decodeAPIError(t, readBody(t, resp.Body)).Code; code != "not_found" {
		t.Errorf("expected not_found, got %s", code)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws/agent", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff")
	}
	if resp.Header.Get("X-API-Version") != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", resp.Header.Get("X-API-Version"))
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("expected X-Request-ID")
	}
}
