package gemini_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/digipin/internal/adapters/gemini"
	"github.com/samirrijal/digipin/internal/core/domain"
	"github.com/samirrijal/digipin/internal/core/usecases"
)

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "models/gemini-1.5-flash", gemini.NormalizeModel(""))
	assert.Equal(t, "models/gemini-1.5-pro", gemini.NormalizeModel("gemini-1.5-pro"))
	assert.Equal(t, "models/gemini-2.0-flash", gemini.NormalizeModel("models/gemini-2.0-flash"))
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := gemini.New(gemini.Config{APIKey: "  "})
	assert.ErrorIs(t, err, gemini.ErrNoAPIKey)
}

func TestGenerate_RequestShape(t *testing.T) {
	var captured map[string]any
	mock := &mockHTTPClient{doFunc: func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "https://example.test/v1beta/models/gemini-1.5-flash:generateContent", req.URL.String())
		assert.Equal(t, "secret", req.Header.Get("x-goog-api-key"))
		assert.Empty(t, req.URL.Query().Get("key"))

		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"hello"}]},"finishReason":"STOP"}]}`), nil
	}}

	client, err := gemini.New(gemini.Config{APIKey: "secret", BaseURL: "https://example.test/v1beta/", HTTPClient: mock})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), &domain.ModelRequest{
		SystemInstruction: "be brief",
		Contents: []domain.ChatContent{
			{Role: domain.RoleUser, Parts: []domain.ChatPart{{Text: "hi"}}},
			{Role: domain.RoleUser, Parts: []domain.ChatPart{{FunctionResponse: &domain.FunctionResponse{
				Name:     "encode_coordinates",
				Response: map[string]any{"result": map[string]any{"pin": "39J-49L-L8T4"}},
			}}}},
		},
		Tools:      usecases.ToolDeclarations(),
		Generation: domain.GenerationConfig{Temperature: 0.5, TopP: 0.8, TopK: 40, MaxOutputTokens: 4096},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text())
	assert.Equal(t, "STOP", resp.FinishReason)

	sys := captured["systemInstruction"].(map[string]any)
	assert.Equal(t, "be brief", sys["parts"].([]any)[0].(map[string]any)["text"])

	contents := captured["contents"].([]any)
	require.Len(t, contents, 2)
	fr := contents[1].(map[string]any)["parts"].([]any)[0].(map[string]any)["functionResponse"].(map[string]any)
	assert.Equal(t, "encode_coordinates", fr["name"])

	tools := captured["tools"].([]any)
	decls := tools[0].(map[string]any)["functionDeclarations"].([]any)
	assert.Len(t, decls, 5)
	nearest := decls[4].(map[string]any)
	assert.Equal(t, "nearest_digipin", nearest["name"])
	props := nearest["parameters"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "ARRAY", props["candidates"].(map[string]any)["type"])
	assert.Equal(t, "STRING", props["candidates"].(map[string]any)["items"].(map[string]any)["type"])

	gen := captured["generationConfig"].(map[string]any)
	assert.InDelta(t, 0.5, gen["temperature"], 1e-9)
	assert.InDelta(t, 40, gen["topK"], 1e-9)
	assert.InDelta(t, 4096, gen["maxOutputTokens"], 1e-9)
	assert.Len(t, captured["safetySettings"], 4)
}

func TestGenerate_FunctionCall(t *testing.T) {
	mock := &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[
			{"functionCall":{"name":"decode_digipin","args":{"pin":"39J-49L-L8T4"}}},
			{"functionCall":{"name":"validate_digipin"}}
		]}}]}`), nil
	}}
	client, err := gemini.New(gemini.Config{APIKey: "k", HTTPClient: mock})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), &domain.ModelRequest{})
	require.NoError(t, err)

	calls := resp.FunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "decode_digipin", calls[0].Name)
	assert.Equal(t, "39J-49L-L8T4", calls[0].Args["pin"])
	assert.NotNil(t, calls[1].Args)
	assert.Empty(t, resp.Text())
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("api error envelope", func(t *testing.T) {
		mock := &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusTooManyRequests,
				`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`), nil
		}}
		client, _ := gemini.New(gemini.Config{APIKey: "k", HTTPClient: mock})

		_, err := client.Generate(context.Background(), &domain.ModelRequest{})
		var apiErr *gemini.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Equal(t, "RESOURCE_EXHAUSTED", apiErr.Status)
		assert.Equal(t, "Resource has been exhausted", apiErr.Message)
	})

	t.Run("plain error body", func(t *testing.T) {
		mock := &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, "upstream down"), nil
		}}
		client, _ := gemini.New(gemini.Config{APIKey: "k", HTTPClient: mock})

		_, err := client.Generate(context.Background(), &domain.ModelRequest{})
		assert.EqualError(t, err, "gemini: 502: upstream down")
	})

	t.Run("transport error", func(t *testing.T) {
		mock := &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: refused")
		}}
		client, _ := gemini.New(gemini.Config{APIKey: "k", HTTPClient: mock})

		_, err := client.Generate(context.Background(), &domain.ModelRequest{})
		assert.ErrorContains(t, err, "dial tcp: refused")
	})

	t.Run("blocked prompt", func(t *testing.T) {
		mock := &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`), nil
		}}
		client, _ := gemini.New(gemini.Config{APIKey: "k", HTTPClient: mock})

		_, err := client.Generate(context.Background(), &domain.ModelRequest{})
		assert.ErrorContains(t, err, "SAFETY")
	})

	t.Run("no candidates", func(t *testing.T) {
		mock := &mockHTTPClient{doFunc: func(_ *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{}`), nil
		}}
		client, _ := gemini.New(gemini.Config{APIKey: "k", HTTPClient: mock})

		resp, err := client.Generate(context.Background(), &domain.ModelRequest{})
		require.NoError(t, err)
		assert.Empty(t, resp.Text())
		assert.Empty(t, resp.FunctionCalls())
	})
}

func TestGenerate_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-pro:generateContent", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"pong"}]}}]}`))
	}))
	defer srv.Close()

	client, err := gemini.New(gemini.Config{APIKey: "k", Model: "gemini-1.5-pro", BaseURL: srv.URL + "/v1beta"})
	require.NoError(t, err)
	assert.Equal(t, "models/gemini-1.5-pro", client.Model())

	resp, err := client.Generate(context.Background(), &domain.ModelRequest{
		Contents: []domain.ChatContent{{Role: domain.RoleUser, Parts: []domain.ChatPart{{Text: "ping"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Text())
	assert.Equal(t, domain.RoleModel, resp.Content.Role)
}
