package gemini

import "github.com/samirrijal/digipin/internal/core/domain"

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	Tools             []tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []safetySetting   `json:"safetySettings,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *schema `json:"parameters,omitempty"`
}

type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Every harm category is left unfiltered.
var safetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

func toWire(req *domain.ModelRequest) generateRequest {
	out := generateRequest{
		Contents:       make([]content, 0, len(req.Contents)),
		SafetySettings: safetySettings,
	}
	if req.SystemInstruction != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	for _, c := range req.Contents {
		out.Contents = append(out.Contents, contentToWire(c))
	}
	if len(req.Tools) > 0 {
		decls := make([]functionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, functionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaToWire(t.Parameters),
			})
		}
		out.Tools = []tool{{FunctionDeclarations: decls}}
	}
	g := req.Generation
	if g != (domain.GenerationConfig{}) {
		out.GenerationConfig = &generationConfig{
			Temperature:     g.Temperature,
			TopP:            g.TopP,
			TopK:            g.TopK,
			MaxOutputTokens: g.MaxOutputTokens,
		}
	}
	return out
}

func contentToWire(c domain.ChatContent) content {
	out := content{Role: c.Role, Parts: make([]part, 0, len(c.Parts))}
	for _, p := range c.Parts {
		wp := part{Text: p.Text}
		if p.FunctionCall != nil {
			wp.FunctionCall = &functionCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args}
		}
		if p.FunctionResponse != nil {
			wp.FunctionResponse = &functionResponse{Name: p.FunctionResponse.Name, Response: p.FunctionResponse.Response}
		}
		out.Parts = append(out.Parts, wp)
	}
	return out
}

func schemaToWire(s *domain.Schema) *schema {
	if s == nil {
		return nil
	}
	out := &schema{
		Type:        s.Type,
		Description: s.Description,
		Items:       schemaToWire(s.Items),
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = schemaToWire(v)
		}
	}
	return out
}

func fromWire(c candidate) *domain.ModelResponse {
	role := c.Content.Role
	if role == "" {
		role = domain.RoleModel
	}
	out := &domain.ModelResponse{
		Content:      domain.ChatContent{Role: role},
		FinishReason: c.FinishReason,
	}
	for _, p := range c.Content.Parts {
		dp := domain.ChatPart{Text: p.Text}
		if p.FunctionCall != nil {
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			dp.FunctionCall = &domain.FunctionCall{Name: p.FunctionCall.Name, Args: args}
		}
		if p.FunctionResponse != nil {
			dp.FunctionResponse = &domain.FunctionResponse{Name: p.FunctionResponse.Name, Response: p.FunctionResponse.Response}
		}
		out.Content.Parts = append(out.Content.Parts, dp)
	}
	return out
}
