package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// mealMacrosRequest is the request body for POST /api/ai/meal-macros.
type mealMacrosRequest struct {
	Text string `json:"text"`
}

// mealMacros is the cleaned estimate. Macros are whole numbers, never
// negative; Confidence is in [0, 1].
type mealMacros struct {
	Kcal       int     `json:"kcal"`
	Protein    int     `json:"p"`
	Fat        int     `json:"f"`
	Carbs      int     `json:"c"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
}

// mealMacrosToolArgs is what the model passes to set_meal_macros. Fields are
// pointers because the model may leave any of them out.
type mealMacrosToolArgs struct {
	Kcal       *float64 `json:"kcal"`
	ProteinG   *float64 `json:"protein_g"`
	FatG       *float64 `json:"fat_g"`
	CarbsG     *float64 `json:"carbs_g"`
	Confidence *float64 `json:"confidence"`
	Notes      any      `json:"notes"`
}

func (a mealMacrosToolArgs) clean() mealMacros {
	notes, _ := a.Notes.(string)
	return mealMacros{
		Kcal:       nonNegativeRounded(a.Kcal),
		Protein:    nonNegativeRounded(a.ProteinG),
		Fat:        nonNegativeRounded(a.FatG),
		Carbs:      nonNegativeRounded(a.CarbsG),
		Confidence: math.Min(1, math.Max(0, finiteOrZero(a.Confidence))),
		Notes:      notes,
	}
}

func nonNegativeRounded(v *float64) int {
	return int(math.Max(0, math.Floor(finiteOrZero(v)+0.5)))
}

func finiteOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

/* ─── OpenAI prompt constants ────────────────────────────────────────── */

const mealMacrosToolName = "set_meal_macros"

const mealMacrosSystemPrompt = `You are a nutrition assistant. Estimate calories and macros from food text. Output only via the provided tool. If the user gives no portion sizes, assume a typical serving. Do not give medical advice.`

// mealMacrosTool is the function schema the model must call.
var mealMacrosTool = openAITool{
	Type: "function",
	Function: openAIFunction{
		Name:        mealMacrosToolName,
		Description: "Estimate meal macros from a short food description. Return numeric kcal, protein_g, fat_g, carbs_g. Use best effort; if uncertain, make conservative estimates.",
		Parameters: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"kcal":       map[string]any{"type": "number"},
				"protein_g":  map[string]any{"type": "number"},
				"fat_g":      map[string]any{"type": "number"},
				"carbs_g":    map[string]any{"type": "number"},
				"confidence": map[string]any{"type": "number", "description": "0..1 confidence"},
				"notes":      map[string]any{"type": "string", "description": "Short reasoning for user/debug (1 sentence max)"},
			},
			"required": []string{"kcal", "protein_g", "fat_g", "carbs_g", "confidence"},
		},
	},
}

/* ─── OpenAI HTTP client ─────────────────────────────────────────────── */

// openAIMessage is a single message in the OpenAI chat completions request.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

// openAIRequest is the request body for the OpenAI chat completions API.
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	Tools       []openAITool    `json:"tools"`
	ToolChoice  map[string]any  `json:"tool_choice"`
}

// openAIClient holds the settings for one chat completions call.
type openAIClient struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

// errNoToolOutput means the model answered without calling the tool.
var errNoToolOutput = errors.New("no tool output from model")

// callOpenAITool sends a chat completions request that forces a call to
// tool and returns the raw JSON arguments of the first tool call.
// Uses raw net/http to avoid pulling in the OpenAI SDK.
func (o openAIClient) callOpenAITool(ctx context.Context, messages []openAIMessage, tool openAITool) (string, error) {
	reqBody := openAIRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: 0.2,
		Tools:       []openAITool{tool},
		ToolChoice: map[string]any{
			"type":     "function",
			"function": map[string]string{"name": tool.Function.Name},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	client := &http.Client{Timeout: o.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Surface the provider's own message when it sent one.
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", errors.New(apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai returned status %d", resp.StatusCode)
	}

	// Extract choices[0].message.tool_calls[0].function.arguments
	var result struct {
		Choices []struct {
			Message struct {
				ToolCalls []struct {
					Function struct {
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 || len(result.Choices[0].Message.ToolCalls) == 0 {
		return "", errNoToolOutput
	}
	args := result.Choices[0].Message.ToolCalls[0].Function.Arguments
	if args == "" {
		return "", errNoToolOutput
	}
	return args, nil
}

/* ─── Handler ────────────────────────────────────────────────────────── */

// estimateMealMacros handles POST /api/ai/meal-macros.
// Accepts a free-text meal description and returns estimated macros.
func (h *Handler) estimateMealMacros(c *gin.Context) {
	var req mealMacrosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	est, status, err := h.requestMealMacros(c, req.Text)
	if err != nil {
		apiError(c, status, err.Error())
		return
	}
	c.JSON(http.StatusOK, est)
}

// requestMealMacros runs one estimate. On failure it returns the HTTP status
// the caller should answer with and an error whose message is safe to show.
func (h *Handler) requestMealMacros(c *gin.Context, text string) (mealMacros, int, error) {
	if h.cfg.OpenAIAPIKey == "" {
		recordMacroEstimate("unconfigured")
		return mealMacros{}, http.StatusBadRequest, errors.New("missing OPENAI_API_KEY")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		recordMacroEstimate("invalid")
		return mealMacros{}, http.StatusBadRequest, errors.New("missing text")
	}

	client := openAIClient{
		apiKey:  h.cfg.OpenAIAPIKey,
		baseURL: h.openAIBaseURL,
		model:   h.cfg.OpenAIModel,
		timeout: h.cfg.OpenAITimeout,
	}
	messages := []openAIMessage{
		{Role: "system", Content: mealMacrosSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Food: %s\nReturn estimated macros.", text)},
	}

	argsRaw, err := client.callOpenAITool(c.Request.Context(), messages, mealMacrosTool)
	if errors.Is(err, errNoToolOutput) {
		recordMacroEstimate("no_tool_output")
		h.log.Error("[meal-macros] model returned no tool call")
		return mealMacros{}, http.StatusInternalServerError, errNoToolOutput
	}
	if err != nil {
		recordMacroEstimate("provider_error")
		h.log.Error("[meal-macros] OpenAI error", zap.Error(err))
		return mealMacros{}, http.StatusInternalServerError, err
	}

	var args mealMacrosToolArgs
	if err := json.Unmarshal([]byte(argsRaw), &args); err != nil {
		recordMacroEstimate("unparsable")
		h.log.Error("[meal-macros] failed to parse tool output", zap.Error(err))
		return mealMacros{}, http.StatusInternalServerError, errors.New("failed to parse tool output")
	}

	recordMacroEstimate("ok")
	return args.clean(), http.StatusOK, nil
}
