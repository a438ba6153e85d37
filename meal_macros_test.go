package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// setupMealMacrosTest creates a Gin engine with a mock OpenAI server and returns
// the router and a function to set the mock response. The last request body
// the mock received is written to *lastBody.
func setupMealMacrosTest(apiKey string) (*gin.Engine, *httptest.Server, func(int, interface{}), *openAIRequest) {
	var mockStatus int
	var mockBody interface{}
	lastBody := &openAIRequest{}

	mockOpenAI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(lastBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(mockStatus)
		json.NewEncoder(w).Encode(mockBody)
	}))

	gin.SetMode(gin.TestMode)
	h := &Handler{
		log:           zap.NewNop(),
		openAIBaseURL: mockOpenAI.URL,
		cfg: config{
			OpenAIAPIKey:  apiKey,
			OpenAIModel:   "test-model",
			OpenAITimeout: 5 * time.Second,
		},
	}
	router := gin.New()
	router.POST("/api/ai/meal-macros", h.estimateMealMacros)

	setMock := func(status int, body interface{}) {
		mockStatus = status
		mockBody = body
	}

	return router, mockOpenAI, setMock, lastBody
}

// doMealMacrosRequest sends a POST to the meal-macros endpoint with the given body.
func doMealMacrosRequest(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/ai/meal-macros", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// openAIToolCallResponse wraps tool arguments in the OpenAI chat completions
// response shape (choices[0].message.tool_calls[0].function.arguments).
func openAIToolCallResponse(arguments string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"tool_calls": []map[string]interface{}{
						{
							"type": "function",
							"function": map[string]interface{}{
								"name":      mealMacrosToolName,
								"arguments": arguments,
							},
						},
					},
				},
			},
		},
	}
}

func errorMessage(w *httptest.ResponseRecorder) string {
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp["error"]
}

func TestMealMacros_Success(t *testing.T) {
	router, mockServer, setMock, lastBody := setupMealMacrosTest("test-key")
	defer mockServer.Close()

	args := `{"kcal":612.4,"protein_g":41.5,"fat_g":-3,"carbs_g":70.49,"confidence":1.7,"notes":"Typical bowl."}`
	setMock(http.StatusOK, openAIToolCallResponse(args))

	w := doMealMacrosRequest(router, `{"text":"  chicken rice bowl  "}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp mealMacros
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	want := mealMacros{Kcal: 612, Protein: 42, Fat: 0, Carbs: 70, Confidence: 1, Notes: "Typical bowl."}
	if resp != want {
		t.Errorf("expected %+v, got %+v", want, resp)
	}

	if lastBody.Model != "test-model" {
		t.Errorf("expected model 'test-model', got '%s'", lastBody.Model)
	}
	if len(lastBody.Tools) != 1 || lastBody.Tools[0].Function.Name != mealMacrosToolName {
		t.Errorf("expected the %s tool to be offered, got %+v", mealMacrosToolName, lastBody.Tools)
	}
	if len(lastBody.Messages) != 2 || !strings.Contains(lastBody.Messages[1].Content, "Food: chicken rice bowl\n") {
		t.Errorf("expected trimmed food text in user message, got %+v", lastBody.Messages)
	}
}

func TestMealMacros_MissingFieldsDefaultToZero(t *testing.T) {
	router, mockServer, setMock, _ := setupMealMacrosTest("test-key")
	defer mockServer.Close()

	setMock(http.StatusOK, openAIToolCallResponse(`{"kcal":250,"notes":42}`))

	w := doMealMacrosRequest(router, `{"text":"apple"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp mealMacros
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Kcal != 250 || resp.Protein != 0 || resp.Confidence != 0 {
		t.Errorf("unexpected estimate %+v", resp)
	}
	if resp.Notes != "" {
		t.Errorf("expected non-string notes to be dropped, got '%s'", resp.Notes)
	}
}

func TestMealMacros_MissingAPIKey(t *testing.T) {
	router, mockServer, _, _ := setupMealMacrosTest("")
	defer mockServer.Close()

	w := doMealMacrosRequest(router, `{"text":"banana"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if got := errorMessage(w); got != "missing OPENAI_API_KEY" {
		t.Errorf("unexpected error '%s'", got)
	}
}

func TestMealMacros_EmptyText(t *testing.T) {
	router, mockServer, _, _ := setupMealMacrosTest("test-key")
	defer mockServer.Close()

	w := doMealMacrosRequest(router, `{"text":"   "}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if got := errorMessage(w); got != "missing text" {
		t.Errorf("unexpected error '%s'", got)
	}
}

func TestMealMacros_ProviderError(t *testing.T) {
	router, mockServer, setMock, _ := setupMealMacrosTest("test-key")
	defer mockServer.Close()

	setMock(http.StatusTooManyRequests, map[string]interface{}{
		"error": map[string]string{"message": "Rate limit reached"},
	})

	w := doMealMacrosRequest(router, `{"text":"banana"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if got := errorMessage(w); got != "Rate limit reached" {
		t.Errorf("expected provider message, got '%s'", got)
	}
}

func TestMealMacros_NoToolOutput(t *testing.T) {
	router, mockServer, setMock, _ := setupMealMacrosTest("test-key")
	defer mockServer.Close()

	setMock(http.StatusOK, map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": "About 300 kcal."}},
		},
	})

	w := doMealMacrosRequest(router, `{"text":"banana"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if got := errorMessage(w); got != "no tool output from model" {
		t.Errorf("unexpected error '%s'", got)
	}
}

func TestMealMacros_UnparsableToolOutput(t *testing.T) {
	router, mockServer, setMock, _ := setupMealMacrosTest("test-key")
	defer mockServer.Close()

	setMock(http.StatusOK, openAIToolCallResponse(`not valid json at all`))

	w := doMealMacrosRequest(router, `{"text":"banana"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if got := errorMessage(w); got != "failed to parse tool output" {
		t.Errorf("unexpected error '%s'", got)
	}
}
