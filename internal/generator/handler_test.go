package generator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, chat *fakeChat) *mux.Router {
	t.Helper()
	handler := NewHandler(newTestService(t, chat))
	router := mux.NewRouter()
	router.HandleFunc("/api/generate/{activityId}", handler.HandleGenerate).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/generate-all", handler.HandleGenerateAll).Methods("POST", "OPTIONS")
	return router
}

func TestHandler_Generate(t *testing.T) {
	topics := sevenTopics()
	chat := &fakeChat{responses: []string{topicsJSON(topics...)}}
	router := newTestRouter(t, chat)

	body := `{"week_key": "2025-W10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate/voice_journaling", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp generateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "2025-W10", resp.WeekKey)
	assert.Equal(t, "voice_journaling", resp.Activity)
	require.NotNil(t, resp.Progress)
	assert.Equal(t, topics, resp.Progress.VoiceJournaling.Topics)
}

func TestHandler_Generate_BadRequests(t *testing.T) {
	router := newTestRouter(t, &fakeChat{responses: []string{""}})

	// unknown activity
	req := httptest.NewRequest(http.MethodPost, "/api/generate/interpretive_dance", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// activity whose content is not generated
	req = httptest.NewRequest(http.MethodPost, "/api/generate/weekly_expressions", strings.NewReader(`{}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// invalid week key
	req = httptest.NewRequest(http.MethodPost, "/api/generate/voice_journaling", strings.NewReader(`{"week_key": "2025-W99"}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// garbage payload
	req = httptest.NewRequest(http.MethodPost, "/api/generate/voice_journaling", strings.NewReader("not json"))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Generate_Options(t *testing.T) {
	router := newTestRouter(t, &fakeChat{responses: []string{""}})

	req := httptest.NewRequest(http.MethodOptions, "/api/generate/voice_journaling", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "POST, OPTIONS", rr.Header().Get("Allow"))
}

func TestHandler_GenerateAll(t *testing.T) {
	wordsJson, err := json.Marshal(wordsPayload{Words: fallbackPromptWords()})
	require.NoError(t, err)
	chat := &fakeChat{responses: []string{
		topicsJSON(sevenTopics()...),
		gofakeit.Sentence(900),
		"Weekly prompt text.",
		string(wordsJson),
	}}
	router := newTestRouter(t, chat)

	body := `{"week_key": "2025-W10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate-all", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp generateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Progress)
	assert.Equal(t, "Weekly prompt text.", resp.Progress.WeeklySpeakingPrompt.Prompt)
	assert.NotEmpty(t, resp.Progress.ShadowingPractice.Script)
	assert.Len(t, resp.Progress.VoiceJournaling.Topics, 7)
}
