package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jhkim-dev/speakpath/internal/telemetry/metrics"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	// redismock.NewClientMock creates an internal factory redis.Client that it
	// never closes, leaking its connection pool reaper goroutine; ignore it
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper"),
	)
}

const voicesTestResponse = `[
	{"voice_id": "tc_rachel", "voice_name": "Rachel", "model": "ssfm-v21", "emotions": ["normal", "happy"]},
	{"voice_id": "tc_grandpa", "voice_name": "Grandpa Joe", "model": "ssfm-v21", "emotions": ["normal"]},
	{"voice_id": "tc_david", "voice_name": "David", "model": "ssfm-v30", "emotions": ["normal"]},
	{"voice_id": "tc_kiddo", "voice_name": "Timmy Kid", "model": "ssfm-v21", "emotions": ["normal"]}
]`

func newVoicesTestServer(t *testing.T, apiCallsCount *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*apiCallsCount++
		require.Equal(t, "test-api-key", r.Header.Get("X-API-KEY"))
		if r.Method == http.MethodGet && r.URL.Path == "/voices" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(voicesTestResponse))
			return
		}
		http.Error(w, "unexpected path/method", http.StatusBadRequest)
	}))
}

func TestClient_GetVoices(t *testing.T) {
	apiCallsCount := 0
	testServer := newVoicesTestServer(t, &apiCallsCount)
	defer testServer.Close()

	db, mock := redismock.NewClientMock()
	defer db.Close()
	mock.ExpectGet(voicesCacheKey).SetErr(redis.Nil)
	mock.Regexp().ExpectSet(voicesCacheKey, `.*`, voicesCacheTTL).SetVal("OK")

	client := NewClient(testServer.URL, "test-api-key", testServer.Client(), db, nil)

	voices, err := client.GetVoices(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, voices, 2)

	// adult professional names only, alphabetical
	assert.Equal(t, "David", voices[0].Name)
	assert.Equal(t, "tc_david", voices[0].VoiceID)
	assert.Equal(t, "Rachel", voices[1].Name)
	assert.Equal(t, []string{"normal", "happy"}, voices[1].Emotions)

	assert.Equal(t, 1, apiCallsCount)
}

func TestClient_GetVoices_CacheHit(t *testing.T) {
	apiCallsCount := 0
	testServer := newVoicesTestServer(t, &apiCallsCount)
	defer testServer.Close()

	cached := []Voice{{VoiceID: "tc_cached", Name: "Anna", Model: "ssfm-v21"}}
	cachedJson, err := json.Marshal(cached)
	require.NoError(t, err)

	db, mock := redismock.NewClientMock()
	defer db.Close()
	mock.ExpectGet(voicesCacheKey).SetVal(string(cachedJson))

	client := NewClient(testServer.URL, "test-api-key", testServer.Client(), db, nil)

	voices, err := client.GetVoices(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "Anna", voices[0].Name)
	assert.Equal(t, 0, apiCallsCount)
}

func TestClient_GetVoices_ForceRefreshSkipsCache(t *testing.T) {
	apiCallsCount := 0
	testServer := newVoicesTestServer(t, &apiCallsCount)
	defer testServer.Close()

	db, mock := redismock.NewClientMock()
	defer db.Close()
	mock.Regexp().ExpectSet(voicesCacheKey, `.*`, voicesCacheTTL).SetVal("OK")

	client := NewClient(testServer.URL, "test-api-key", testServer.Client(), db, nil)

	voices, err := client.GetVoices(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, voices, 2)
	assert.Equal(t, 1, apiCallsCount)
}

func TestClient_GetVoices_NoAPIKey(t *testing.T) {
	client := NewClient("not-needed", "", nil, nil, nil)
	_, err := client.GetVoices(context.Background(), false)
	require.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "ssfm-v21", normalizeModel("ssfm-v21"))
	assert.Equal(t, "ssfm-v30", normalizeModel("ssfm-v30"))
	assert.Equal(t, "ssfm-v30", normalizeModel("SSFM-V30"))
	assert.Equal(t, "ssfm-v21", normalizeModel("gpt-4"))
	assert.Equal(t, "ssfm-v21", normalizeModel(""))
}

// newSynthesisTestServer fakes the text-to-speech endpoint, recording every
// request payload and returning a short silent WAV per chunk.
func newSynthesisTestServer(t *testing.T, requests *[]ttsRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-api-key", r.Header.Get("X-API-KEY"))
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/text-to-speech", r.URL.Path)

		var req ttsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(encodeWAV(testWavFormat, make([]byte, 2000)))
	}))
}

func TestClient_Synthesize_SingleChunk(t *testing.T) {
	var requests []ttsRequest
	testServer := newSynthesisTestServer(t, &requests)
	defer testServer.Close()

	client := NewClient(testServer.URL, "test-api-key", testServer.Client(), nil, metrics.NewTestManager())

	audio, timestamps, err := client.Synthesize(context.Background(), SynthesizeParams{
		Text: "A short single sentence.",
	})
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, DefaultVoiceID, requests[0].VoiceID)
	assert.Equal(t, "ssfm-v21", requests[0].Model)
	assert.Equal(t, "eng", requests[0].Language)
	assert.Equal(t, "normal", requests[0].Prompt.EmotionPreset)
	assert.Equal(t, 1, requests[0].Prompt.EmotionIntensity)
	assert.Equal(t, 100, requests[0].Output.Volume)
	assert.Equal(t, 1.0, requests[0].Output.AudioTempo)
	assert.Equal(t, "wav", requests[0].Output.AudioFormat)

	// single chunk comes back as-is
	_, frames, err := parseWAV(audio)
	require.NoError(t, err)
	assert.Len(t, frames, 2000)

	require.Len(t, timestamps, 1)
	assert.Equal(t, 0.0, timestamps[0].StartTime)
}

func TestClient_Synthesize_ParagraphsStitchedWithPauses(t *testing.T) {
	var requests []ttsRequest
	testServer := newSynthesisTestServer(t, &requests)
	defer testServer.Close()

	client := NewClient(testServer.URL, "test-api-key", testServer.Client(), nil, nil)

	// 5 words in the first paragraph: 5/125 min = 2.4s, plus the 0.5s pause
	text := "one two three four five\n\nsecond paragraph goes here"
	audio, timestamps, err := client.Synthesize(context.Background(), SynthesizeParams{
		Text:    text,
		VoiceID: "tc_custom",
		Model:   "invalid-model",
	})
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.Equal(t, "tc_custom", requests[0].VoiceID)
	assert.Equal(t, "ssfm-v21", requests[0].Model)
	assert.Equal(t, "one two three four five", requests[0].Text)
	assert.Equal(t, "second paragraph goes here", requests[1].Text)

	_, frames, err := parseWAV(audio)
	require.NoError(t, err)
	// two 2000 byte parts with 0.5s (8000 bytes) of silence between
	assert.Len(t, frames, 12000)

	require.Len(t, timestamps, 2)
	assert.Equal(t, 0.0, timestamps[0].StartTime)
	assert.InDelta(t, 2.9, timestamps[1].StartTime, 0.001)
}

func TestClient_Synthesize_TempoAdjustsTimestamps(t *testing.T) {
	var requests []ttsRequest
	testServer := newSynthesisTestServer(t, &requests)
	defer testServer.Close()

	client := NewClient(testServer.URL, "test-api-key", testServer.Client(), nil, nil)

	_, timestamps, err := client.Synthesize(context.Background(), SynthesizeParams{
		Text:  "one two three four five\n\nsecond part",
		Tempo: 2.0,
	})
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.Equal(t, 2.0, requests[0].Output.AudioTempo)

	// 2.4s of speech at double speed is 1.2s, plus the 0.5s pause
	require.Len(t, timestamps, 2)
	assert.InDelta(t, 1.7, timestamps[1].StartTime, 0.001)
}

func TestClient_Synthesize_UpstreamError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer testServer.Close()

	client := NewClient(testServer.URL, "test-api-key", testServer.Client(), nil, nil)

	_, _, err := client.Synthesize(context.Background(), SynthesizeParams{Text: "some text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_Synthesize_EmptyText(t *testing.T) {
	client := NewClient("not-needed", "test-api-key", nil, nil, nil)
	_, _, err := client.Synthesize(context.Background(), SynthesizeParams{Text: "   "})
	require.Error(t, err)
}
