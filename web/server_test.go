package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"mediascribe/gemini"
	"mediascribe/session"
)

func testResult() *gemini.TranscriptResult {
	return &gemini.TranscriptResult{
		RawTranscript:   "[00:01] Speaker 1: hello",
		PolishedVersion: "Hello.",
		Summary:         "A short summary.",
		KeyPoints:       []string{"greeting"},
	}
}

func succeed(ctx context.Context, payload, mimeType string) (*gemini.TranscriptResult, error) {
	return testResult(), nil
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Connect == nil {
		opts.Connect = func() (gemini.Transcriber, error) { return gemini.TranscriberFunc(succeed), nil }
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = rate.Inf
	}
	srv := NewServer(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})
	return srv, ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func upload(t *testing.T, client *http.Client, base, name, contentType string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := client.Post(base+"/api/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func post(t *testing.T, client *http.Client, target string) *http.Response {
	t.Helper()
	resp, err := client.Post(target, "application/json", nil)
	require.NoError(t, err)
	return resp
}

func decodeState(t *testing.T, resp *http.Response) StateResponse {
	t.Helper()
	defer resp.Body.Close()
	var state StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func getState(t *testing.T, client *http.Client, base string) StateResponse {
	t.Helper()
	resp, err := client.Get(base + "/api/state")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeState(t, resp)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Options{Version: "1.2.3"})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestHomeServesPage(t *testing.T) {
	srv, ts := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(page), "mediascribe")
	assert.Empty(t, resp.Cookies())
	assert.Equal(t, 0, srv.SessionCount())

	resp, err = http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadSetsSessionCookie(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	client := newClient(t)

	resp := upload(t, client, ts.URL, "talk.mp3", "audio/mpeg", []byte("abc"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			found = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, found, "session cookie not set")
}

func TestReadOnlyRequestsDoNotCreateSessions(t *testing.T) {
	srv, ts := newTestServer(t, Options{})

	for i := 0; i < 50; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		require.NoError(t, err)
		state := decodeState(t, resp)
		assert.Equal(t, session.StatusIdle, state.State.Status)
		assert.Nil(t, state.File)
	}

	resp := post(t, http.DefaultClient, ts.URL+"/api/reset")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, http.DefaultClient, ts.URL+"/api/transcribe")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/api/download?field=summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/fetch", "application/json", strings.NewReader(`{"url": "ftp://example.com/a.mp3"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, 0, srv.SessionCount())
}

func TestIdleSessionsExpire(t *testing.T) {
	srv, ts := newTestServer(t, Options{SessionTTL: time.Minute})
	client := newClient(t)

	resp := upload(t, client, ts.URL, "talk.mp3", "audio/mpeg", []byte("abc"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, srv.SessionCount())

	assert.Equal(t, 0, srv.expireIdle(time.Now()))
	assert.Equal(t, 1, srv.expireIdle(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, srv.SessionCount())

	// the old cookie no longer finds anything
	state := getState(t, client, ts.URL)
	assert.Nil(t, state.File)
	assert.Equal(t, 0, srv.SessionCount())
}

func TestUploadTranscribeDownload(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	client := newClient(t)

	resp := upload(t, client, ts.URL, "talk.mp3", "audio/mpeg", []byte("ID3 fake audio"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeState(t, resp)
	require.NotNil(t, state.File)
	assert.Equal(t, "talk.mp3", state.File.Name)
	assert.Equal(t, "MPEG", state.File.Subtype)
	assert.Equal(t, int64(14), state.File.Size)
	assert.Equal(t, session.StatusIdle, state.State.Status)

	resp = post(t, client, ts.URL+"/api/transcribe")
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return getState(t, client, ts.URL).State.Status == session.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	state = getState(t, client, ts.URL)
	require.NotNil(t, state.Result)
	assert.Equal(t, []string{"greeting"}, state.Result.KeyPoints)

	resp, err := client.Get(ts.URL + "/api/download?field=summary")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A short summary.", string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	resp, err = client.Get(ts.URL + "/api/download?field=key_points")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "- greeting", string(body))

	state = decodeState(t, post(t, client, ts.URL+"/api/reset"))
	assert.Equal(t, session.StatusIdle, state.State.Status)
	assert.Nil(t, state.File)
	assert.Nil(t, state.Result)
}

func TestTranscriptionFailureIsClassified(t *testing.T) {
	_, ts := newTestServer(t, Options{
		Connect: func() (gemini.Transcriber, error) { return nil, gemini.ErrMissingAPIKey },
	})
	client := newClient(t)

	resp := upload(t, client, ts.URL, "clip.mp4", "video/mp4", []byte("fake video"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, client, ts.URL+"/api/transcribe")
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return getState(t, client, ts.URL).State.Status == session.StatusError
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, session.MsgMissingAPIKey, getState(t, client, ts.URL).State.Message)
}

func TestUploadRejectsUnsupported(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	client := newClient(t)

	resp := upload(t, client, ts.URL, "notes.txt", "text/plain", []byte("hello"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "not an audio or video file")
	require.NotNil(t, body.State)
	assert.Equal(t, session.StatusIdle, body.State.State.Status)
}

func TestUploadRequiresFileField(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, err := http.Post(ts.URL+"/api/upload", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranscribeWithoutFile(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp := post(t, newClient(t), ts.URL+"/api/transcribe")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDownloadErrors(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	client := newClient(t)

	resp, err := client.Get(ts.URL + "/api/download?field=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/api/download?field=summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFetchValidation(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	client := newClient(t)

	resp, err := client.Post(ts.URL+"/api/fetch", "application/json", strings.NewReader(`{"url": "ftp://example.com/a.mp3"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = client.Post(ts.URL+"/api/fetch", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFetchStagesRemoteFile(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Disposition", `attachment; filename="interview.wav"`)
		w.Write([]byte("RIFF fake wav"))
	}))
	defer remote.Close()

	_, ts := newTestServer(t, Options{HTTPClient: remote.Client()})
	client := newClient(t)

	payload, _ := json.Marshal(map[string]string{"url": remote.URL + "/download"})
	resp, err := client.Post(ts.URL+"/api/fetch", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return getState(t, client, ts.URL).File != nil
	}, 5*time.Second, 20*time.Millisecond)

	state := getState(t, client, ts.URL)
	assert.Equal(t, "interview.wav", state.File.Name)
	assert.Equal(t, "audio/wav", state.File.MIMEType)
	assert.Equal(t, session.StatusIdle, state.State.Status)
}

func TestFetchFailureCarriesGuidance(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer remote.Close()

	_, ts := newTestServer(t, Options{HTTPClient: remote.Client()})
	client := newClient(t)

	payload, _ := json.Marshal(map[string]string{"url": remote.URL})
	resp, err := client.Post(ts.URL+"/api/fetch", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return getState(t, client, ts.URL).State.Status == session.StatusError
	}, 5*time.Second, 20*time.Millisecond)
	state := getState(t, client, ts.URL)
	assert.NotEmpty(t, state.State.Message)
	assert.NotEmpty(t, state.State.Guidance)
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, Options{RateLimit: rate.Every(time.Hour), RateBurst: 1})
	client := newClient(t)

	resp := post(t, client, ts.URL+"/api/transcribe")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, client, ts.URL+"/api/transcribe")
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestSessionsAreIndependent(t *testing.T) {
	srv, ts := newTestServer(t, Options{})
	alice, bob := newClient(t), newClient(t)

	resp := upload(t, alice, ts.URL, "talk.mp3", "audio/mpeg", []byte("abc"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NotNil(t, getState(t, alice, ts.URL).File)
	assert.Nil(t, getState(t, bob, ts.URL).File)
	assert.Equal(t, 1, srv.SessionCount())

	resp = upload(t, bob, ts.URL, "memo.wav", "audio/wav", []byte("RIFF"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, srv.SessionCount())

	resp = post(t, bob, ts.URL+"/api/reset")
	resp.Body.Close()
	assert.Nil(t, getState(t, bob, ts.URL).File)
	require.NotNil(t, getState(t, alice, ts.URL).File)
	assert.Equal(t, "talk.mp3", getState(t, alice, ts.URL).File.Name)
}

func TestWebSocketPushesState(t *testing.T) {
	srv, ts := newTestServer(t, Options{SessionTTL: time.Minute})
	client := newClient(t)

	resp := upload(t, client, ts.URL, "talk.mp3", "audio/mpeg", []byte("abc"))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	base, err := url.Parse(ts.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range client.Jar.Cookies(base) {
		header.Add("Cookie", c.String())
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	var first StateResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	require.NotNil(t, first.File)
	assert.Equal(t, "talk.mp3", first.File.Name)

	// an open websocket keeps the session alive
	assert.Equal(t, 0, srv.expireIdle(time.Now().Add(time.Hour)))

	resp = post(t, client, ts.URL+"/api/reset")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		var next StateResponse
		require.NoError(t, conn.ReadJSON(&next))
		if next.File == nil {
			assert.Equal(t, session.StatusIdle, next.State.Status)
			return
		}
	}
}

func TestWebSocketWithoutSession(t *testing.T) {
	srv, ts := newTestServer(t, Options{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first StateResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, session.StatusIdle, first.State.Status)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, CloseNoSession), "got %v", err)
	assert.Equal(t, 0, srv.SessionCount())
}
