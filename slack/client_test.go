package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	Method string
	Form   url.Values
	JSON   map[string]interface{}
}

// fakeAPI records calls made through the Slack Web API client.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeAPI) recorded() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := apiCall{Method: strings.TrimPrefix(r.URL.Path, "/")}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &call.JSON)
		} else {
			_ = r.ParseForm()
			call.Form = r.PostForm
		}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch call.Method {
		case "chat.postMessage":
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1700000000.000100"}`))
		case "chat.postEphemeral":
			_, _ = w.Write([]byte(`{"ok":true,"message_ts":"1700000000.000200"}`))
		case "views.open":
			_, _ = w.Write([]byte(`{"ok":true,"view":{"id":"V1"}}`))
		case "auth.test":
			_, _ = w.Write([]byte(`{"ok":true,"url":"https://acme.slack.com/","team":"Acme","user_id":"UBOT"}`))
		default:
			_, _ = w.Write([]byte(`{"ok":false,"error":"unknown_method"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return f, NewClient("xoxb-test", slacklib.OptionAPIURL(srv.URL+"/"))
}

func TestSendMessageEphemeral(t *testing.T) {
	api, c := newFakeAPI(t)

	require.NoError(t, c.SendMessage(context.Background(), "C1", "only you", "U1", true))

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "chat.postEphemeral", calls[0].Method)
	assert.Equal(t, "C1", calls[0].Form.Get("channel"))
	assert.Equal(t, "U1", calls[0].Form.Get("user"))
	assert.Equal(t, "only you", calls[0].Form.Get("text"))
}

func TestSendMessageChannel(t *testing.T) {
	api, c := newFakeAPI(t)

	require.NoError(t, c.SendMessage(context.Background(), "C1", "everyone", "U1", false))

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "chat.postMessage", calls[0].Method)
	assert.Equal(t, "C1", calls[0].Form.Get("channel"))
	assert.Empty(t, calls[0].Form.Get("user"))
	assert.Equal(t, "everyone", calls[0].Form.Get("text"))
}

func TestOpenModal(t *testing.T) {
	api, c := newFakeAPI(t)

	modal := Modal{
		Title:      "Jenkins Log",
		CallbackID: "jenkins_log",
		Elements: []Element{
			TextInput{BlockID: "build_number", ActionID: "build_number", Label: "Build Number"},
		},
	}
	require.NoError(t, c.OpenModal(context.Background(), "trigger-1", modal))

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "views.open", calls[0].Method)
	assert.Equal(t, "trigger-1", calls[0].JSON["trigger_id"])
	view, ok := calls[0].JSON["view"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "jenkins_log", view["callback_id"])
}

func TestOpenModalRejectsInvalid(t *testing.T) {
	api, c := newFakeAPI(t)

	err := c.OpenModal(context.Background(), "trigger-1", Modal{Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCallbackID)
	assert.Empty(t, api.recorded())
}

func TestIdentity(t *testing.T) {
	_, c := newFakeAPI(t)

	id, err := c.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Identity{TeamURL: "https://acme.slack.com/", Team: "Acme", BotUserID: "UBOT"}, id)
}
