package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/copyguard/internal/domain/sources"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(slack.OptionAPIURL(srv.URL + "/"))
}

func TestFetchRecentSkipsBotAndSystemMessages(t *testing.T) {
	var gotLimit string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/conversations.info":
			assert.Equal(t, "C123", r.Form.Get("channel"))
			fmt.Fprint(w, `{"ok":true,"channel":{"id":"C123","name":"marketing"}}`)
		case "/conversations.history":
			gotLimit = r.Form.Get("limit")
			fmt.Fprint(w, `{"ok":true,"messages":[
				{"type":"message","user":"U1","text":"Launch copy v2","ts":"1700000002.000200"},
				{"type":"message","subtype":"channel_join","user":"U2","text":"<@U2> has joined","ts":"1700000001.000100"},
				{"type":"message","subtype":"bot_message","bot_id":"B1","text":"Deploy done","ts":"1700000000.500000"},
				{"type":"message","user":"U3","text":"   ","ts":"1700000000.400000"},
				{"type":"message","user":"U1","text":"Launch copy v1","ts":"1700000000.000100"}
			]}`)
		default:
			http.NotFound(w, r)
		}
	})

	items, err := a.FetchRecent(context.Background(), "xoxb-test", "C123", 20)
	require.NoError(t, err)
	assert.Equal(t, "20", gotLimit)
	assert.Equal(t, []sources.Item{
		{ExternalID: "1700000002.000200", Text: "Launch copy v2", SourceLabel: "marketing"},
		{ExternalID: "1700000000.000100", Text: "Launch copy v1", SourceLabel: "marketing"},
	}, items)
	assert.Equal(t, "marketing/1700000002.000200", sources.Reference(a.Platform(), items[0]))
}

func TestFetchRecentInvalidAuth(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":false,"error":"invalid_auth"}`)
	})

	_, err := a.FetchRecent(context.Background(), "bad", "C123", 20)
	require.Error(t, err)
	var ae *sources.AdapterError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, err.Error(), "invalid_auth")
	assert.Contains(t, err.Error(), "slack API error")
}

func TestListLocations(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/conversations.list", r.URL.Path)
		assert.Equal(t, "public_channel,private_channel", r.Form.Get("types"))
		assert.Equal(t, "200", r.Form.Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true,"channels":[
			{"id":"C1","name":"general","is_private":false},
			{"id":"C2","name":"brand-team","is_private":true}
		],"response_metadata":{"next_cursor":""}}`)
	})

	locs, err := a.ListLocations(context.Background(), "xoxb-test")
	require.NoError(t, err)
	assert.Equal(t, []sources.Location{
		{ID: "C1", Name: "general"},
		{ID: "C2", Name: "brand-team", IsPrivate: true},
	}, locs)
}
