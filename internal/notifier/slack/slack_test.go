package slack_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	internalslack "github.com/clubhq/teamsheet/internal/notifier/slack"

	"github.com/clubhq/teamsheet/internal/metrics"
	"github.com/clubhq/teamsheet/internal/stats"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc, m *metrics.Mock) *internalslack.Notifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api := slack.New("test-token", slack.OptionAPIURL(srv.URL+"/"))
	return internalslack.NewNotifierWithAPI(api, "C123", m, false)
}

func TestPersonalBestBroken(t *testing.T) {
	handlerCalled := false
	m := metrics.NewMock()
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		body, _ := io.ReadAll(r.Body)
		vals, _ := url.ParseQuery(string(body))
		assert.Equal(t, "C123", vals.Get("channel"))

		var blocks slack.Blocks
		err := json.Unmarshal([]byte(vals.Get("blocks")), &blocks)
		require.NoError(t, err)
		require.Len(t, blocks.BlockSet, 3)

		header := blocks.BlockSet[0].(*slack.HeaderBlock)
		assert.Contains(t, header.Text.Text, "New club record!")
		section := blocks.BlockSet[1].(*slack.SectionBlock)
		assert.Contains(t, section.Text.Text, "Alice")
		assert.Contains(t, section.Text.Text, "4")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "ts": "12345.6789"}`))
	}, m)

	err := n.PersonalBestBroken(&stats.PersonalBestRecord{
		Metric:           stats.MetricGoals,
		Value:            4,
		PlayerID:         "p1",
		PlayerName:       "Alice",
		MatchID:          "m1",
		SetAt:            time.Date(2026, 3, 5, 19, 0, 0, 0, time.UTC),
		PreviousValue:    3,
		PreviousPlayerID: "p2",
	})
	require.NoError(t, err)
	assert.True(t, handlerCalled, "Expected http handler to be called")
	assert.Equal(t, 1, m.NotifSentCount)
}

func TestPersonalBestBrokenFirstRecordSkipsHistory(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		vals, _ := url.ParseQuery(string(body))

		var blocks slack.Blocks
		err := json.Unmarshal([]byte(vals.Get("blocks")), &blocks)
		require.NoError(t, err)
		// No previous holder, so no context block.
		assert.Len(t, blocks.BlockSet, 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "ts": "12345.6789"}`))
	}, metrics.NewMock())

	err := n.PersonalBestBroken(&stats.PersonalBestRecord{
		Metric:     stats.MetricAssists,
		Value:      2,
		PlayerID:   "p1",
		PlayerName: "Alice",
	})
	require.NoError(t, err)
}

func TestSeasonClosed(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		vals, _ := url.ParseQuery(string(body))

		var blocks slack.Blocks
		err := json.Unmarshal([]byte(vals.Get("blocks")), &blocks)
		require.NoError(t, err)
		require.Len(t, blocks.BlockSet, 2)

		header := blocks.BlockSet[0].(*slack.HeaderBlock)
		assert.Contains(t, header.Text.Text, "Spring 2026 is over!")
		section := blocks.BlockSet[1].(*slack.SectionBlock)
		assert.Contains(t, section.Text.Text, "🥇 1. Alice")
		assert.Contains(t, section.Text.Text, "🥈 2. Bob")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "ts": "12345.6789"}`))
	}, metrics.NewMock())

	err := n.SeasonClosed(
		stats.Season{ID: "s1", Name: "Spring 2026"},
		[]stats.PlayerTotals{
			{PlayerID: "p1", PlayerName: "Alice", Points: 9, Goals: 4},
			{PlayerID: "p2", PlayerName: "Bob", Points: 6, Goals: 2},
		},
	)
	require.NoError(t, err)
}

func TestSendFailureCountsAndErrors(t *testing.T) {
	m := metrics.NewMock()
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
	}, m)

	err := n.PersonalBestBroken(&stats.PersonalBestRecord{
		Metric:     stats.MetricGoals,
		Value:      1,
		PlayerName: "Alice",
	})
	require.Error(t, err)
	assert.Equal(t, 1, m.NotifFailedCount)
}

func TestDryRunSendsNothing(t *testing.T) {
	api := slack.New("test-token", slack.OptionAPIURL("http://127.0.0.1:0/"))
	n := internalslack.NewNotifierWithAPI(api, "C123", nil, true)

	err := n.SeasonClosed(stats.Season{ID: "s1", Name: "Spring 2026"}, nil)
	require.NoError(t, err)
}
