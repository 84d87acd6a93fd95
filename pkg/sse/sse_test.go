package sse

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readUntilBlank(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestServePublishesNamedEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(time.Minute)
	defer hub.Close()

	r := gin.New()
	r.GET("/events", func(c *gin.Context) { hub.Serve(c, ParseGroups(c.Query("group"))...) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events?group=alerts:all,terminal:RSQW-001")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, []string{"retry: 5000"}, readUntilBlank(t, reader))
	assert.Equal(t, 1, hub.ClientCount())

	require.NoError(t, hub.Publish("terminal:RSQW-002", "mapReport:new", map[string]string{"alertId": "ALRT000"}))
	require.NoError(t, hub.Publish("alerts:all", "waitlist:formRemoved", map[string]string{"alertId": "ALRT001"}))

	lines := readUntilBlank(t, reader)
	require.Len(t, lines, 3)
	assert.Equal(t, "event: waitlist:formRemoved", lines[1])
	assert.Equal(t, `data: {"alertId":"ALRT001"}`, lines[2])
}

func TestRemoveClientCleansGroups(t *testing.T) {
	hub := NewHub(0)
	hub.AddClient("c1", "alerts:all")
	hub.RemoveClient("c1")

	assert.Equal(t, 0, hub.ClientCount())
	assert.NoError(t, hub.Publish("alerts:all", "liveReport:new", nil))
	assert.Empty(t, hub.groups)
}

func TestParseGroups(t *testing.T) {
	assert.Equal(t, []string{"alerts:all", "terminal:RSQW-001"}, ParseGroups(" alerts:all , ,terminal:RSQW-001"))
	assert.Nil(t, ParseGroups(""))
}
