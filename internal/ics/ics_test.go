package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vhevents/internal/model"
)

const sampleFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Hall Bookings//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:1@example.org\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;TZID=Europe/London:20250105T100000\r\n" +
	"DTEND;TZID=Europe/London:20250105T110000\r\n" +
	"SUMMARY:Hatha Yoga\\, beginners\r\n" +
	"DESCRIPTION:Ref 42\\nJane Doe\\nMain Hall\\, Kitchen\\nPaid\r\n" +
	"URL:https://example.org/b/42\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:2@example.org\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250106T180000Z\r\n" +
	"DTEND:20250106T200000Z\r\n" +
	"SUMMARY:Party\r\n" +
	"DESCRIPTION:Ref 43\\nJohn\\nSmall Room\r\n" +
	"URL:https://example.org/b/43\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseFeed(t *testing.T) {
	events, err := ParseFeed(Source{ID: "hall"}, []byte(sampleFeed))
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, model.TimeParts{Year: 2025, Month: 1, Day: 5, Hour: 10, Zone: "Europe/London"}, first.Start)
	assert.Equal(t, model.TimeParts{Year: 2025, Month: 1, Day: 5, Hour: 11, Zone: "Europe/London"}, first.End)
	assert.Equal(t, "Hatha Yoga, beginners", first.Summary)
	assert.Equal(t, "Main Hall, Kitchen", strings.Split(first.Description, "\n")[2])
	assert.Equal(t, "https://example.org/b/42", first.URL)

	second := events[1]
	assert.Equal(t, "UTC", second.Start.Zone)
	assert.Equal(t, 18, second.Start.Hour)
}

func TestParseFeedEscapedBackslash(t *testing.T) {
	body := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//Hall Bookings//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:9@example.org\r\n" +
		"DTSTAMP:20250101T000000Z\r\n" +
		"DTSTART:20250106T180000Z\r\n" +
		"SUMMARY:Backup C:\\\\new folder\r\n" +
		"DESCRIPTION:ref\\nC:\\\\notes\\nMain Hall\\nx\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	events, err := ParseFeed(Source{ID: "hall"}, []byte(body))
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, `Backup C:\new folder`, events[0].Summary)
	lines := strings.Split(events[0].Description, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `C:\notes`, lines[1])
	assert.Equal(t, "Main Hall", lines[2])
}

func TestParseFeedEmpty(t *testing.T) {
	_, err := ParseFeed(Source{ID: "x"}, nil)
	require.Error(t, err)
}

func TestPartsOf(t *testing.T) {
	p, err := partsOf("20250105", "Europe/London")
	require.NoError(t, err)
	assert.Equal(t, model.TimeParts{Year: 2025, Month: 1, Day: 5, Zone: "Europe/London"}, p)

	p, err = partsOf("20250105T093015", "")
	require.NoError(t, err)
	assert.Equal(t, 30, p.Minute)
	assert.Equal(t, 15, p.Second)
	assert.Equal(t, "", p.Zone)

	_, err = partsOf("2025-01-05", "")
	require.Error(t, err)
	_, err = partsOf("2025010xT000000", "")
	require.Error(t, err)
}

func TestFetchOneCachesAndRevalidates(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "hall", URL: srv.URL + "/feed.ics?token=secret"}

	res, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, sampleFeed, string(res.Body))

	res, err = f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, sampleFeed, string(res.Body))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestFetchOneFallsBackOnServerError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "hall", URL: srv.URL}

	_, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)

	fail.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	_, err = NewFetcher(t.TempDir()).FetchOne(context.Background(), src)
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.ics")
	require.NoError(t, os.WriteFile(path, []byte(sampleFeed), 0o600))

	events, err := NewFetcher(t.TempDir()).Load(context.Background(), []Source{{ID: "file", File: path}})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = NewFetcher(t.TempDir()).Load(context.Background(), []Source{{ID: "missing", File: path + ".nope"}})
	require.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.org/...(redacted)", redactURL("https://example.org/path/x.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
