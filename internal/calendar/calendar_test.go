package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func sampleSchedule() domain.Schedule {
	return testutil.NewTestSchedule(testutil.FixedStart,
		testutil.NewTestBlock("Deep work",
			testutil.WorkBox(45, "Write report"),
			testutil.BreakBox(domain.TimeBoxShortBreak, 5),
			testutil.WorkBox(30, "Review PR", "Reply to Sam"),
			testutil.BreakBox(domain.TimeBoxLongBreak, 15),
		),
	)
}

func TestEvents_OnePerBox(t *testing.T) {
	events := Events("run-1", sampleSchedule(), nil)

	require.Len(t, events, 4)
	assert.Equal(t, "Write report", events[0].Summary)
	assert.Equal(t, "2025-06-16T09:00:00Z", events[0].Start.DateTime)
	assert.Equal(t, "2025-06-16T09:45:00Z", events[0].End.DateTime)
	assert.Equal(t, "run-1", events[0].ExtendedProperties.Private[RunProperty])
	assert.Equal(t, "0.0", events[0].ExtendedProperties.Private[boxProperty])
	assert.Empty(t, events[0].ColorId)

	assert.Equal(t, "Short break", events[1].Summary)
	assert.Equal(t, breakColorID, events[1].ColorId)
	assert.Equal(t, "transparent", events[1].Transparency)

	assert.Equal(t, "Deep work", events[2].Summary)
	assert.Contains(t, events[2].Description, "- Review PR (15 min)")
	assert.Contains(t, events[2].Description, "- Reply to Sam (15 min)")
	assert.Equal(t, "Long break", events[3].Summary)
}

func TestEvents_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	events := Events("run-1", sampleSchedule(), loc)

	assert.Equal(t, "2025-06-16T11:00:00+02:00", events[0].Start.DateTime)
	assert.Equal(t, "Europe/Berlin", events[0].Start.TimeZone)
}

func TestEvents_SkipsUnstampedBoxes(t *testing.T) {
	s := domain.Schedule{StoryBlocks: []domain.StoryBlock{
		testutil.NewTestBlock("Deep work", testutil.WorkBox(30, "Write report")),
	}}
	assert.Empty(t, Events("run-1", s, nil))
}

type fakeCalendar struct {
	mu       sync.Mutex
	existing []*gcal.Event
	inserted []*gcal.Event
	deleted  []string
	query    string
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/calendars/primary/events"):
		f.query = r.URL.Query().Get("privateExtendedProperty")
		_ = json.NewEncoder(w).Encode(&gcal.Events{Items: f.existing})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/calendars/primary/events"):
		var ev gcal.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ev.Id = "ev" + string(rune('a'+len(f.inserted)))
		f.inserted = append(f.inserted, &ev)
		_ = json.NewEncoder(w).Encode(&ev)
	case r.Method == http.MethodDelete:
		f.deleted = append(f.deleted, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func newTestExporter(t *testing.T, fake *fakeCalendar) *Exporter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gcal.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	exp, err := NewExporterWithService(svc, Config{}, nil)
	require.NoError(t, err)
	return exp
}

func TestExporter_ReplacesPreviousExport(t *testing.T) {
	fake := &fakeCalendar{existing: []*gcal.Event{{Id: "old1"}, {Id: "old2"}}}
	exp := newTestExporter(t, fake)

	n, err := exp.Export(context.Background(), "run-1", sampleSchedule())

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "timeboxer_run=run-1", fake.query)
	assert.Equal(t, []string{"old1", "old2"}, fake.deleted)
	require.Len(t, fake.inserted, 4)
	assert.Equal(t, "Write report", fake.inserted[0].Summary)
	assert.Equal(t, "run-1", fake.inserted[0].ExtendedProperties.Private[RunProperty])
}

func TestNewExporterWithService_BadTimeZone(t *testing.T) {
	_, err := NewExporterWithService(&gcal.Service{}, Config{TimeZone: "Mars/Olympus"}, nil)
	assert.Error(t, err)
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	_, err := tokenFromFile(path)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, saveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "r", tok.RefreshToken)
}

func TestNewExporter_MissingCredentials(t *testing.T) {
	_, err := NewExporter(context.Background(), Config{CredentialsFile: filepath.Join(t.TempDir(), "nope.json")}, nil)
	assert.ErrorContains(t, err, "reading calendar credentials")
}
