package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Config locates the OAuth client secrets and cached token.
type Config struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	CalendarID      string `yaml:"calendar_id"`
	TimeZone        string `yaml:"time_zone"`
}

// ErrNoToken is returned when no cached OAuth token exists yet.
var ErrNoToken = errors.New("no calendar token; run `timeboxer export --authorize` first")

// Exporter writes schedules to one Google calendar.
type Exporter struct {
	srv        *gcal.Service
	calendarID string
	loc        *time.Location
	log        *logger.Logger
}

// NewExporter builds an exporter authorised with the cached token.
func NewExporter(ctx context.Context, cfg Config, log *logger.Logger) (*Exporter, error) {
	oc, err := oauthConfig(cfg)
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(oc.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return NewExporterWithService(srv, cfg, log)
}

// NewExporterWithService wraps an existing calendar service.
func NewExporterWithService(srv *gcal.Service, cfg Config, log *logger.Logger) (*Exporter, error) {
	loc := time.UTC
	if cfg.TimeZone != "" {
		l, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("calendar time zone: %w", err)
		}
		loc = l
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{
		srv:        srv,
		calendarID: domain.CoalesceStr(cfg.CalendarID, "primary"),
		loc:        loc,
		log:        log.With("calendar", domain.CoalesceStr(cfg.CalendarID, "primary")),
	}, nil
}

// Export replaces any events previously exported for runID with one event
// per time box of s and returns the number of events created.
func (e *Exporter) Export(ctx context.Context, runID string, s domain.Schedule) (int, error) {
	removed, err := e.removeRun(ctx, runID)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, ev := range Events(runID, s, e.loc) {
		if _, err := e.srv.Events.Insert(e.calendarID, ev).Context(ctx).Do(); err != nil {
			return created, fmt.Errorf("creating event %q: %w", ev.Summary, err)
		}
		created++
	}
	e.log.Info("schedule exported", "run_id", runID, "created", created, "replaced", removed)
	return created, nil
}

func (e *Exporter) removeRun(ctx context.Context, runID string) (int, error) {
	removed := 0
	call := e.srv.Events.List(e.calendarID).
		PrivateExtendedProperty(RunProperty + "=" + runID).
		ShowDeleted(false)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if err := e.srv.Events.Delete(e.calendarID, item.Id).Context(ctx).Do(); err != nil {
				return fmt.Errorf("deleting event %s: %w", item.Id, err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("listing exported events: %w", err)
	}
	return removed, nil
}

// Authorize runs the manual authorization-code flow: it prints the consent
// URL to out, reads the code pasted on in and caches the token.
func Authorize(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	oc, err := oauthConfig(cfg)
	if err != nil {
		return err
	}
	url := oc.AuthCodeURL("timeboxer", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(out, "Open this URL in your browser and paste the code below:\n%s\n\ncode: ", url)

	var code string
	if _, err := fmt.Fscanln(in, &code); err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	tok, err := oc.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	return saveToken(cfg.TokenFile, tok)
}

func oauthConfig(cfg Config) (*oauth2.Config, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading calendar credentials %s: %w", cfg.CredentialsFile, err)
	}
	oc, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing calendar credentials: %w", err)
	}
	if oc.RedirectURL == "" {
		oc.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	}
	return oc, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
