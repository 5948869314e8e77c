// Package client drives the upload page: it submits the sticker form to the
// deck server, renders the returned deck into the page and triggers the
// export download.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/youruser/spotdeck/internal/deck"
	imagepkg "github.com/youruser/spotdeck/internal/image"
	"github.com/youruser/spotdeck/internal/layout"
	"github.com/youruser/spotdeck/internal/render"
)

// GenericFailure is shown for every failure other than a server-reported error.
const GenericFailure = "Something went wrong!"

var ErrMissingDeck = errors.New("response carries neither error nor deck")

// ParseError reports an upload response body that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse upload response: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// Outcome is how a submission ended.
type Outcome int

const (
	// Rendered means the deck replaced the container content.
	Rendered Outcome = iota
	// AppError means the server reported an error, which was alerted.
	AppError
	// Failed means the request or response handling failed; the generic
	// failure was alerted.
	Failed
	// Stale means a newer submission started before this one finished, so
	// its result was dropped.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Rendered:
		return "rendered"
	case AppError:
		return "app-error"
	case Failed:
		return "failed"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// State is Submitting while any submission is in flight.
type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// DeckRenderer submits the upload form and renders the resulting deck.
// Submit may be called concurrently; only the most recently started
// submission is allowed to change the page or alert.
type DeckRenderer struct {
	baseURL    string
	client     *http.Client
	page       *render.Page
	layout     layout.Strategy
	alerter    Alerter
	navigator  Navigator
	log        *zap.Logger
	probe      bool
	probeLimit int
	probes     sync.WaitGroup

	generation atomic.Uint64
	inflight   atomic.Int64
	applyMu    sync.Mutex
}

type Option func(*DeckRenderer)

func WithHTTPClient(c *http.Client) Option { return func(r *DeckRenderer) { r.client = c } }
func WithLayout(s layout.Strategy) Option  { return func(r *DeckRenderer) { r.layout = s } }
func WithAlerter(a Alerter) Option         { return func(r *DeckRenderer) { r.alerter = a } }
func WithNavigator(n Navigator) Option     { return func(r *DeckRenderer) { r.navigator = n } }
func WithLogger(l *zap.Logger) Option      { return func(r *DeckRenderer) { r.log = l } }

// DefaultProbeLimit bounds concurrent sticker fetches after a render.
const DefaultProbeLimit = 4

// WithImageProbe sets how many stickers are fetched at once when checking
// the images of a rendered deck.
func WithImageProbe(limit int) Option {
	return func(r *DeckRenderer) {
		r.probe = true
		r.probeLimit = max(limit, 1)
	}
}

// WithoutImageProbe disables the post-render sticker check.
func WithoutImageProbe() Option {
	return func(r *DeckRenderer) { r.probe = false }
}

// New returns a renderer for the server at baseURL drawing into page.
func New(baseURL string, page *render.Page, opts ...Option) *DeckRenderer {
	r := &DeckRenderer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     http.DefaultClient,
		page:       page,
		layout:     layout.Circular{Radius: layout.DefaultRadius},
		alerter:    WriterAlerter{W: os.Stderr},
		log:        zap.NewNop(),
		probe:      true,
		probeLimit: DefaultProbeLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.navigator == nil {
		r.navigator = DownloadNavigator{Dir: ".", Client: r.client, Log: r.log}
	}
	return r
}

// Page returns the page the renderer draws into.
func (r *DeckRenderer) Page() *render.Page { return r.page }

func (r *DeckRenderer) State() State {
	if r.inflight.Load() > 0 {
		return Submitting
	}
	return Idle
}

// Submit posts form to the upload endpoint and applies the response: a
// server-reported error is alerted verbatim and leaves the page untouched;
// a deck replaces the container content and reveals the export control;
// anything else is logged and alerted as GenericFailure. The returned error
// is the cause for AppError and Failed outcomes.
//
// After a render every sticker is fetched in the background and the ones
// that fail to load are logged; Wait blocks until those checks finish.
func (r *DeckRenderer) Submit(ctx context.Context, form *Form) (Outcome, error) {
	gen := r.generation.Add(1)
	r.inflight.Add(1)
	defer r.inflight.Add(-1)
	log := r.log.With(zap.Uint64("generation", gen))

	resp, err := r.upload(ctx, form)
	if err != nil {
		return r.fail(gen, log, err)
	}

	if msg, ok := errorMessage(resp.Error); ok {
		applied := r.apply(gen, func() { r.alerter.Alert(msg) })
		if !applied {
			log.Debug("dropping stale error response", zap.String("error", msg))
			return Stale, nil
		}
		log.Info("upload rejected", zap.String("error", msg))
		return AppError, errors.New(msg)
	}
	if resp.Deck == nil {
		return r.fail(gen, log, ErrMissingDeck)
	}

	applied := r.apply(gen, func() { r.page.ShowDeck(resp.Deck, r.layout) })
	if !applied {
		log.Debug("dropping stale deck", zap.Int("cards", len(resp.Deck)))
		return Stale, nil
	}
	log.Info("deck rendered",
		zap.String("deck_id", resp.ID),
		zap.Int("cards", len(resp.Deck)),
		zap.String("layout", r.layout.Name()),
	)

	if r.probe {
		r.probes.Add(1)
		go func() {
			defer r.probes.Done()
			r.probeImages(context.WithoutCancel(ctx), log, resp.Deck)
		}()
	}
	return Rendered, nil
}

// Wait blocks until the sticker checks of every rendered deck are done.
func (r *DeckRenderer) Wait() {
	r.probes.Wait()
}

// Export navigates to the export endpoint.
func (r *DeckRenderer) Export(ctx context.Context) error {
	url := r.baseURL + "/export"
	if err := r.navigator.Navigate(ctx, url); err != nil {
		r.log.Error("export failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// uploadResult is the upload response as the page sees it: error may be any
// JSON value and counts when it is truthy.
type uploadResult struct {
	ID    string          `json:"id"`
	Error json.RawMessage `json:"error"`
	Deck  deck.Deck       `json:"deck"`
}

// errorMessage returns the text to alert for a truthy error value.
func errorMessage(raw json.RawMessage) (string, bool) {
	text := strings.TrimSpace(string(raw))
	switch text {
	case "", "null", "false", "0", `""`:
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return text, true
}

func (r *DeckRenderer) upload(ctx context.Context, form *Form) (*uploadResult, error) {
	body, contentType, err := form.encode()
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post upload: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	var out uploadResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &out, nil
}

func (r *DeckRenderer) fail(gen uint64, log *zap.Logger, err error) (Outcome, error) {
	applied := r.apply(gen, func() { r.alerter.Alert(GenericFailure) })
	if !applied {
		log.Debug("dropping stale failure", zap.Error(err))
		return Stale, nil
	}
	log.Error("submit failed", zap.String("url", r.baseURL+"/upload"), zap.Error(err))
	return Failed, err
}

// apply runs fn only if gen is still the newest submission.
func (r *DeckRenderer) apply(gen uint64, fn func()) bool {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()
	if gen != r.generation.Load() {
		return false
	}
	fn()
	return true
}

// probeImages loads every sticker of d. Failures are logged and never
// touch the page.
func (r *DeckRenderer) probeImages(ctx context.Context, log *zap.Logger, d deck.Deck) {
	seen := map[deck.StickerRef]bool{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.probeLimit)
	for _, c := range d {
		for _, ref := range c {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			src := deck.URL(ref)
			g.Go(func() error {
				if _, err := imagepkg.DownloadImage(ctx, r.client, r.baseURL+src); err != nil {
					log.Warn("failed to load sticker", zap.String("src", src), zap.Error(err))
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}
