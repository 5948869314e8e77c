package client

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/youruser/spotdeck/internal/deck"
	"github.com/youruser/spotdeck/internal/layout"
	"github.com/youruser/spotdeck/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type recordAlerter struct {
	mu   sync.Mutex
	msgs []string
}

func (a *recordAlerter) Alert(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
}

func (a *recordAlerter) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.msgs...)
}

type recordNavigator struct {
	urls []string
}

func (n *recordNavigator) Navigate(_ context.Context, url string) error {
	n.urls = append(n.urls, url)
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newRenderer(t *testing.T, srv *httptest.Server, opts ...Option) (*DeckRenderer, *recordAlerter) {
	t.Helper()
	page, err := render.NewPage()
	require.NoError(t, err)
	alerts := &recordAlerter{}
	opts = append([]Option{WithHTTPClient(srv.Client()), WithAlerter(alerts), WithoutImageProbe()}, opts...)
	return New(srv.URL, page, opts...), alerts
}

func testForm() *Form {
	return &Form{Files: []File{{Name: "a.png", Content: strings.NewReader("png")}}}
}

func cardImages(t *testing.T, p *render.Page) [][]string {
	t.Helper()
	var out [][]string
	p.Update(func(container *html.Node) {
		for _, card := range render.Cards(container) {
			var srcs []string
			for _, img := range render.FindAll(card, atom.Img) {
				srcs = append(srcs, render.Attr(img, "src"))
			}
			out = append(out, srcs)
		}
	})
	return out
}

func cardLabels(p *render.Page) []string {
	var out []string
	p.Update(func(container *html.Node) {
		for _, card := range render.Cards(container) {
			for _, div := range render.FindAll(card, atom.Div) {
				if render.HasClass(div, "card-number") {
					out = append(out, render.TextContent(div))
				}
			}
		}
	})
	return out
}

func TestSubmit_RendersDeck(t *testing.T) {
	var (
		mu       sync.Mutex
		gotFiles []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			mu.Lock()
			for _, fh := range r.MultipartForm.File[StickerField] {
				gotFiles = append(gotFiles, fh.Filename)
			}
			mu.Unlock()
		}
		writeJSON(w, deck.Response{ID: "d1", Deck: deck.Deck{{"a.png", "b.png"}, {"c.png"}}})
	}))
	defer srv.Close()

	r, alerts := newRenderer(t, srv, WithLayout(layout.Linear{}))
	outcome, err := r.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.Equal(t, Rendered, outcome)

	mu.Lock()
	assert.Equal(t, []string{"a.png"}, gotFiles)
	mu.Unlock()
	assert.Equal(t, []string{"Card 1", "Card 2"}, cardLabels(r.Page()))
	assert.Equal(t, [][]string{{"/uploads/a.png", "/uploads/b.png"}, {"/uploads/c.png"}}, cardImages(t, r.Page()))
	assert.True(t, r.Page().ExportVisible())
	assert.Empty(t, alerts.all())
	assert.Equal(t, Idle, r.State())
}

func TestSubmit_AppErrorLeavesPageUntouched(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, deck.Response{Deck: deck.Deck{{"a.png"}}})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, deck.Response{Error: "X", Deck: deck.Deck{{"ignored.png"}}})
	}))
	defer srv.Close()

	r, alerts := newRenderer(t, srv)
	_, err := r.Submit(context.Background(), testForm())
	require.NoError(t, err)
	before := cardImages(t, r.Page())

	outcome, err := r.Submit(context.Background(), testForm())
	assert.Equal(t, AppError, outcome)
	assert.EqualError(t, err, "X")
	assert.Equal(t, []string{"X"}, alerts.all())
	assert.Equal(t, before, cardImages(t, r.Page()))
}

func TestSubmit_AppErrorCreatesNoImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"error": "need at least 7 stickers"})
	}))
	defer srv.Close()

	r, alerts := newRenderer(t, srv)
	outcome, _ := r.Submit(context.Background(), testForm())
	assert.Equal(t, AppError, outcome)
	assert.Equal(t, []string{"need at least 7 stickers"}, alerts.all())
	assert.Empty(t, r.Page().Images())
	assert.False(t, r.Page().ExportVisible())
}

func TestSubmit_MalformedJSONIsGenericFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	r, alerts := newRenderer(t, srv, WithLogger(zap.New(core)))
	outcome, err := r.Submit(context.Background(), testForm())
	assert.Equal(t, Failed, outcome)

	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, []string{GenericFailure}, alerts.all())
	assert.Empty(t, r.Page().Images())
	assert.Equal(t, 1, logs.FilterMessage("submit failed").Len())
}

func TestSubmit_MissingDeckIsGenericFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"stickers": []string{"a.png"}})
	}))
	defer srv.Close()

	r, alerts := newRenderer(t, srv)
	outcome, err := r.Submit(context.Background(), testForm())
	assert.Equal(t, Failed, outcome)
	assert.ErrorIs(t, err, ErrMissingDeck)
	assert.Equal(t, []string{GenericFailure}, alerts.all())
}

func TestSubmit_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	r, alerts := newRenderer(t, srv)
	srv.Close()

	outcome, err := r.Submit(context.Background(), testForm())
	assert.Equal(t, Failed, outcome)
	assert.Error(t, err)
	assert.Equal(t, []string{GenericFailure}, alerts.all())
	assert.Equal(t, Idle, r.State())
}

func TestSubmit_LatestSubmissionWins(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-release
			writeJSON(w, deck.Response{Deck: deck.Deck{{"old.png"}, {"old2.png"}}})
			return
		}
		writeJSON(w, deck.Response{Deck: deck.Deck{{"new.png"}}})
	}))
	defer srv.Close()

	r, alerts := newRenderer(t, srv)

	type result struct {
		outcome Outcome
		err     error
	}
	first := make(chan result, 1)
	go func() {
		o, err := r.Submit(context.Background(), testForm())
		first <- result{o, err}
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, Submitting, r.State())

	outcome, err := r.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.Equal(t, Rendered, outcome)

	close(release)
	res := <-first
	assert.NoError(t, res.err)
	assert.Equal(t, Stale, res.outcome)

	assert.Equal(t, [][]string{{"/uploads/new.png"}}, cardImages(t, r.Page()))
	assert.Empty(t, alerts.all())
	assert.Equal(t, Idle, r.State())
}

func TestSubmit_BrokenImageOnlyLogs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, imaging.Save(imaging.New(8, 8, color.White), filepath.Join(dir, "ok.png")))

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deck.Response{Deck: deck.Deck{{"ok.png", "missing.png"}, {"ok.png"}}})
	})
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir))))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	r, alerts := newRenderer(t, srv, WithLogger(zap.New(core)), WithImageProbe(2))
	outcome, err := r.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.Equal(t, Rendered, outcome)
	r.Wait()

	assert.Equal(t, [][]string{{"/uploads/ok.png", "/uploads/missing.png"}, {"/uploads/ok.png"}}, cardImages(t, r.Page()))
	assert.Empty(t, alerts.all())

	failed := logs.FilterMessage("failed to load sticker").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "/uploads/missing.png", failed[0].ContextMap()["src"])
}

func TestNew_ChecksImagesByDefault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deck.Response{Deck: deck.Deck{{"missing.png"}}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := render.NewPage()
	require.NoError(t, err)
	core, logs := observer.New(zapcore.WarnLevel)
	alerts := &recordAlerter{}
	r := New(srv.URL, page, WithHTTPClient(srv.Client()), WithAlerter(alerts), WithLogger(zap.New(core)))

	outcome, err := r.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.Equal(t, Rendered, outcome)
	r.Wait()

	failed := logs.FilterMessage("failed to load sticker").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "/uploads/missing.png", failed[0].ContextMap()["src"])
	assert.Equal(t, []string{"/uploads/missing.png"}, r.Page().Images())
	assert.Empty(t, alerts.all())
}

func TestSubmit_ReturnsBeforeImageChecks(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deck.Response{Deck: deck.Deck{{"slow.png"}}})
	})
	mux.HandleFunc("/uploads/", func(w http.ResponseWriter, r *http.Request) {
		<-release
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	r, _ := newRenderer(t, srv, WithLogger(zap.New(core)), WithImageProbe(1))

	outcome, err := r.Submit(context.Background(), testForm())
	require.NoError(t, err)
	assert.Equal(t, Rendered, outcome)
	assert.Equal(t, Idle, r.State())
	assert.Equal(t, []string{"/uploads/slow.png"}, r.Page().Images())
	assert.Equal(t, 0, logs.FilterMessage("failed to load sticker").Len())

	close(release)
	r.Wait()
	assert.Equal(t, 1, logs.FilterMessage("failed to load sticker").Len())
}

func TestSubmit_NonStringErrorIsAlerted(t *testing.T) {
	tests := []struct {
		body      string
		outcome   Outcome
		wantAlert string
	}{
		{`{"error":{"code":3}}`, AppError, `{"code":3}`},
		{`{"error":42}`, AppError, "42"},
		{`{"error":true}`, AppError, "true"},
		{`{"error":"", "deck":[["a.png"]]}`, Rendered, ""},
		{`{"error":null, "deck":[["a.png"]]}`, Rendered, ""},
		{`{"error":false, "deck":[["a.png"]]}`, Rendered, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			r, alerts := newRenderer(t, srv)
			outcome, _ := r.Submit(context.Background(), testForm())
			assert.Equal(t, tt.outcome, outcome)
			if tt.wantAlert == "" {
				assert.Empty(t, alerts.all())
				return
			}
			assert.Equal(t, []string{tt.wantAlert}, alerts.all())
			assert.Empty(t, r.Page().Images())
		})
	}
}

func TestExport_Navigates(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	nav := &recordNavigator{}
	r, _ := newRenderer(t, srv, WithNavigator(nav))
	require.NoError(t, r.Export(context.Background()))
	assert.Equal(t, []string{srv.URL + "/export"}, nav.urls)
}

func TestDownloadNavigator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/export":
			w.Header().Set("Content-Disposition", "attachment; filename=spotit_deck.pdf")
			w.Write([]byte("sheet"))
		case "/plain":
			w.Write([]byte("plain"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	nav := DownloadNavigator{Dir: dir, Client: srv.Client()}

	path, err := nav.Download(context.Background(), srv.URL+"/export")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "spotit_deck.pdf"), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sheet", string(b))

	path, err = nav.Download(context.Background(), srv.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultExportName), path)

	assert.Error(t, nav.Navigate(context.Background(), srv.URL+"/nope"))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "rendered", Rendered.String())
	assert.Equal(t, "stale", Stale.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "idle", Idle.String())
}
