// Package static hosts a parsed HTML document as a platform.Page.
//
// There is no script engine and no layout: events are dispatched by the
// caller (a replay script or a test), computed styles are derived from
// inline styles and user-agent display defaults, and bounding boxes are
// unavailable.
package static

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/platform"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Options describe the simulated window around the document.
type Options struct {
	URL          string // document address; defaults to a file:// URL of the source path
	Referrer     string
	Viewport     platform.Viewport
	Screen       platform.Screen
	Navigator    platform.Navigator
	ScrollWidth  float64 // document size; defaults to the viewport size
	ScrollHeight float64
	DownloadDir  string // where Download writes; defaults to the working directory
	Logger       *zap.Logger
}

// DefaultOptions returns a 1280x720 desktop window.
func DefaultOptions() Options {
	return Options{
		Viewport: platform.Viewport{Width: 1280, Height: 720, DevicePixelRatio: 1},
		Screen:   platform.Screen{Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1080, ColorDepth: 24},
		Navigator: platform.Navigator{
			UserAgent:     "page-tracker/static",
			Language:      "en-US",
			Platform:      "Linux x86_64",
			CookieEnabled: true,
			OnLine:        true,
		},
		DownloadDir: ".",
	}
}

// Page is a static document with scripted event dispatch. It is safe for
// concurrent use; dispatch is serialized.
type Page struct {
	doc    *goquery.Document
	base   *url.URL
	opts   Options
	log    *zap.Logger
	loaded time.Time

	mu        sync.Mutex
	scroll    platform.ScrollState
	listeners platform.Listeners

	dispatchMu sync.Mutex
}

// Open parses the HTML file at path.
func Open(path string, opts Options) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()
	if opts.URL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		opts.URL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return Load(f, opts)
}

// Load parses an HTML document from r.
func Load(r io.Reader, opts Options) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	base, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid document url %q: %w", opts.URL, err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := base.Parse(href); err == nil {
			base = u
		}
	}
	def := DefaultOptions()
	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = def.Viewport
	}
	if opts.Screen.Width == 0 {
		opts.Screen = def.Screen
	}
	if opts.Navigator.UserAgent == "" {
		opts.Navigator = def.Navigator
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = def.DownloadDir
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Page{
		doc:    doc,
		base:   base,
		opts:   opts,
		log:    opts.Logger,
		loaded: time.Now(),
	}
	p.scroll = platform.ScrollState{
		ScrollWidth:  max(opts.ScrollWidth, float64(opts.Viewport.Width)),
		ScrollHeight: max(opts.ScrollHeight, float64(opts.Viewport.Height)),
	}
	return p, nil
}

func (p *Page) Location() platform.Location {
	u := p.opts.URL
	parsed, _ := url.Parse(u)
	loc := platform.Location{
		Href:     u,
		Title:    strings.TrimSpace(p.doc.Find("title").First().Text()),
		Referrer: p.opts.Referrer,
	}
	if parsed != nil {
		loc.Pathname = parsed.EscapedPath()
		if loc.Pathname == "" {
			loc.Pathname = "/"
		}
		loc.Protocol = parsed.Scheme + ":"
		loc.Host = parsed.Host
	}
	return loc
}

func (p *Page) Viewport() platform.Viewport   { return p.opts.Viewport }
func (p *Page) Screen() platform.Screen       { return p.opts.Screen }
func (p *Page) Navigator() platform.Navigator { return p.opts.Navigator }

func (p *Page) Scroll() platform.ScrollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scroll
}

// Subscribe registers fn for every dispatched event.
func (p *Page) Subscribe(fn func(platform.Event)) func() {
	p.mu.Lock()
	cancel := p.listeners.Add(fn)
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		cancel()
		p.mu.Unlock()
	}
}

// Download writes data into the download directory.
func (p *Page) Download(name string, data []byte) (string, error) {
	path, err := platform.SaveDownload(p.opts.DownloadDir, name, data)
	if err != nil {
		return "", err
	}
	p.log.Debug("download written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// Query returns the first element matching a CSS selector.
func (p *Page) Query(selector string) (dom.Node, error) {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return dom.FromHTML(sel.Nodes[0], p.base), nil
}

// Root returns the document element.
func (p *Page) Root() dom.Node {
	for c := p.doc.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return dom.FromHTML(c, p.base)
		}
	}
	return nil
}

// owns reports whether n belongs to this document.
func (p *Page) owns(n dom.Node) (*html.Node, bool) {
	h, ok := dom.Unwrap(n)
	if !ok {
		return nil, false
	}
	top := h
	for top.Parent != nil {
		top = top.Parent
	}
	return h, top == p.doc.Nodes[0]
}

func (p *Page) dispatch(ev platform.Event) {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	p.mu.Lock()
	fns := p.listeners.Snapshot()
	p.mu.Unlock()

	p.log.Debug("dispatch", zap.String("event", platform.EventName(ev)))
	for _, fn := range fns {
		fn(ev)
	}
}

// sinceLoad is the event timestamp: milliseconds since the document loaded.
func (p *Page) sinceLoad() float64 {
	return float64(time.Since(p.loaded).Microseconds()) / 1000
}
