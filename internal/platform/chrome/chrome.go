// Package chrome hosts a live Chrome tab as a platform.Page.
//
// A listener script is injected into every document of the tab. It
// snapshots event targets (ancestry, attributes, computed style, bounding
// box) at dispatch time and reports them through a runtime binding; a
// single goroutine decodes the reports and delivers them in order.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/mj1618/page-tracker/internal/dom"
	"github.com/mj1618/page-tracker/internal/platform"
	"go.uber.org/zap"
)

// Options configure the browser.
type Options struct {
	Headless     bool
	ExecPath     string // empty lets chromedp find Chrome
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	DownloadDir  string
	LoadTimeout  time.Duration
	Logger       *zap.Logger
}

const inboxSize = 1024

// Page is a tracked Chrome tab.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	opts   Options

	inbox chan string
	done  chan struct{}

	mu        sync.Mutex
	loc       platform.Location
	viewport  platform.Viewport
	screen    platform.Screen
	nav       platform.Navigator
	scroll    platform.ScrollState
	listeners platform.Listeners
}

type pageMeta struct {
	Href      string          `json:"href"`
	Pathname  string          `json:"pathname"`
	Title     string          `json:"title"`
	Referrer  string          `json:"referrer"`
	Protocol  string          `json:"protocol"`
	Host      string          `json:"host"`
	Viewport  wireViewport    `json:"viewport"`
	Screen    platform.Screen `json:"screen"`
	Navigator navigatorMeta   `json:"navigator"`
	Scroll    wireScrollState `json:"scroll"`
}

type navigatorMeta struct {
	UserAgent     string `json:"userAgent"`
	Language      string `json:"language"`
	Platform      string `json:"platform"`
	CookieEnabled bool   `json:"cookieEnabled"`
	OnLine        bool   `json:"onLine"`
}

const metaScript = `({
  href: location.href,
  pathname: location.pathname,
  title: document.title,
  referrer: document.referrer,
  protocol: location.protocol,
  host: location.host,
  viewport: { width: innerWidth, height: innerHeight, dpr: devicePixelRatio },
  screen: {
    width: screen.width, height: screen.height,
    availWidth: screen.availWidth, availHeight: screen.availHeight,
    colorDepth: screen.colorDepth
  },
  navigator: {
    userAgent: navigator.userAgent, language: navigator.language,
    platform: navigator.platform, cookieEnabled: navigator.cookieEnabled,
    onLine: navigator.onLine
  },
  scroll: {
    x: scrollX, y: scrollY,
    width: document.documentElement.scrollWidth,
    height: document.documentElement.scrollHeight
  }
})`

// Open launches Chrome, installs the listener script and navigates to url.
// The browser runs until Close or until ctx is cancelled.
func Open(ctx context.Context, url string, opts Options) (*Page, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WindowWidth == 0 || opts.WindowHeight == 0 {
		opts.WindowWidth, opts.WindowHeight = 1280, 800
	}
	if opts.LoadTimeout == 0 {
		opts.LoadTimeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	sugar := opts.Logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	p := &Page{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		log:   opts.Logger,
		opts:  opts,
		inbox: make(chan string, inboxSize),
		done:  make(chan struct{}),
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		b, ok := ev.(*runtime.EventBindingCalled)
		if !ok || b.Name != BindingName {
			return
		}
		select {
		case p.inbox <- b.Payload:
		default:
			p.log.Warn("dropping page event, dispatcher is behind")
		}
	})

	var meta pageMeta
	loadCtx, loadCancel := context.WithTimeout(tabCtx, opts.LoadTimeout)
	defer loadCancel()
	err := chromedp.Run(tabCtx,
		runtime.AddBinding(BindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(Script()).Do(ctx)
			return err
		}),
	)
	if err == nil {
		err = chromedp.Run(loadCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(metaScript, &meta),
		)
	}
	if err != nil {
		p.cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("loading %s: timed out after %s", url, opts.LoadTimeout)
		}
		return nil, fmt.Errorf("loading %s: %w", url, err)
	}
	p.applyMeta(meta)

	go p.run()
	p.log.Debug("page ready", zap.String("url", meta.Href), zap.String("title", meta.Title))
	return p, nil
}

func (p *Page) applyMeta(m pageMeta) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loc = platform.Location{
		Href:     m.Href,
		Pathname: m.Pathname,
		Title:    m.Title,
		Referrer: m.Referrer,
		Protocol: m.Protocol,
		Host:     m.Host,
	}
	p.viewport = platform.Viewport{Width: m.Viewport.Width, Height: m.Viewport.Height, DevicePixelRatio: m.Viewport.DPR}
	p.screen = m.Screen
	p.nav = platform.Navigator(m.Navigator)
	p.scroll = platform.ScrollState{X: m.Scroll.X, Y: m.Scroll.Y, ScrollWidth: m.Scroll.Width, ScrollHeight: m.Scroll.Height}
}

// run decodes bridge reports and dispatches them one at a time.
func (p *Page) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			return
		case payload := <-p.inbox:
			p.deliver(payload)
		}
	}
}

func (p *Page) deliver(payload string) {
	ev, state, err := Decode(payload)
	p.mu.Lock()
	if state.Viewport != nil {
		p.viewport = *state.Viewport
	}
	if state.Scroll != nil {
		p.scroll = *state.Scroll
	}
	fns := p.listeners.Snapshot()
	p.mu.Unlock()

	if err != nil {
		p.log.Debug("bad bridge message", zap.Error(err))
		return
	}
	for _, fn := range fns {
		fn(ev)
	}
}

// Close shuts the browser down and waits for the dispatcher to stop.
func (p *Page) Close() {
	p.cancel()
	<-p.done
}

// Done is closed when the tab goes away, e.g. the user closed the window.
func (p *Page) Done() <-chan struct{} { return p.done }

// Screenshot captures the full page as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	runCtx, cancel := mergeCancel(p.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// mergeCancel derives from the tab context (chromedp needs it) and also
// stops when ctx is done.
func mergeCancel(tab, ctx context.Context) (context.Context, context.CancelFunc) {
	out, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(ctx, cancel)
	return out, func() {
		stop()
		cancel()
	}
}

func (p *Page) Location() platform.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loc
}

func (p *Page) Viewport() platform.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

func (p *Page) Screen() platform.Screen {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screen
}

func (p *Page) Navigator() platform.Navigator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nav
}

// Scroll returns the scroll state reported with the most recent event.
func (p *Page) Scroll() platform.ScrollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scroll
}

// ComputedStyle returns the style captured when the event was dispatched.
func (p *Page) ComputedStyle(n dom.Node, pseudo string) (dom.Style, error) {
	return computedStyle(n, pseudo)
}

// BoundingRect returns the box captured when the event was dispatched.
func (p *Page) BoundingRect(n dom.Node) (*dom.Rect, error) {
	return boundingRect(n)
}

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

// Download writes data to the configured download directory.
func (p *Page) Download(name string, data []byte) (string, error) {
	return platform.SaveDownload(p.opts.DownloadDir, name, data)
}
