package scribd2pdf

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// DriverStrategy selects how a browser binary is obtained.
type DriverStrategy string

const (
	// DriverFixedPath uses a pre-installed browser binary or an already
	// running browser reachable at a control URL.
	DriverFixedPath DriverStrategy = "fixed"
	// DriverDynamic downloads a matching browser revision on first use.
	DriverDynamic DriverStrategy = "dynamic"
)

// DriverEnvironment describes the host the browser runs on. It is resolved
// by the caller (flags, environment, config); the factories never probe the
// filesystem to choose a strategy.
type DriverEnvironment struct {
	Strategy    DriverStrategy
	BrowserBin  string // DriverFixedPath: binary to launch
	ControlURL  string // DriverFixedPath: connect instead of launching
	Revision    int    // DriverDynamic: 0 uses rod's default revision
	DownloadDir string // DriverDynamic: "" uses rod's default directory
	NoSandbox   bool
	Headful     bool // show the browser window
	Stealth     bool
	Logger      *zap.Logger
}

// Validate checks that the descriptor names everything its strategy needs.
func (e DriverEnvironment) Validate() error {
	switch e.Strategy {
	case DriverFixedPath:
		if e.BrowserBin == "" && e.ControlURL == "" {
			return fmt.Errorf("%w: fixed strategy needs a browser binary or a control URL", ErrInvalidStrategy)
		}
	case DriverDynamic:
		if e.Revision < 0 {
			return fmt.Errorf("%w: negative revision %d", ErrInvalidStrategy, e.Revision)
		}
	default:
		return fmt.Errorf("%w: %q (must be fixed or dynamic)", ErrInvalidStrategy, e.Strategy)
	}
	return nil
}

// ParseDriverStrategy parses "fixed" or "dynamic" (case-insensitive).
func ParseDriverStrategy(s string) (DriverStrategy, error) {
	switch DriverStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case DriverFixedPath:
		return DriverFixedPath, nil
	case DriverDynamic:
		return DriverDynamic, nil
	default:
		return "", fmt.Errorf("%w: %q (must be fixed or dynamic)", ErrInvalidStrategy, s)
	}
}

// NewSessionFactory returns the factory for env.Strategy.
func NewSessionFactory(env DriverEnvironment) (SessionFactory, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	if env.Strategy == DriverDynamic {
		return &DynamicFactory{env: env}, nil
	}
	return &FixedPathFactory{env: env, dial: dialControlURL}, nil
}

// FixedPathFactory launches the configured binary for every session, or,
// with a control URL, opens an incognito context per session on a single
// shared connection. A connection that stops answering is dropped and the
// next session dials again.
type FixedPathFactory struct {
	env  DriverEnvironment
	dial func(ctx context.Context, controlURL string) (*rod.Browser, error)

	mu     sync.Mutex
	root   *rod.Browser
	cancel context.CancelFunc // ends root's connection
}

// NewSession implements SessionFactory.
func (f *FixedPathFactory) NewSession(ctx context.Context) (Session, error) {
	if f.env.ControlURL != "" {
		return f.remoteSession(ctx)
	}
	return launchSession(ctx, f.env, f.env.BrowserBin)
}

// remoteSession isolates the session in a fresh incognito context.
func (f *FixedPathFactory) remoteSession(ctx context.Context) (Session, error) {
	root, err := f.connect()
	if err != nil {
		return nil, err
	}

	incognito, err := root.Context(ctx).Incognito()
	if err != nil {
		if ctx.Err() == nil {
			f.forget(root)
		}
		return nil, fmt.Errorf("creating incognito context: %w", err)
	}
	// Detach the request context so Close still works after cancellation.
	incognito = incognito.Context(context.Background())

	page, err := newPage(incognito, f.env.Stealth)
	if err != nil {
		_ = incognito.Close()
		return nil, err
	}
	return &rodSession{browser: incognito, page: page, log: f.env.Logger}, nil
}

// connect lazily dials the control URL and reuses the connection.
func (f *FixedPathFactory) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.root != nil {
		return f.root, nil
	}
	connCtx, cancel := context.WithCancel(context.Background())
	b, err := f.dial(connCtx, f.env.ControlURL)
	if err != nil {
		cancel()
		return nil, err
	}
	f.root, f.cancel = b, cancel
	f.env.Logger.Info("connected to browser", zap.String("control_url", f.env.ControlURL))
	return b, nil
}

// forget drops root if it is still the shared connection. The remote
// browser itself is left running.
func (f *FixedPathFactory) forget(root *rod.Browser) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.root != root {
		return
	}
	f.cancel()
	f.root, f.cancel = nil, nil
	f.env.Logger.Warn("dropped browser connection", zap.String("control_url", f.env.ControlURL))
}

// dialControlURL resolves controlURL to a DevTools endpoint and connects.
// The connection lives until ctx ends.
func dialControlURL(ctx context.Context, controlURL string) (*rod.Browser, error) {
	u, err := launcher.ResolveURL(controlURL)
	if err != nil {
		return nil, fmt.Errorf("resolving control URL %q: %w", controlURL, err)
	}
	b := rod.New().Context(ctx).ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", u, err)
	}
	return b, nil
}

// DynamicFactory resolves a browser binary through rod's downloader the first
// time it is needed. The resolved path is shared by every DynamicFactory in
// the process with the same revision and download directory.
type DynamicFactory struct {
	env DriverEnvironment
}

// NewSession implements SessionFactory.
func (f *DynamicFactory) NewSession(ctx context.Context) (Session, error) {
	bin, err := resolveDynamicBinary(ctx, f.env)
	if err != nil {
		return nil, err
	}
	return launchSession(ctx, f.env, bin)
}

// Resolve downloads the browser if needed and returns its path.
func (f *DynamicFactory) Resolve(ctx context.Context) (string, error) {
	return resolveDynamicBinary(ctx, f.env)
}

// dynamicBinaries caches resolved binary paths by revision and directory.
var dynamicBinaries = struct {
	sync.Mutex
	paths map[string]string
}{paths: map[string]string{}}

func resolveDynamicBinary(ctx context.Context, env DriverEnvironment) (string, error) {
	key := fmt.Sprintf("%d|%s", env.Revision, env.DownloadDir)

	dynamicBinaries.Lock()
	defer dynamicBinaries.Unlock()
	if p, ok := dynamicBinaries.paths[key]; ok {
		return p, nil
	}

	b := launcher.NewBrowser()
	b.Context = ctx
	b.Logger = zapPrintln{log: env.Logger}
	if env.Revision > 0 {
		b.Revision = env.Revision
	}
	if env.DownloadDir != "" {
		b.RootDir = env.DownloadDir
	}

	p, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("acquiring browser revision %d: %w", b.Revision, err)
	}
	dynamicBinaries.paths[key] = p
	env.Logger.Info("browser ready", zap.String("path", p), zap.Int("revision", b.Revision))
	return p, nil
}

// launchSession starts a dedicated browser process for one session.
func launchSession(ctx context.Context, env DriverEnvironment, bin string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := newLauncher(env, bin)
	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("launching %s: %w", bin, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		abortLaunch(l)
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	page, err := newPage(b, env.Stealth)
	if err != nil {
		_ = b.Close()
		abortLaunch(l)
		return nil, err
	}

	env.Logger.Debug("browser launched", zap.String("bin", bin), zap.Int("pid", l.PID()))
	return &rodSession{browser: b, page: page, launcher: l, log: env.Logger}, nil
}

// abortLaunch kills a started browser and removes its profile directory.
func abortLaunch(l *launcher.Launcher) {
	l.Kill()
	l.Cleanup()
}

// newLauncher configures the browser flags used for printing.
func newLauncher(env DriverEnvironment, bin string) *launcher.Launcher {
	l := launcher.New().
		Bin(bin).
		NoSandbox(env.NoSandbox).
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("disable-dev-shm-usage"))

	if env.Headful {
		l = l.Headless(false)
	} else {
		l = l.Set(flags.Headless, "new")
	}
	return l
}

// newPage opens a blank page, optionally with the stealth evasions applied.
func newPage(b *rod.Browser, useStealth bool) (*rod.Page, error) {
	if useStealth {
		p, err := stealth.Page(b)
		if err != nil {
			return nil, fmt.Errorf("creating stealth page: %w", err)
		}
		return p, nil
	}
	p, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	return p, nil
}

// zapPrintln adapts a zap logger to rod's utils.Logger.
type zapPrintln struct {
	log *zap.Logger
}

func (z zapPrintln) Println(vs ...interface{}) {
	z.log.Info(strings.TrimSpace(fmt.Sprintln(vs...)), zap.String("component", "launcher"))
}
