package drive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/drive-assess/drive-assess/internal/tokenfile"
)

// ScopeDrive grants full read/write access to the user's Drive, required
// for creating folders and copying items.
const ScopeDrive = "https://www.googleapis.com/auth/drive"

// stateTokenBytes is the size of the random state echoed back by Google.
const stateTokenBytes = 16

// loopbackTimeout bounds request headers on the loopback listener and its
// shutdown.
const loopbackTimeout = 5 * time.Second

// redirectResult is what the consent redirect delivered: a code or an error.
type redirectResult struct {
	code string
	err  error
}

// LoadOAuthConfig parses a Google "installed application" client secrets
// file (credentials.json). Failures wrap ErrAuth.
func LoadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading client secrets %s: %w", ErrAuth, credentialsPath, err)
	}

	cfg, err := google.ConfigFromJSON(data, ScopeDrive)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing client secrets %s: %w", ErrAuth, credentialsPath, err)
	}

	return cfg, nil
}

// Login signs in with Google's installed-app loopback flow. The browser is
// sent to the consent page with a PKCE challenge and redirected back to a
// listener on 127.0.0.1; the code it carries is exchanged for a token that is
// saved at tokenPath. If openURL fails the consent URL is printed to stderr.
func Login(
	ctx context.Context,
	credentialsPath, tokenPath string,
	openURL func(string) error,
	logger *slog.Logger,
) (TokenSource, error) {
	cfg, err := LoadOAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}

	persistRefreshedTokens(cfg, tokenPath, "", logger)

	return doAuthCodeLogin(ctx, tokenPath, cfg, openURL, logger)
}

// doAuthCodeLogin runs the consent flow against cfg, which tests point at a
// local token endpoint.
func doAuthCodeLogin(
	ctx context.Context,
	tokenPath string,
	cfg *oauth2.Config,
	openURL func(string) error,
	logger *slog.Logger,
) (TokenSource, error) {
	logger.Info("starting browser consent flow",
		slog.String("path", tokenPath),
	)

	lb, err := listenLoopback(ctx, logger)
	if err != nil {
		return nil, err
	}

	defer lb.close()

	cfg.RedirectURL = lb.redirectURL()
	verifier := oauth2.GenerateVerifier()

	// ApprovalForce makes Google return a refresh token even on re-consent.
	authURL := cfg.AuthCodeURL(lb.state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	logger.Info("opening browser for consent")

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL", slog.String("error", openErr.Error()))
		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}

	code, err := lb.wait(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("received authorization code, exchanging for token")

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %w", ErrAuth, err)
	}

	if saveErr := tokenfile.Save(tokenPath, &tokenfile.File{Token: tok}); saveErr != nil {
		return nil, fmt.Errorf("drive: saving token: %w", saveErr)
	}

	logger.Info("login successful",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
	)

	return &tokenBridge{src: cfg.TokenSource(ctx, tok), logger: logger}, nil
}

// loopback receives Google's consent redirect. Installed-app clients may
// redirect to any port on 127.0.0.1, so the listener takes an ephemeral one.
type loopback struct {
	srv    *http.Server
	port   int
	state  string
	result chan redirectResult
	logger *slog.Logger
}

// listenLoopback binds 127.0.0.1:0, picks a fresh state and starts serving.
func listenLoopback(ctx context.Context, logger *slog.Logger) (*loopback, error) {
	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("%w: generating state: %w", ErrAuth, err)
	}

	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("%w: binding loopback listener: %w", ErrAuth, err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, fmt.Errorf("%w: loopback address is not TCP", ErrAuth)
	}

	lb := &loopback{
		port:   tcpAddr.Port,
		state:  state,
		result: make(chan redirectResult, 1),
		logger: logger,
	}
	lb.srv = &http.Server{Handler: lb, ReadHeaderTimeout: loopbackTimeout}

	logger.Info("loopback listener ready", slog.Int("port", lb.port))

	go func() {
		if serveErr := lb.srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			lb.deliver(redirectResult{err: fmt.Errorf("%w: loopback server: %w", ErrAuth, serveErr)})
		}
	}()

	return lb, nil
}

func (lb *loopback) redirectURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", lb.port)
}

// deliver keeps only the first result; favicon requests and reloads are dropped.
func (lb *loopback) deliver(res redirectResult) {
	select {
	case lb.result <- res:
	default:
	}
}

// ServeHTTP handles the redirect Google sends after the consent screen.
func (lb *loopback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()

	switch {
	case q.Get("state") != lb.state:
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		lb.deliver(redirectResult{err: fmt.Errorf("%w: consent redirect state mismatch", ErrAuth)})
	case q.Get("error") != "":
		http.Error(w, "Authorization failed: "+q.Get("error"), http.StatusBadRequest)
		lb.deliver(redirectResult{err: fmt.Errorf("%w: consent refused: %s", ErrAuth, q.Get("error"))})
	case q.Get("code") == "":
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		lb.deliver(redirectResult{err: fmt.Errorf("%w: redirect missing authorization code", ErrAuth)})
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>drive-assess is authorized</h1>"+
			"<p>You can close this window and return to the terminal.</p></body></html>")
		lb.deliver(redirectResult{code: q.Get("code")})
	}
}

// wait blocks until the redirect arrives or ctx is done.
func (lb *loopback) wait(ctx context.Context) (string, error) {
	select {
	case res := <-lb.result:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: waiting for consent: %w", ErrAuth, ctx.Err())
	}
}

func (lb *loopback) close() {
	ctx, cancel := context.WithTimeout(context.Background(), loopbackTimeout)
	defer cancel()

	if err := lb.srv.Shutdown(ctx); err != nil {
		lb.logger.Warn("loopback shutdown error", slog.String("error", err.Error()))
	}
}

// newState returns a random hex string for the state parameter.
func newState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// TokenSourceFromPath loads the cached token at tokenPath and returns a
// TokenSource with silent refresh. Every refreshed token is written back to
// tokenPath. Returns ErrNotLoggedIn if no token file exists.
//
// The returned TokenSource binds ctx to the underlying oauth2 token source;
// ctx must outlive it.
func TokenSourceFromPath(ctx context.Context, credentialsPath, tokenPath string, logger *slog.Logger) (TokenSource, error) {
	tf, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	if tf == nil {
		return nil, ErrNotLoggedIn
	}

	cfg, err := LoadOAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}

	expired := !tf.Token.Expiry.IsZero() && tf.Token.Expiry.Before(time.Now())
	logger.Info("loaded saved token",
		slog.String("path", tokenPath),
		slog.Time("expiry", tf.Token.Expiry),
		slog.Bool("expired", expired),
	)

	persistRefreshedTokens(cfg, tokenPath, tf.Account, logger)

	return &tokenBridge{src: cfg.TokenSource(ctx, tf.Token), logger: logger}, nil
}

// Logout removes the saved token file at the given path.
// Returns nil if the token file does not exist (already logged out).
func Logout(tokenPath string, logger *slog.Logger) error {
	err := os.Remove(tokenPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("logout: no token file to remove (already logged out)",
			slog.String("path", tokenPath),
		)

		return nil
	}

	if err != nil {
		return fmt.Errorf("drive: removing token: %w", err)
	}

	logger.Info("logout: removed token file", slog.String("path", tokenPath))

	return nil
}

// persistRefreshedTokens wires OnTokenChange so silent refreshes are written
// to tokenPath. account is captured so it survives refreshes.
func persistRefreshedTokens(cfg *oauth2.Config, tokenPath, account string, logger *slog.Logger) {
	// Called by ReuseTokenSource after each silent refresh, outside its mutex.
	cfg.OnTokenChange = func(tok *oauth2.Token) {
		if err := tokenfile.Save(tokenPath, &tokenfile.File{Token: tok, Account: account}); err != nil {
			logger.Warn("failed to persist refreshed token",
				slog.String("path", tokenPath),
				slog.String("error", err.Error()),
			)

			return
		}

		logger.Info("persisted refreshed token",
			slog.String("path", tokenPath),
			slog.Time("new_expiry", tok.Expiry),
		)
	}
}

// tokenBridge adapts oauth2.TokenSource to drive.TokenSource.
type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: refreshing token: %w", ErrAuth, err)
	}

	b.logger.Debug("token acquired",
		slog.Time("expiry", t.Expiry),
		slog.Bool("valid", t.Valid()),
	)

	return t.AccessToken, nil
}
