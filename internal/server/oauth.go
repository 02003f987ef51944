package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// OAuthResult is the outcome of one authorization attempt: a token on
// success, an error otherwise.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the Spotify redirect URI during the authorization-code
// flow. It accepts a single callback, verifies the CSRF state token, exchanges
// the code, and delivers the outcome on a channel the CLI blocks on.
type OAuthHandler struct {
	config   *oauth2.Config
	state    string
	results  chan OAuthResult
	sendOnce sync.Once

	mu       sync.Mutex
	consumed bool
}

// NewOAuthHandler creates a handler bound to the given OAuth2 config and
// state token. The state must come from a cryptographically random source.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

// Routes returns the path patterns this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP processes the redirect from Spotify's authorization page.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.consumed {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.consumed = true
	h.mu.Unlock()

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("state token mismatch")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		// Spotify reports denial through error/error_description params.
		h.Send(OAuthResult{err: fmt.Errorf("authorization denied: %s - %s",
			query.Get("error"), query.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(context.Background(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})
	h.renderSuccess(w)
}

// Send delivers the result exactly once; later calls are no-ops.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.sendOnce.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel the flow's outcome arrives on. It receives
// exactly one value and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

func (h *OAuthHandler) renderSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head>
    <title>soundstats</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; align-items: center;
               justify-content: center; height: 100vh; margin: 0; background: #121212; }
        main { text-align: center; color: #eee; }
        h1 { color: #1DB954; }
    </style>
</head>
<body>
    <main>
        <h1>Connected to Spotify</h1>
        <p>soundstats can now read your listening history.</p>
        <p>Close this tab and head back to the terminal.</p>
    </main>
</body>
</html>
`)
}
