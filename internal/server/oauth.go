package server

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// successPage is shown in the browser once the code exchange completes, so the
// user knows to come back to the terminal.
const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Login Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; }
        .card { text-align: center; background: #181818; color: #fff; padding: 2.5rem 3rem;
                border-radius: 12px; }
        h1 { color: #1DB954; margin: 0 0 0.75rem 0; }
        p { color: #b3b3b3; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>&#10003; Login Successful</h1>
        <p>PodSpot is authorized. You can close this tab and return to the terminal.</p>
    </div>
</body>
</html>
`

// OAuthResult is the terminal outcome of one authorization attempt: a token,
// or the error that stopped it.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the /callback leg of the authorization code flow.
// Exactly one callback is honored per handler; the outcome is delivered on the
// channel returned by [OAuthHandler.Result].
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	deliver sync.Once

	mu      sync.Mutex
	claimed bool
}

// NewOAuthHandler wires a callback handler to the given OAuth2 config. The
// state token must match the one baked into the authorization URL.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// claim marks the callback as consumed; only the first caller wins.
func (h *OAuthHandler) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.claimed {
		return false
	}
	h.claimed = true
	return true
}

// ServeHTTP validates the returned state, exchanges the authorization code for
// tokens, and delivers the result. Repeat callbacks get a 400.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.claim() {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.send(OAuthResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		// Spotify reports denial via error / error_description
		h.send(OAuthResult{err: fmt.Errorf("authorization failed: %s - %s",
			query.Get("error"), query.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *OAuthHandler) send(result OAuthResult) {
	h.deliver.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result returns the channel the flow outcome is delivered on. It receives
// exactly one value and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
