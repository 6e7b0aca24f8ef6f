package mercedesme

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/httpclient"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/token"
)

// ErrAuthorizationPending is returned while the account has no usable token.
var ErrAuthorizationPending = errors.New("mercedesme: authorization pending")

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AccountHandler holds the OAuth token of a Mercedes me developer account.
type AccountHandler struct {
	thing     thing.Thing
	uid       string
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	tokens    token.Store
	endpoints Endpoints
	client    *httpclient.BaseClient
	logger    *zap.Logger
	now       func() time.Time

	cfg      AccountConfig
	server   *CallbackServer
	cancel   context.CancelFunc
	job      scheduler.Job
	tokenMu  sync.Mutex
	configMu sync.RWMutex
}

// NewAccountHandler builds account bridge handler.
func NewAccountHandler(t thing.Thing, callback thing.Callback, sched *scheduler.Scheduler, tokens token.Store,
	endpoints Endpoints, doer httpclient.HTTPDoer, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		thing:     t,
		uid:       t.UID.String(),
		callback:  callback,
		scheduler: sched,
		tokens:    tokens,
		endpoints: endpoints,
		client:    httpclient.NewBaseClient("", doer),
		logger:    logger,
		now:       time.Now,
	}
}

// Initialize validates config, starts the callback server and checks the stored token.
func (a *AccountHandler) Initialize(ctx context.Context) {
	cfg := DefaultAccountConfig()
	if err := thing.DecodeConfig(a.thing.Config, &cfg); err != nil {
		a.callback.UpdateStatus(a.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		a.callback.UpdateStatus(a.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	a.configMu.Lock()
	a.cfg = cfg
	a.configMu.Unlock()

	server := NewCallbackServer(a, a.logger)
	if err := server.Start(fmt.Sprintf(":%d", cfg.CallbackPort)); err != nil {
		a.callback.UpdateStatus(a.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	a.server = server

	checkCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.job = a.scheduler.Every(a.uid, cfg.Interval(), func() { a.checkToken(checkCtx) })
}

// Dispose stops the token check and the callback server.
func (a *AccountHandler) Dispose() {
	if a.job != nil {
		a.job.Cancel()
		a.job = nil
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("callback server shutdown", zap.Error(err))
		}
		a.server = nil
	}
}

// HandleCommand is a no-op, the account has no channels.
func (a *AccountHandler) HandleCommand(context.Context, thing.ChannelUID, thing.Command) {}

// Config returns the decoded account configuration.
func (a *AccountHandler) Config() AccountConfig {
	a.configMu.RLock()
	defer a.configMu.RUnlock()
	return a.cfg
}

func (a *AccountHandler) tokenKey() string {
	return BindingID + ":" + a.Config().ClientID
}

func (a *AccountHandler) checkToken(ctx context.Context) {
	if _, err := a.AccessToken(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrAuthorizationPending) {
			a.callback.UpdateStatus(a.uid, thing.StatusOffline, thing.DetailConfigurationPending,
				"authorize at "+a.Config().CallbackURL())
			return
		}
		a.logger.Warn("token check failed", zap.Error(err))
		a.callback.UpdateStatus(a.uid, thing.StatusOffline, thing.DetailCommunicationError, err.Error())
		return
	}
	a.callback.UpdateStatus(a.uid, thing.StatusOnline, thing.DetailNone, "")
}

// AuthorizationURL is the vendor login link served by the callback page.
func (a *AccountHandler) AuthorizationURL() string {
	cfg := a.Config()
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {cfg.ClientID},
		"redirect_uri":  {cfg.CallbackURL()},
		"scope":         {cfg.Scope()},
	}
	return a.endpoints.Authorize + "?" + q.Encode()
}

// AccessToken returns a valid access token, refreshing it when expired.
func (a *AccountHandler) AccessToken(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()
	t, err := a.tokens.Get(ctx, a.tokenKey())
	if errors.Is(err, token.ErrNoToken) {
		return "", ErrAuthorizationPending
	}
	if err != nil {
		return "", err
	}
	if t.Valid(a.now()) {
		return t.AccessToken, nil
	}
	if t.RefreshToken == "" {
		return "", ErrAuthorizationPending
	}
	fresh, err := a.requestToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {t.RefreshToken},
	})
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = t.RefreshToken
	}
	if err := a.tokens.Save(ctx, a.tokenKey(), fresh); err != nil {
		return "", err
	}
	a.logger.Info("token refreshed", zap.Time("expiry", fresh.Expiry))
	return fresh.AccessToken, nil
}

// Exchange trades an authorization code for a token and brings the account online.
func (a *AccountHandler) Exchange(ctx context.Context, code string) error {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()
	fresh, err := a.requestToken(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {a.Config().CallbackURL()},
	})
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	if err := a.tokens.Save(ctx, a.tokenKey(), fresh); err != nil {
		return err
	}
	a.logger.Info("authorization completed", zap.Time("expiry", fresh.Expiry))
	a.callback.UpdateStatus(a.uid, thing.StatusOnline, thing.DetailNone, "")
	return nil
}

func (a *AccountHandler) requestToken(ctx context.Context, form url.Values) (token.Token, error) {
	cfg := a.Config()
	basic := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
	resp, err := a.client.PostForm(ctx, a.endpoints.Token, form, map[string]string{
		"Authorization": "Basic " + basic,
		"Accept":        httpclient.ContentTypeJSON,
	})
	if err != nil {
		return token.Token{}, err
	}
	if err := resp.Err(form.Get("grant_type")); err != nil {
		return token.Token{}, err
	}
	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return token.Token{}, fmt.Errorf("decode token: %w", err)
	}
	if tr.AccessToken == "" {
		return token.Token{}, errors.New("empty access token")
	}
	return token.Token{
		TokenType:    tr.TokenType,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Expiry:       token.ExpiryFor(a.now(), tr.AccessToken, tr.ExpiresIn),
	}, nil
}

// CallbackServer receives the OAuth redirect of one account.
type CallbackServer struct {
	account *AccountHandler
	logger  *zap.Logger
	srv     *http.Server
	addr    net.Addr
}

// NewCallbackServer builds callback server for account.
func NewCallbackServer(account *AccountHandler, logger *zap.Logger) *CallbackServer {
	return &CallbackServer{account: account, logger: logger}
}

// Handler returns the HTTP handler serving the callback path.
func (s *CallbackServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	return mux
}

// Start listens on addr and serves in the background.
func (s *CallbackServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("callback server: %w", err)
	}
	s.addr = ln.Addr()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("callback server listening", zap.String("addr", s.addr.String()))
	return nil
}

// Addr returns the listening address after Start.
func (s *CallbackServer) Addr() net.Addr {
	return s.addr
}

// Shutdown stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	code := r.URL.Query().Get(ParamCode)
	if code == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := authorizePage.Execute(w, s.account.AuthorizationURL()); err != nil {
			s.logger.Warn("render authorization page", zap.Error(err))
		}
		return
	}
	w.Header().Set("Content-Type", httpclient.ContentTypeJSON)
	if err := s.account.Exchange(r.Context(), code); err != nil {
		s.logger.Warn("code exchange failed", zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
