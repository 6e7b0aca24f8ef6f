package mybmw

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/httpclient"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/token"
)

// ErrUnsupportedRegion is returned for regions without a password login flow.
var ErrUnsupportedRegion = errors.New("mybmw: token flow not supported for region")

// Proxy authorizes against the MyBMW API and performs vehicle requests.
type Proxy struct {
	cfg        AccountConfig
	server     string
	api        *httpclient.BaseClient
	noRedirect *httpclient.BaseClient
	tokens     token.Store
	zone       *time.Location
	logger     *zap.Logger
	now        func() time.Time

	mu sync.Mutex
}

// ProxyOption customizes a Proxy.
type ProxyOption func(*Proxy)

// WithServer overrides the API base URL.
func WithServer(server string) ProxyOption {
	return func(p *Proxy) { p.server = strings.TrimRight(server, "/") }
}

// WithClients overrides the HTTP clients.
func WithClients(api, noRedirect httpclient.HTTPDoer) ProxyOption {
	return func(p *Proxy) {
		p.api = httpclient.NewBaseClient("", api)
		p.noRedirect = httpclient.NewBaseClient("", noRedirect)
	}
}

// NewProxy builds proxy. zone is used for the apptimezone parameter.
func NewProxy(cfg AccountConfig, tokens token.Store, zone *time.Location, logger *zap.Logger, opts ...ProxyOption) *Proxy {
	if zone == nil {
		zone = time.Local
	}
	p := &Proxy{
		cfg:        cfg,
		server:     "https://" + EadraxServers[cfg.Region],
		api:        httpclient.NewBaseClient("", httpclient.NewDefaultHTTPClient(30*time.Second)),
		noRedirect: httpclient.NewBaseClient("", httpclient.NewNoRedirectHTTPClient(30*time.Second)),
		tokens:     tokens,
		zone:       zone,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Proxy) tokenKey() string {
	return BindingID + ":" + p.cfg.Region + ":" + p.cfg.UserName
}

// Token returns a valid token, updating it when expired. If the update fails the previous
// token is returned unchanged.
func (p *Proxy) Token(ctx context.Context) token.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, err := p.tokens.Get(ctx, p.tokenKey())
	if err != nil && !errors.Is(err, token.ErrNoToken) {
		p.logger.Warn("failed to load token", zap.Error(err))
	}
	if t.Valid(p.now()) {
		return t
	}
	fresh, err := p.updateToken(ctx)
	if err != nil {
		p.logger.Warn("authorization failed", zap.Error(err))
		return t
	}
	if err := p.tokens.Save(ctx, p.tokenKey(), fresh); err != nil {
		p.logger.Warn("failed to store token", zap.Error(err))
	}
	p.logger.Info("token updated", zap.Time("expiry", fresh.Expiry))
	return fresh
}

// UpdateToken runs the login flow and stores the token.
func (p *Proxy) UpdateToken(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fresh, err := p.updateToken(ctx)
	if err != nil {
		return err
	}
	return p.tokens.Save(ctx, p.tokenKey(), fresh)
}

func (p *Proxy) updateToken(ctx context.Context) (token.Token, error) {
	apimKey, ok := APIMKeys[p.cfg.Region]
	if !ok {
		return token.Token{}, fmt.Errorf("%w %s", ErrUnsupportedRegion, p.cfg.Region)
	}

	// Step 1: query OAuth parameters.
	resp, err := p.api.Get(ctx, p.server+APIOAuthConfig, nil, map[string]string{
		HeaderAPIMKey:    apimKey,
		HeaderXUserAgent: UserAgents[BrandBMW],
	})
	if err != nil {
		return token.Token{}, fmt.Errorf("oauth config: %w", err)
	}
	if err := resp.Err(""); err != nil {
		return token.Token{}, fmt.Errorf("oauth config: %w", err)
	}
	var aqr AuthQueryResponse
	if err := json.Unmarshal(resp.Body, &aqr); err != nil {
		return token.Token{}, fmt.Errorf("decode oauth config: %w", err)
	}

	verifier, err := randomLetters(verifierLength)
	if err != nil {
		return token.Token{}, err
	}
	codeVerifier := base64.RawURLEncoding.EncodeToString([]byte(verifier))
	stateRaw, err := randomLetters(stateLength)
	if err != nil {
		return token.Token{}, err
	}
	base := url.Values{
		"client_id":             {aqr.ClientID},
		"response_type":         {"code"},
		"redirect_uri":          {aqr.ReturnURL},
		"state":                 {base64.RawURLEncoding.EncodeToString([]byte(stateRaw))},
		"nonce":                 {LoginNonce},
		"scope":                 {strings.Join(aqr.Scopes, " ")},
		"code_challenge":        {CodeChallenge(codeVerifier)},
		"code_challenge_method": {codeChallengeS256},
	}
	authURL := aqr.GCDMBaseURL + OAuthEndpoint

	// Step 2: login with user name and password.
	login := cloneValues(base)
	login.Set("grant_type", AuthorizationCode)
	login.Set("username", p.cfg.UserName)
	login.Set("password", p.cfg.Password)
	resp, err = p.api.PostForm(ctx, authURL, login, nil)
	if err != nil {
		return token.Token{}, fmt.Errorf("login: %w", err)
	}
	if err := resp.Err(""); err != nil {
		return token.Token{}, fmt.Errorf("login: %w", err)
	}
	authCode := AuthCodeFromBody(string(resp.Body))
	if authCode == "" {
		return token.Token{}, errors.New("login: no authorization in response")
	}

	// Step 3: exchange the authorization for a code, redirect not followed.
	authorize := cloneValues(base)
	authorize.Set("authorization", authCode)
	resp, err = p.noRedirect.PostForm(ctx, authURL, authorize, nil)
	if err != nil {
		return token.Token{}, fmt.Errorf("authorize: %w", err)
	}
	code := CodeFromURL(resp.Header.Get("Location"))
	if code == "" {
		return token.Token{}, fmt.Errorf("authorize: no code in redirect (status %d)", resp.StatusCode)
	}

	// Step 4: request the token.
	basic := base64.URLEncoding.EncodeToString([]byte(aqr.ClientID + ":" + aqr.ClientSecret))
	resp, err = p.api.PostForm(ctx, aqr.TokenEndpoint, url.Values{
		"code":          {code},
		"code_verifier": {codeVerifier},
		"redirect_uri":  {aqr.ReturnURL},
		"grant_type":    {AuthorizationCode},
	}, map[string]string{"Authorization": "Basic " + basic})
	if err != nil {
		return token.Token{}, fmt.Errorf("token: %w", err)
	}
	if err := resp.Err(""); err != nil {
		return token.Token{}, fmt.Errorf("token: %w", err)
	}
	var ar AuthResponse
	if err := json.Unmarshal(resp.Body, &ar); err != nil {
		return token.Token{}, fmt.Errorf("decode token: %w", err)
	}
	if ar.AccessToken == "" {
		return token.Token{}, errors.New("token: empty access token")
	}
	return token.Token{
		TokenType:   ar.TokenType,
		AccessToken: ar.AccessToken,
		Expiry:      p.now().Add(time.Duration(ar.ExpiresIn) * time.Second),
	}, nil
}

// Get performs an authorized API call for brand.
func (p *Proxy) Get(ctx context.Context, path string, query url.Values, brand string) ([]byte, error) {
	agent, ok := UserAgents[strings.ToLower(brand)]
	if !ok {
		return nil, fmt.Errorf("mybmw: unknown brand %q", brand)
	}
	t := p.Token(ctx)
	resp, err := p.api.Do(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   p.server + path,
		Query:  query,
		Header: map[string]string{
			"Authorization":   t.BearerHeader(),
			HeaderXUserAgent:  agent,
			"Accept-Language": p.cfg.Language,
			"Accept":          httpclient.ContentTypeJSON,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(query.Encode()); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// RequestVehicles lists the vehicles of one brand.
func (p *Proxy) RequestVehicles(ctx context.Context, brand string) ([]Vehicle, error) {
	body, err := p.Get(ctx, APIVehicles, p.vehicleParams(), brand)
	if err != nil {
		return nil, err
	}
	return ParseVehicles(body)
}

func (p *Proxy) vehicleParams() url.Values {
	now := p.now()
	return url.Values{
		"tireGuardMode": {"ENABLED"},
		"appDateTime":   {strconv.FormatInt(now.UnixMilli(), 10)},
		"apptimezone":   {strconv.Itoa(OffsetMinutes(now, p.zone))},
	}
}

// OffsetMinutes returns the UTC offset of zone at now in minutes.
func OffsetMinutes(now time.Time, zone *time.Location) int {
	_, offset := now.In(zone).Zone()
	return offset / 60
}

// CodeChallenge returns base64url(sha256(verifier)) without padding.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// AuthCodeFromBody extracts the "authorization" value from the login response.
func AuthCodeFromBody(body string) string {
	for _, part := range strings.Split(body, "&") {
		if !strings.HasPrefix(part, "authorization") {
			continue
		}
		_, value, ok := strings.Cut(part, "=")
		if !ok {
			return ""
		}
		value, _, _ = strings.Cut(value, `"`)
		return value
	}
	return ""
}

// CodeFromURL extracts the value of the first query key ending in "code".
func CodeFromURL(location string) string {
	values, err := url.ParseQuery(location)
	if err != nil && len(values) == 0 {
		return ""
	}
	for key, v := range values {
		if strings.HasSuffix(key, "code") && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func randomLetters(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(26))
		if err != nil {
			return "", err
		}
		b[i] = byte('a' + idx.Int64())
	}
	return string(b), nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
