// Ultimate Guitar implementation of [Driver] over a headless Chrome session.
//
// The site has no public API: login, playlist management and search all go
// through page navigation. Search results come from the JSON store the site
// embeds in the `.js-store` element.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/desertthunder/tabx/internal/models"
	"github.com/desertthunder/tabx/internal/shared"
)

const (
	ugBaseURL  = "https://www.ultimate-guitar.com"
	ugDomain   = ".ultimate-guitar.com"
	ugSignIn   = "/user/signin"
	ugLists    = "/user/playlists"
	ugUserMenu = ".js-header-user-menu"
)

// Result types the site sells or embeds rather than user submitted tabs.
var ugExcludedKinds = map[string]bool{
	"pro":      true,
	"official": true,
	"video":    true,
}

// UltimateGuitarOpts configures the browser session.
type UltimateGuitarOpts struct {
	Headless  bool
	Timeout   time.Duration
	UserAgent string
	BaseURL   string
	Logger    *log.Logger
}

// UltimateGuitarService drives ultimate-guitar.com through chromedp.
//
// The browser starts lazily on the first action and is released by Close.
type UltimateGuitarService struct {
	opts   UltimateGuitarOpts
	logger *log.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// contents holds the tab keys seen in each playlist during this session.
	contents map[string]map[string]bool
}

// NewUltimateGuitarService creates a driver; no browser is launched until needed.
func NewUltimateGuitarService(opts UltimateGuitarOpts) *UltimateGuitarService {
	if opts.BaseURL == "" {
		opts.BaseURL = ugBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &UltimateGuitarService{
		opts:     opts,
		logger:   logger.WithPrefix("ug"),
		contents: make(map[string]map[string]bool),
	}
}

func (s *UltimateGuitarService) Name() string {
	return "Ultimate Guitar"
}

func (s *UltimateGuitarService) start() error {
	if s.browserCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", s.opts.Headless))
	if s.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(s.logger.Debugf))
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("%w: failed to start browser: %v", shared.ErrDriver, err)
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.logger.Debug("browser started", "headless", s.opts.Headless)
	return nil
}

// Launch starts the browser without navigating anywhere.
func (s *UltimateGuitarService) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.start()
}

// run executes actions in the session tab, bounded by the action timeout and ctx.
func (s *UltimateGuitarService) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := s.start(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(s.browserCtx, s.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDriver, err)
	}
	return nil
}

// Close shuts the browser down. The driver may be reused afterwards.
func (s *UltimateGuitarService) Close() error {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.browserCtx, s.browserCancel, s.allocCancel = nil, nil, nil
	s.logger.Debug("browser closed")
	return nil
}

// Authenticate logs in with a session cookie when one is configured,
// otherwise with username and password through the sign-in form.
func (s *UltimateGuitarService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if raw := credentials["cookie"]; raw != "" {
		return s.cookieLogin(ctx, raw)
	}

	username, password := credentials["username"], credentials["password"]
	if username == "" || password == "" {
		return fmt.Errorf("%w: %w: username and password or cookie required", shared.ErrAuthFailed, shared.ErrMissingCredentials)
	}

	err := s.run(ctx,
		chromedp.Navigate(s.opts.BaseURL+ugSignIn),
		chromedp.WaitVisible(`input[name='username']`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name='username']`, username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name='password']`, password, chromedp.ByQuery),
		chromedp.Click(`button[type='submit']`, chromedp.ByQuery),
		chromedp.WaitVisible(ugUserMenu, chromedp.ByQuery),
	)
	if err != nil {
		msg := s.loginError(ctx)
		s.logger.Error("login failed", "user", username, "reason", msg)
		return fmt.Errorf("%w: %s: %v", shared.ErrAuthFailed, msg, err)
	}

	s.logger.Info("logged in", "user", username)
	return nil
}

func (s *UltimateGuitarService) cookieLogin(ctx context.Context, raw string) error {
	cookies := shared.SplitCookies(raw)
	if len(cookies) == 0 {
		return fmt.Errorf("%w: %w: empty cookie", shared.ErrAuthFailed, shared.ErrInvalidInput)
	}

	var loggedIn bool
	err := s.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				if err := network.SetCookie(c.Name, c.Value).WithDomain(ugDomain).WithPath("/").Do(ctx); err != nil {
					return fmt.Errorf("set cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
		chromedp.Navigate(s.opts.BaseURL+"/"),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`!!document.querySelector(%q)`, ugUserMenu), &loggedIn),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if !loggedIn {
		return fmt.Errorf("%w: session cookie rejected", shared.ErrAuthFailed)
	}

	s.logger.Info("logged in with session cookie", "cookies", len(cookies))
	return nil
}

func (s *UltimateGuitarService) loginError(ctx context.Context) string {
	var text string
	err := s.run(ctx, chromedp.Evaluate(
		`(document.querySelector('.error-message') || {}).textContent || ''`, &text,
	))
	if err != nil || strings.TrimSpace(text) == "" {
		return "unknown error"
	}
	return strings.TrimSpace(text)
}

type playlistEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

const listPlaylistsJS = `Array.from(document.querySelectorAll('.playlist-item, .user-playlist')).map(el => {
	const nameEl = el.querySelector('.playlist-name, .playlist-title') || el;
	const link = el.tagName === 'A' ? el : el.querySelector('a[href]');
	return {name: (nameEl.textContent || '').trim(), url: link ? link.href : ''};
}).filter(p => p.name)`

// Playlists lists the signed-in user's playlists.
func (s *UltimateGuitarService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	entries, err := s.playlistEntries(ctx)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(entries))
	for _, e := range entries {
		playlists = append(playlists, models.Playlist{ID: playlistID(e), Name: e.Name, URL: e.URL})
	}
	return playlists, nil
}

func (s *UltimateGuitarService) playlistEntries(ctx context.Context) ([]playlistEntry, error) {
	var entries []playlistEntry
	err := s.run(ctx,
		chromedp.Navigate(s.opts.BaseURL+ugLists),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(listPlaylistsJS, &entries),
	)
	return entries, err
}

const createPlaylistJS = `(() => {
	const btn = document.querySelector("a[href*='create'], .btn-create-playlist, .fa-plus, .icon-plus, [data-action='create']");
	if (!btn) return false;
	btn.click();
	return true;
})()`

// EnsurePlaylist resolves the playlist by name or creates it, then snapshots
// its current tabs so later adds can detect entries that are already present.
func (s *UltimateGuitarService) EnsurePlaylist(ctx context.Context, name, description string) (*models.PlaylistHandle, error) {
	entries, err := s.playlistEntries(ctx)
	if err != nil {
		return nil, err
	}

	entry, ok := findPlaylist(entries, name)
	if !ok {
		s.logger.Info("creating playlist", "name", name)
		if err := s.createPlaylist(ctx, name, description); err != nil {
			return nil, err
		}
		if entries, err = s.playlistEntries(ctx); err != nil {
			return nil, err
		}
		if entry, ok = findPlaylist(entries, name); !ok {
			return nil, fmt.Errorf("%w: playlist %q not listed after creation", shared.ErrDriver, name)
		}
	}

	handle := &models.PlaylistHandle{ID: playlistID(entry), Name: entry.Name, URL: entry.URL}
	if err := s.snapshot(ctx, handle); err != nil {
		return nil, err
	}
	return handle, nil
}

func (s *UltimateGuitarService) createPlaylist(ctx context.Context, name, description string) error {
	var clicked bool
	const nameField = `input[name='name'], input[placeholder*='name']`

	err := s.run(ctx,
		chromedp.Navigate(s.opts.BaseURL+ugLists),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(createPlaylistJS, &clicked),
	)
	if err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: create playlist control not found", shared.ErrDriver)
	}

	actions := []chromedp.Action{
		chromedp.WaitVisible(nameField, chromedp.ByQuery),
		chromedp.SendKeys(nameField, name, chromedp.ByQuery),
	}
	if description != "" {
		actions = append(actions, chromedp.Evaluate(setDescriptionJS(description), nil))
	}
	actions = append(actions,
		chromedp.Click(`button[type='submit'], .btn-save, .btn-create`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	)
	return s.run(ctx, actions...)
}

func setDescriptionJS(description string) string {
	quoted, _ := json.Marshal(description)
	return fmt.Sprintf(`(() => {
	const el = document.querySelector("textarea[name='description'], textarea[placeholder*='description']");
	if (el) { el.value = %s; el.dispatchEvent(new Event('input', {bubbles: true})); }
	return !!el;
})()`, quoted)
}

const playlistTabsJS = `Array.from(document.querySelectorAll("a[href*='/tab/']")).map(a => a.href)`

func (s *UltimateGuitarService) snapshot(ctx context.Context, handle *models.PlaylistHandle) error {
	seen := make(map[string]bool)
	if handle.URL != "" {
		var links []string
		err := s.run(ctx,
			chromedp.Navigate(handle.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(playlistTabsJS, &links),
		)
		if err != nil {
			return err
		}
		for _, l := range links {
			seen[tabKey(l)] = true
		}
	}

	s.contents[handle.ID] = seen
	s.logger.Debug("playlist snapshot", "playlist", handle.Name, "tabs", len(seen))
	return nil
}

// Search loads the title search page and decodes the embedded result store.
func (s *UltimateGuitarService) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	var raw string
	var ok bool
	err := s.run(ctx,
		chromedp.Navigate(SearchURL(s.opts.BaseURL, query)),
		chromedp.WaitReady(".js-store", chromedp.ByQuery),
		chromedp.AttributeValue(".js-store", "data-content", &raw, &ok, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: search page has no result store", shared.ErrDriver)
	}

	candidates, err := parseSearchStore(raw)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search", "query", query, "candidates", len(candidates))
	return candidates, nil
}

const addToPlaylistJS = `(async (name) => {
	const sleep = ms => new Promise(r => setTimeout(r, ms));
	const btn = document.querySelector('.js-add-to-playlist, .btn-add-playlist, [data-action*="playlist"]');
	if (!btn) return 'no_button';
	btn.click();
	for (let i = 0; i < 50; i++) {
		const options = Array.from(document.querySelectorAll('[data-playlist-name], .playlist-modal .playlist-item, .modal-playlist .playlist-item'));
		const opt = options.find(o => (o.dataset.playlistName || o.textContent || '').trim() === name);
		if (opt) {
			if (opt.classList.contains('active') || opt.getAttribute('aria-checked') === 'true') return 'already_present';
			opt.click();
			return 'added';
		}
		await sleep(100);
	}
	return 'no_playlist';
})(%s)`

// Add opens the tab page and picks the playlist from the add-to-playlist menu.
// Tabs seen in the session snapshot are reported present without any page action.
func (s *UltimateGuitarService) Add(ctx context.Context, playlist *models.PlaylistHandle, candidate models.Candidate) (models.AddResult, error) {
	if playlist == nil {
		return models.AddResultAdded, fmt.Errorf("%w: no playlist handle", shared.ErrDriver)
	}

	key := tabKey(candidate.URL)
	seen := s.contents[playlist.ID]
	if seen == nil {
		seen = make(map[string]bool)
		s.contents[playlist.ID] = seen
	}
	if seen[key] {
		return models.AddResultAlreadyPresent, nil
	}

	var outcome string
	err := s.run(ctx,
		chromedp.Navigate(candidate.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(addScript(playlist.Name), &outcome, awaitPromise),
	)
	if err != nil {
		return models.AddResultAdded, err
	}

	result, err := interpretAdd(outcome)
	if err != nil {
		return result, err
	}
	seen[key] = true
	return result, nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

func addScript(playlistName string) string {
	quoted, _ := json.Marshal(playlistName)
	return fmt.Sprintf(addToPlaylistJS, quoted)
}

func interpretAdd(outcome string) (models.AddResult, error) {
	switch outcome {
	case "added":
		return models.AddResultAdded, nil
	case "already_present":
		return models.AddResultAlreadyPresent, nil
	case "no_button":
		return models.AddResultAdded, fmt.Errorf("%w: add to playlist button not found", shared.ErrDriver)
	case "no_playlist":
		return models.AddResultAdded, fmt.Errorf("%w: playlist not offered in selection", shared.ErrDriver)
	default:
		return models.AddResultAdded, fmt.Errorf("%w: unexpected add outcome %q", shared.ErrDriver, outcome)
	}
}

// SearchURL builds the title search URL for a query.
func SearchURL(baseURL, query string) string {
	v := url.Values{}
	v.Set("search_type", "title")
	v.Set("value", strings.TrimSpace(query))
	return strings.TrimRight(baseURL, "/") + "/search.php?" + v.Encode()
}

type ugSearchResult struct {
	ID            json.RawMessage `json:"id"`
	SongName      string          `json:"song_name"`
	ArtistName    string          `json:"artist_name"`
	Type          string          `json:"type"`
	TabURL        string          `json:"tab_url"`
	MarketingType string          `json:"marketing_type"`
}

type ugStore struct {
	Store struct {
		Page struct {
			Data struct {
				Results []ugSearchResult `json:"results"`
			} `json:"data"`
		} `json:"page"`
	} `json:"store"`
}

// parseSearchStore decodes the `.js-store` payload into ranked candidates,
// dropping adverts and non-tab result types. Order is preserved.
func parseSearchStore(raw string) ([]models.Candidate, error) {
	var store ugStore
	if err := json.Unmarshal([]byte(raw), &store); err != nil {
		return nil, fmt.Errorf("%w: decode search store: %v", shared.ErrDriver, err)
	}

	results := store.Store.Page.Data.Results
	candidates := make([]models.Candidate, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if r.MarketingType != "" || r.TabURL == "" || ugExcludedKinds[strings.ToLower(r.Type)] {
			continue
		}
		key := tabKey(r.TabURL)
		if seen[key] {
			continue
		}
		seen[key] = true

		candidates = append(candidates, models.Candidate{
			ID:     strings.Trim(string(r.ID), `"`),
			Title:  r.SongName,
			Artist: r.ArtistName,
			URL:    r.TabURL,
			Kind:   r.Type,
		})
	}
	return candidates, nil
}

// tabKey identifies a tab page independent of host, query and trailing slash.
func tabKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Path == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return strings.ToLower(strings.TrimRight(u.Path, "/"))
}

func findPlaylist(entries []playlistEntry, name string) (playlistEntry, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, e := range entries {
		if strings.ToLower(strings.TrimSpace(e.Name)) == want {
			return e, true
		}
	}
	return playlistEntry{}, false
}

// playlistID is the last path segment of the playlist URL, or the name when
// the page does not link it.
func playlistID(e playlistEntry) string {
	if u, err := url.Parse(e.URL); err == nil && u.Path != "" {
		if base := path.Base(strings.TrimRight(u.Path, "/")); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return strings.ToLower(strings.TrimSpace(e.Name))
}
