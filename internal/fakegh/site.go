// Package fakegh serves an in-memory imitation of the GitHub pages the
// walk-through touches, with the same markup hooks, so the scenario can run
// end to end without network access or a real account.
package fakegh

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kuitang/ghflow/internal/obs"
	"github.com/kuitang/ghflow/internal/ratelimit"
	"github.com/kuitang/ghflow/internal/urlutil"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "user_session"

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"landing.html",
	"login.html",
	"dashboard.html",
	"repositories.html",
	"repository.html",
	"pulls.html",
	"logout.html",
	"notfound.html",
}

// Repository is one repository owned by a user.
type Repository struct {
	Name       string
	Visibility string
}

type account struct {
	username     string
	email        string
	passwordHash string
}

// Site is an http.Handler for the fake site. The zero value is not usable;
// call New.
type Site struct {
	mu       sync.Mutex
	accounts map[string]*account // by username
	sessions map[string]string   // session id -> username
	repos    map[string][]Repository

	pages   map[string]*template.Template
	limiter *ratelimit.RateLimiter
	handler http.Handler
}

// Option customizes a Site.
type Option func(*options)

type options struct {
	signInLimit ratelimit.Config
}

// WithSignInLimit throttles sign-in attempts per login.
func WithSignInLimit(cfg ratelimit.Config) Option {
	return func(o *options) { o.signInLimit = cfg }
}

// New returns an empty site. Call Close when done.
func New(opts ...Option) (*Site, error) {
	o := options{signInLimit: ratelimit.DefaultConfig}
	for _, opt := range opts {
		opt(&o)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s := &Site{
		accounts: map[string]*account{},
		sessions: map[string]string{},
		repos:    map[string][]Repository{},
		pages:    pages,
		limiter:  ratelimit.NewRateLimiter(o.signInLimit),
	}
	throttle := ratelimit.RateLimitMiddleware(s.limiter, func(r *http.Request) string {
		return strings.ToLower(strings.TrimSpace(r.FormValue("login")))
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.Handle("POST /session", throttle(http.HandlerFunc(s.handleSession)))
	mux.HandleFunc("GET /logout", s.handleLogoutPage)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /repositories", s.handleCreateRepository)
	mux.HandleFunc("GET /{owner}", s.handleProfile)
	mux.HandleFunc("GET /{owner}/{repo}", s.handleRepository)
	mux.HandleFunc("GET /{owner}/{repo}/pulls", s.handlePulls)

	s.handler = obs.RequestContextMiddleware(obs.AccessLogMiddleware("fakegh", mux))
	return s, nil
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background work.
func (s *Site) Close() {
	s.limiter.Stop()
}

// AddUser registers an account with the given repositories, all public.
// Signing in accepts either the username or the email.
func (s *Site) AddUser(username, email, password string, repos ...string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = &account{username: username, email: email, passwordHash: hash}
	for _, name := range repos {
		s.repos[username] = append(s.repos[username], Repository{Name: name, Visibility: "public"})
	}
	obs.Pkg("fakegh").Debug("user_added", "user", username, "repositories", len(repos))
	return nil
}

// Repositories returns a copy of owner's repositories in creation order.
func (s *Site) Repositories(owner string) []Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.repos[owner])
}

// ActiveSessions returns the number of signed-in sessions.
func (s *Site) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type pageData struct {
	Title string
	Root  string
	User  string
	Error string
	Login string
	Owner string
	Repo  Repository
	Repos []Repository
}

func (s *Site) page(r *http.Request, title string) pageData {
	return pageData{
		Title: title,
		Root:  urlutil.Root(urlutil.OriginFromRequest(r, "")),
		User:  s.currentUser(r),
	}
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	tmpl, ok := s.pages[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		obs.From(r.Context()).Error("render_failed", "template", name, "error", err.Error())
	}
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "notfound.html", s.page(r, "Page not found"))
}

func (s *Site) currentUser(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[c.Value]
}

func (s *Site) handleHome(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "GitHub")
	if data.User == "" {
		s.render(w, r, http.StatusOK, "landing.html", data)
		return
	}
	data.Title = "Dashboard"
	data.Error = r.URL.Query().Get("error")
	s.render(w, r, http.StatusOK, "dashboard.html", data)
}

func (s *Site) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.currentUser(r) != "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", s.page(r, "Sign in"))
}

// handleSession checks the submitted credentials. A failed sign-in renders
// the form again at /session, as the real site does.
func (s *Site) handleSession(w http.ResponseWriter, r *http.Request) {
	log := obs.From(r.Context())
	login := strings.TrimSpace(r.FormValue("login"))
	password := r.FormValue("password")

	username, ok := s.authenticate(login, password)
	if !ok {
		log.Info("sign_in_failed", "login", login)
		data := s.page(r, "Sign in")
		data.Error = "Incorrect username or password."
		data.Login = login
		s.render(w, r, http.StatusUnauthorized, "login.html", data)
		return
	}

	sessionID := uuid.NewString()
	s.mu.Lock()
	s.sessions[sessionID] = username
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info("signed_in", "user", username)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Site) authenticate(login, password string) (string, bool) {
	s.mu.Lock()
	var match *account
	for _, acct := range s.accounts {
		if acct.username == login || strings.EqualFold(acct.email, login) {
			match = acct
			break
		}
	}
	s.mu.Unlock()
	if match == nil || !verifyPassword(password, match.passwordHash) {
		return "", false
	}
	return match.username, true
}

func (s *Site) handleLogoutPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Sign out")
	if data.User == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, "logout.html", data)
}

func (s *Site) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Site) handleCreateRepository(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	name := strings.TrimSpace(r.FormValue("repository[name]"))
	visibility := r.FormValue("repository[visibility]")
	if visibility != "public" {
		visibility = "private"
	}
	if !validRepositoryName(name) {
		http.Redirect(w, r, "/?error=Repository+name+is+not+valid", http.StatusFound)
		return
	}

	s.mu.Lock()
	exists := slices.ContainsFunc(s.repos[user], func(repo Repository) bool {
		return strings.EqualFold(repo.Name, name)
	})
	if !exists {
		s.repos[user] = append(s.repos[user], Repository{Name: name, Visibility: visibility})
	}
	s.mu.Unlock()

	if exists {
		http.Redirect(w, r, "/?error=Name+already+exists+on+this+account", http.StatusFound)
		return
	}
	obs.From(r.Context()).Info("repository_created", "owner", user, "repository", name, "visibility", visibility)
	http.Redirect(w, r, "/"+user+"/"+name, http.StatusFound)
}

func validRepositoryName(name string) bool {
	if name == "" || len(name) > 100 || name == "." || name == ".." {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func (s *Site) lookup(owner, repo string) (Repository, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[owner]; !ok {
		return Repository{}, false
	}
	for _, r := range s.repos[owner] {
		if r.Name == repo {
			return r, true
		}
	}
	return Repository{}, false
}

func (s *Site) handleProfile(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	s.mu.Lock()
	_, ok := s.accounts[owner]
	s.mu.Unlock()
	if !ok {
		s.notFound(w, r)
		return
	}
	data := s.page(r, owner)
	data.Owner = owner
	data.Repos = s.Repositories(owner)
	s.render(w, r, http.StatusOK, "repositories.html", data)
}

func (s *Site) handleRepository(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo, ok := s.lookup(owner, r.PathValue("repo"))
	if !ok {
		s.notFound(w, r)
		return
	}
	data := s.page(r, owner+"/"+repo.Name)
	data.Owner = owner
	data.Repo = repo
	s.render(w, r, http.StatusOK, "repository.html", data)
}

func (s *Site) handlePulls(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo, ok := s.lookup(owner, r.PathValue("repo"))
	if !ok {
		s.notFound(w, r)
		return
	}
	data := s.page(r, "Pull requests · "+owner+"/"+repo.Name)
	data.Owner = owner
	data.Repo = repo
	s.render(w, r, http.StatusOK, "pulls.html", data)
}
