// Package httpapi is the HTTP shell: a chi router serving an HTML feed
// index, RSS 2.0 rendering per feed, and the on-demand update endpoint.
package httpapi

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/feeds"

	"feedmill/internal/feedsvc"
	"feedmill/internal/scheduler"
)

// FeedReader is the read-side capability this package depends on:
// internal/feedsvc.Service satisfies it.
type FeedReader interface {
	GetFeed(ctx context.Context, name string) (*feedsvc.FeedView, error)
	Names() []string
}

// Trigger is the on-demand update capability: internal/scheduler.Scheduler
// satisfies it.
type Trigger interface {
	TriggerUpdate(name string) error
}

// Server builds the chi router for feedmill's HTTP surface.
type Server struct {
	feeds   FeedReader
	trigger Trigger
	baseURL string
	logger  *slog.Logger
}

// New builds a Server. baseURL is the externally visible origin (scheme +
// host) used to build each feed's <link> element; it does not need a
// trailing slash.
func New(feeds FeedReader, trigger Trigger, baseURL string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{feeds: feeds, trigger: trigger, baseURL: baseURL, logger: logger}
}

// Router builds the chi.Router serving every feedmill HTTP endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/feeds/{name}", s.handleFeed)
	r.Post("/feeds/{name}/update", s.handleUpdate)
	return r
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><title>feedmill</title></head>
<body>
<h1>Feeds</h1>
<ul>
{{range .}}<li><a href="/feeds/{{.}}">{{.}}</a></li>
{{end}}
</ul>
</body></html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	names := s.feeds.Names()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, names); err != nil {
		s.logger.Error("rendering index", "error", err)
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	view, err := s.feeds.GetFeed(r.Context(), name)
	if err != nil {
		if errors.Is(err, feedsvc.ErrNotFound) {
			http.Error(w, "feed not found", http.StatusNotFound)
			return
		}
		s.logger.Error("loading feed", "feed", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	feed := &feeds.Feed{
		Title: view.Name,
		Link:  &feeds.Link{Href: s.baseURL + "/feeds/" + view.Name},
	}
	for _, e := range view.Entries {
		item := &feeds.Item{
			Id:          e.EntryID,
			Title:       e.Title,
			Description: e.Description,
			Link:        &feeds.Link{Href: e.URL},
			Created:     e.Retrieved,
		}
		if e.Author != "" {
			item.Author = &feeds.Author{Name: e.Author}
		}
		if e.Published != nil {
			item.Created = *e.Published
		}
		feed.Items = append(feed.Items, item)
	}

	xml, err := feed.ToRss()
	if err != nil {
		s.logger.Error("rendering rss", "feed", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(xml))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.trigger.TriggerUpdate(name)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, scheduler.ErrFeedNotFound):
		http.Error(w, "feed not found", http.StatusNotFound)
	case errors.Is(err, scheduler.ErrFeedDisabled):
		http.Error(w, "feed is disabled", http.StatusConflict)
	default:
		s.logger.Error("triggering update", "feed", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
