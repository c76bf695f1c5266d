// Package server is a read-only web viewer for saved analyses.
package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/tbruckner/tasktriage/internal/apperr"
	"github.com/tbruckner/tasktriage/internal/history"
	"github.com/tbruckner/tasktriage/internal/notes"
	"github.com/tbruckner/tasktriage/internal/period"
	"github.com/tbruckner/tasktriage/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Group is one period's analyses for the index page, newest first.
type Group struct {
	Period period.Type
	Names  []string
}

// Server serves saved analyses from a backend, with an optional run
// ledger for the history page.
type Server struct {
	backend storage.Backend
	ledger  *history.DB
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// New creates a server. ledger may be nil.
func New(backend storage.Backend, ledger *history.DB) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"title":    func(t period.Type) string { return t.Title() },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "report.html", "history.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{backend: backend, ledger: ledger, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/report/", s.handleReport)
	s.mux.HandleFunc("/history", s.handleHistory)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var groups []Group
	for _, t := range []period.Type{period.Daily, period.Weekly, period.Monthly, period.Annual} {
		entries, err := s.backend.List(t.Dir())
		if err != nil {
			if errors.Is(err, apperr.ErrDirMissing) {
				continue
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		g := Group{Period: t}
		for _, e := range entries {
			if notes.IsAnalysis(e.Name) {
				g.Names = append(g.Names, e.Name)
			}
		}
		sort.Sort(sort.Reverse(sort.StringSlice(g.Names)))
		if len(g.Names) > 0 {
			groups = append(groups, g)
		}
	}

	s.render(w, "index.html", map[string]any{
		"Backend": s.backend.Name(),
		"Groups":  groups,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/report/")
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	t, err := period.Parse(parts[0])
	if err != nil || !notes.IsAnalysis(parts[1]) || strings.Contains(parts[1], "/") {
		http.NotFound(w, r)
		return
	}

	content, err := s.backend.Read(t.Dir() + "/" + parts[1])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	heading, body := splitReport(string(content))
	s.render(w, "report.html", map[string]any{
		"Period":  t,
		"Name":    parts[1],
		"Heading": heading,
		"Body":    body,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var runs []history.Run
	if s.ledger != nil {
		var err error
		runs, err = s.ledger.RecentRuns(20)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}
	s.render(w, "history.html", map[string]any{
		"Runs": runs,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

// splitReport separates the plain-text header ("Weekly Task Analysis"
// plus its rule line) from the markdown body.
func splitReport(content string) (heading, body string) {
	lines := strings.SplitN(content, "\n", 4)
	if len(lines) == 4 && strings.HasPrefix(lines[1], "====") {
		return lines[0], lines[3]
	}
	return "", content
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(backend storage.Backend, ledger *history.DB, port int) error {
	srv, err := New(backend, ledger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
