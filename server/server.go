package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/pkg/errors"

	"github.com/embryo-vision/go-embryo/config"
	"github.com/embryo-vision/go-embryo/inference"
	"github.com/embryo-vision/go-embryo/profiler"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server serves the grading GUI and the JSON API over a loaded engine.
type Server struct {
	engine    inference.Engine
	cfg       *config.Config
	prof      *profiler.Profiler
	templates *template.Template
	mux       *http.ServeMux
}

// NewServerArgs represents the arguments for creating a new Server.
type NewServerArgs struct {
	// The classification engine. Loaded once; shared by all requests.
	Engine inference.Engine
	// The service configuration.
	Config *config.Config
	// Optional profiler backing the stats endpoint.
	Profiler *profiler.Profiler
}

// NewServer creates the HTTP server and registers its routes.
//
// Arguments:
//   - args: The engine, configuration, and profiler.
//
// Returns:
//   - *Server: The server, ready to serve via Handler or ListenAndServe.
//   - error: An error if the templates cannot be parsed.
func NewServer(args NewServerArgs) (*Server, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parsing templates")
	}

	s := &Server{
		engine:    args.Engine,
		cfg:       args.Config,
		prof:      args.Profiler,
		templates: templates,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/classify", s.handleClassify)
	s.mux.HandleFunc("/api/classify", s.handleAPIClassify)
	s.mux.HandleFunc("/dataset", s.handleDataset)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/stats", s.handleStats)
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on the configured listen address until the
// listener fails.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.cfg.ListenAddr, s.mux)
}
