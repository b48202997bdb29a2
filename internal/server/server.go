// Package server exposes the classifier and the mascot over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phobologic/jimbo/internal/insertion"
	"github.com/phobologic/jimbo/internal/lang"
	"github.com/phobologic/jimbo/internal/model"
	"github.com/phobologic/jimbo/internal/outline"
	"github.com/phobologic/jimbo/internal/quotes"
	"github.com/phobologic/jimbo/internal/session"
	"github.com/phobologic/jimbo/internal/snippet"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Classifier *snippet.Classifier // nil uses the built-in catalogs
	Outlines   *outline.Cache      // nil skips outlines
	Detector   insertion.Detector
	Session    session.Options // Sink is replaced by the server
	QuotesPath string          // re-read by POST /v1/quotes/reload; empty means built-in
	Origins    []string        // CORS origins; empty allows all
	Logger     *zap.Logger
}

// Server owns the mascot session and the live feed.
type Server struct {
	classifier *snippet.Classifier
	outlines   *outline.Cache
	detector   insertion.Detector
	session    *session.Session
	quotesPath string
	hub        *hub
	logger     *zap.Logger
	engine     *gin.Engine
}

// New creates a Server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Detector == (insertion.Detector{}) {
		opts.Detector = insertion.DefaultDetector()
	}

	s := &Server{
		classifier: opts.Classifier,
		outlines:   opts.Outlines,
		detector:   opts.Detector,
		quotesPath: opts.QuotesPath,
		hub:        newHub(opts.Logger),
		logger:     opts.Logger,
	}

	sessOpts := opts.Session
	if sessOpts.Logger == nil {
		sessOpts.Logger = opts.Logger
	}
	sessOpts.Sink = s.publishReaction
	s.session = session.New(sessOpts)

	s.engine = s.routes(opts.Origins)
	return s
}

func (s *Server) routes(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"service": "jimbo",
			"clients": s.hub.count(),
		})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/classify", s.handleClassify)
		v1.POST("/changes", s.handleChanges)
		v1.POST("/click", s.handleClick)
		v1.POST("/quotes/reload", s.handleReloadQuotes)
		v1.GET("/events", func(c *gin.Context) {
			s.serveWS(c.Writer, c.Request)
		})
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

type classifyRequest struct {
	Snippet  string `json:"snippet"`
	Language string `json:"language"`
}

type classifyResponse struct {
	Result  snippet.Result `json:"result"`
	Outline *model.Outline `json:"outline"`
}

func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.report(c.Request.Context(), "", req.Language, req.Snippet)
	if err != nil {
		if errors.Is(err, outline.ErrUnsupported) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("classify failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, classifyResponse{Result: report.Result, Outline: report.Outline})
}

type changesRequest struct {
	File     string             `json:"file"`
	Language string             `json:"language"`
	Changes  []insertion.Change `json:"changes"`
}

type changesResponse struct {
	Significant bool             `json:"significant"`
	Insertion   *model.Insertion `json:"insertion,omitempty"`
}

func (s *Server) handleChanges(c *gin.Context) {
	var req changesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.detector.Significant(req.Changes) {
		c.JSON(http.StatusOK, changesResponse{})
		return
	}

	language := req.Language
	if language == "" {
		language = lang.ForPath(req.File)
	}
	text := insertion.Snippet(req.Changes)
	report, err := s.report(c.Request.Context(), req.File, language, text)
	if err != nil {
		// the reaction does not depend on the outline
		s.logger.Warn("insertion report incomplete", zap.String("file", req.File), zap.Error(err))
	}
	ins := model.Insertion{Report: report, Snippet: text, At: time.Now()}
	s.Insert(ins)
	c.JSON(http.StatusOK, changesResponse{Significant: true, Insertion: &ins})
}

func (s *Server) handleClick(c *gin.Context) {
	r := s.session.Click()
	c.JSON(http.StatusAccepted, r)
}

type quoteCounts struct {
	Positive  int `json:"positive"`
	Sarcastic int `json:"sarcastic"`
	Click     int `json:"click"`
}

func (s *Server) handleReloadQuotes(c *gin.Context) {
	cat, err := s.ReloadQuotes()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	var counts quoteCounts
	counts.Positive, counts.Sarcastic, counts.Click = cat.Counts()
	c.JSON(http.StatusOK, counts)
}

// ReloadQuotes re-reads the quote catalog. On error the current catalog is
// kept.
func (s *Server) ReloadQuotes() (*quotes.Catalog, error) {
	cat, err := quotes.Resolve(s.quotesPath)
	if err != nil {
		s.logger.Warn("keeping current quotes", zap.String("path", s.quotesPath), zap.Error(err))
		return nil, err
	}
	s.session.SetCatalog(cat)
	s.logger.Info("quotes reloaded", zap.String("path", s.quotesPath))
	return cat, nil
}

// report classifies text and, when language is set, outlines it. The
// returned report is usable even when err is non-nil.
func (s *Server) report(ctx context.Context, file, language, text string) (model.Report, error) {
	res, err := snippet.Safe(s.classifier, text)
	report := model.Report{File: file, Result: res}
	if err != nil {
		return report, err
	}
	if language == "" || s.outlines == nil {
		return report, nil
	}
	language = strings.ToLower(language)
	o, err := s.outlines.Outline(ctx, language, text)
	if err != nil {
		return report, err
	}
	report.Outline = &o
	return report, nil
}

// Insert publishes a significant insertion and feeds it to the session.
func (s *Server) Insert(ins model.Insertion) {
	s.hub.broadcast(Event{Type: EventInsertion, Insertion: &ins})
	s.session.Accept(ins.Result.Gist, ins.Result.LineCount)
}

func (s *Server) publishReaction(r model.Reaction) {
	s.hub.broadcast(Event{Type: EventReaction, Reaction: &r})
}

// Close stops the session and disconnects feed clients.
func (s *Server) Close() {
	s.session.Close()
	s.hub.close()
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
