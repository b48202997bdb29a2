package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/jimbo/internal/discover"
	"github.com/phobologic/jimbo/internal/lang"
	"github.com/phobologic/jimbo/internal/model"
	"github.com/phobologic/jimbo/internal/outline"
	"github.com/phobologic/jimbo/internal/quotes"
	"github.com/phobologic/jimbo/internal/server"
	"github.com/phobologic/jimbo/internal/session"
	"github.com/phobologic/jimbo/internal/toon"
	"github.com/phobologic/jimbo/internal/watch"
)

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}
	return nil
}

func checkLanguages(names []string) error {
	for _, name := range names {
		if _, ok := lang.Languages[name]; !ok {
			return fmt.Errorf("unsupported language %q", name)
		}
	}
	return nil
}

// newWatcher builds a filesystem watcher for root from the loaded config.
func (a *app) newWatcher(root string, sink func(model.Insertion)) (*watch.Watcher, error) {
	if err := checkRoot(root); err != nil {
		return nil, err
	}
	wc := a.cfg.Watch
	if err := checkLanguages(wc.Languages); err != nil {
		return nil, err
	}
	c, err := a.classifier()
	if err != nil {
		return nil, err
	}
	cache, err := outline.NewCache(a.cfg.Outline.CacheSize)
	if err != nil {
		return nil, err
	}
	return watch.New(watch.Options{
		Filter:      discover.NewFilter(root, wc.Languages, wc.Ignore),
		Detector:    a.cfg.Detector(),
		Classifier:  c,
		Outlines:    cache,
		Debounce:    wc.Debounce,
		MaxFileSize: wc.MaxFileSize,
		Sink:        sink,
		Logger:      a.logger.Named("watch"),
	})
}

func (a *app) sessionOptions() session.Options {
	return session.Options{
		Catalog:   quotes.LoadOrDefault(a.cfg.Quotes, a.logger),
		Settle:    a.cfg.Session.Settle,
		ClickHold: a.cfg.Session.ClickHold,
		Logger:    a.logger.Named("session"),
	}
}

// onHangup calls reload on every SIGHUP until ctx is done.
func onHangup(ctx context.Context, reload func()) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				reload()
			}
		}
	}()
}

// reloadQuotes re-reads the configured quote catalog into sess, keeping the
// current one on error.
func (a *app) reloadQuotes(sess *session.Session) error {
	cat, err := quotes.Resolve(a.cfg.Quotes)
	if err != nil {
		a.logger.Warn("keeping current quotes", zap.String("path", a.cfg.Quotes), zap.Error(err))
		return err
	}
	sess.SetCatalog(cat)
	a.logger.Info("quotes reloaded", zap.String("path", a.cfg.Quotes))
	return nil
}

// printer serializes output from the watcher and session goroutines.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func (p *printer) insertion(ins model.Insertion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.format {
	case formatJSON:
		_ = writeJSON(p.w, server.Event{Type: server.EventInsertion, Insertion: &ins})
	case formatTOON:
		_, _ = fmt.Fprintf(p.w, "%s\n\n", toon.EncodeReport(&ins.Report))
	default:
		_, _ = fmt.Fprintf(p.w, "%s: %s (%d lines, %s)\n",
			ins.File, ins.Result.Gist, ins.Result.LineCount, ins.Result.Complexity)
	}
}

func (p *printer) reaction(r model.Reaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.format {
	case formatJSON:
		_ = writeJSON(p.w, server.Event{Type: server.EventReaction, Reaction: &r})
	case formatTOON:
		_, _ = fmt.Fprintf(p.w, "%s\n\n", toon.EncodeReaction(&r))
	default:
		_, _ = fmt.Fprintf(p.w, "jimbo: %s\n", strings.ReplaceAll(r.Text, "\n\n", "\n       "))
	}
}

func (a *app) watchCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Report significant insertions as files under dir are saved",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			p := &printer{w: a.stdout, format: format}
			opts := a.sessionOptions()
			opts.Sink = p.reaction
			sess := session.New(opts)
			defer sess.Close()

			w, err := a.newWatcher(root, func(ins model.Insertion) {
				p.insertion(ins)
				sess.Accept(ins.Result.Gist, ins.Result.LineCount)
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			onHangup(ctx, func() { _ = a.reloadQuotes(sess) })
			return w.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or toon")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var (
		addr      string
		watchRoot bool
		origins   []string
	)
	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the classifier and the mascot feed over HTTP",
		Long: `Serve exposes:

  GET  /health
  POST /v1/classify   {"snippet", "language"}
  POST /v1/changes    {"file", "language", "changes": [{"text", "rangeLength"}]}
  POST /v1/click
  POST /v1/quotes/reload
  GET  /v1/events     websocket feed of insertions and reactions

With --watch, saves under dir are fed to the mascot as well. SIGHUP reloads
the quote catalog.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			c, err := a.classifier()
			if err != nil {
				return err
			}
			cache, err := outline.NewCache(a.cfg.Outline.CacheSize)
			if err != nil {
				return err
			}
			srv := server.New(server.Options{
				Classifier: c,
				Outlines:   cache,
				Detector:   a.cfg.Detector(),
				Session:    a.sessionOptions(),
				QuotesPath: a.cfg.Quotes,
				Origins:    origins,
				Logger:     a.logger.Named("server"),
			})

			g, ctx := errgroup.WithContext(cmd.Context())
			onHangup(ctx, func() { _, _ = srv.ReloadQuotes() })
			if watchRoot {
				root := "."
				if len(args) > 0 {
					root = args[0]
				}
				w, err := a.newWatcher(root, srv.Insert)
				if err != nil {
					srv.Close()
					return err
				}
				g.Go(func() error { return w.Run(ctx) })
			}
			g.Go(func() error { return srv.Run(ctx, addr) })

			if err := g.Wait(); err != nil {
				a.logger.Error("serve stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVarP(&watchRoot, "watch", "w", false, "also watch dir for saves")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed CORS origins (default all)")
	return cmd
}
