package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/mbolis/quick-wizard/app"
	"github.com/mbolis/quick-wizard/completion"
	"github.com/mbolis/quick-wizard/config"
	"github.com/mbolis/quick-wizard/database"
	"github.com/mbolis/quick-wizard/httpx"
	"github.com/mbolis/quick-wizard/log"
	"github.com/mbolis/quick-wizard/metrics"
	"github.com/mbolis/quick-wizard/redisstore"
	"github.com/mbolis/quick-wizard/routes"
	"github.com/mbolis/quick-wizard/templates"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	ctx := context.Background()
	if cfg.AdminPassword != "" {
		if err = database.EnsureAccount(ctx, db, cfg.AdminUser, cfg.AdminPassword); err != nil {
			log.Fatal("main.db.admin:", err)
		}
	}

	templateStore := database.NewTemplateStore(db)
	if cfg.TemplatesDir != "" {
		if err = importTemplates(ctx, templateStore, cfg.TemplatesDir); err != nil {
			log.Fatal("main.templates:", err)
		}
	}

	var submissions app.Submissions = database.NewSubmissionStore(db)
	if cfg.Store == config.StoreRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err = client.Ping(ctx).Err(); err != nil {
			log.Fatal("main.redis:", err)
		}
		submissions = redisstore.New(client, templateStore,
			redisstore.WithPrefix(cfg.RedisPrefix),
			redisstore.WithTTL(cfg.RedisTTL),
		)
	}

	observer := metrics.New()
	if err = observer.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal("main.metrics:", err)
	}

	app := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Templates:    templateStore,
		Submissions:  submissions,
		Exporter:     completion.NewRecorder(db),
		Metrics:      observer,
	}

	handler := routes.Wire(app, prometheus.DefaultGatherer)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

// importTemplates creates one template per file found in dir, skipping
// names that are already taken.
func importTemplates(ctx context.Context, store *database.TemplateStore, dir string) error {
	list, err := templates.LoadDir(dir)
	if err != nil {
		return err
	}
	existing, err := store.ListTemplates(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]bool, len(existing))
	for _, t := range existing {
		names[t.Name] = true
	}

	for _, t := range list {
		if names[t.Name] {
			log.Debugf("template %q already imported", t.Name)
			continue
		}
		id, err := store.CreateTemplate(ctx, t)
		if err != nil {
			return err
		}
		log.Infof("imported template %q as #%d (%s)", t.Name, id, t.Status)
	}
	return nil
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
