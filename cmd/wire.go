package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sidehug/internal/bsky"
	"sidehug/internal/classify"
	"sidehug/internal/config"
	"sidehug/internal/dispatch"
	"sidehug/internal/imaging"
	"sidehug/internal/middleware"
	"sidehug/internal/redisclient"
	"sidehug/internal/storage"
	"sidehug/internal/trend"

	"github.com/redis/go-redis/v9"
)

// app holds the components shared by the commands.
type app struct {
	cfg   config.Config
	dur   config.Durations
	bsky  *bsky.Client
	rdb   *redis.Client // nil when redis is disabled
	store *storage.RedisStore
	files *storage.FileStore
}

func newApp(cfg config.Config) (*app, error) {
	dur, err := cfg.ParseDurations()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, dur: dur}
	a.bsky = bsky.NewClient(bsky.Config{
		Host:        cfg.Bluesky.Host,
		Identifier:  cfg.Bluesky.Handle,
		Password:    cfg.Bluesky.Password,
		Timeout:     dur.BlueskyTimeout,
		MinInterval: dur.BlueskyInterval,
	})
	if !cfg.Redis.Disabled {
		a.rdb = redisclient.New(cfg.Redis)
		a.store = storage.NewRedisStore(a.rdb)
	}
	a.files = storage.NewFileStore(cfg.App.DataDir, mergeDirs(cfg.Crawl.CategoryDirs))
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// login authenticates the bot account; failure is fatal for every command
// that talks to the network.
func (a *app) login(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := a.bsky.Login(ctx); err != nil {
		return fmt.Errorf("bluesky login as %q: %w", a.cfg.Bluesky.Handle, err)
	}
	slog.Info("bluesky: logged in", "handle", a.bsky.Handle(), "did", a.bsky.Session().DID)
	return nil
}

// pingRedis reports whether the store is usable; an unreachable Redis is
// logged and the store dropped so the file store keeps working.
func (a *app) pingRedis(ctx context.Context) {
	if a.rdb == nil {
		return
	}
	if _, err := redisclient.Ping(ctx, a.rdb, 2*time.Second); err != nil {
		slog.Warn("redis: unreachable, continuing with file storage only", "addr", a.cfg.Redis.Addr, "error", err)
		_ = a.rdb.Close()
		a.rdb = nil
		a.store = nil
	}
}

func (a *app) sink() storage.DocumentSink {
	sinks := storage.MultiSink{a.files}
	if a.store != nil {
		sinks = append(sinks, a.store)
	}
	return sinks
}

func (a *app) classifier() (middleware.Classifier, error) {
	if a.cfg.Middleware.BaseURL != "" {
		return middleware.NewClient(a.cfg.Middleware.BaseURL, a.dur.MiddlewareTimeout), nil
	}
	if r := middleware.NewResponder(middleware.OpenAIConfig{
		APIKey:  a.cfg.OpenAI.APIKey,
		Model:   a.cfg.OpenAI.Model,
		BaseURL: a.cfg.OpenAI.BaseURL,
		Timeout: a.dur.MiddlewareTimeout,
	}); r != nil {
		slog.Info("middleware: no service configured, using openai responder", "model", a.cfg.OpenAI.Model)
		return r, nil
	}
	return nil, errors.New("neither middleware.base_url nor openai.api_key is configured")
}

func (a *app) dispatcher() (*dispatch.Dispatcher, error) {
	cl, err := a.classifier()
	if err != nil {
		return nil, err
	}
	d := &dispatch.Dispatcher{
		Transport:  a.bsky,
		Classifier: cl,
		Images: imaging.NewBuilder(a.bsky, imaging.Config{
			Timeout:      a.dur.ImageTimeout,
			MaxDimension: a.cfg.Image.MaxDimension,
			Quality:      a.cfg.Image.Quality,
			MaxBytes:     a.cfg.Image.MaxBytes,
		}),
		ChartBaseURL:      a.cfg.Chart.BaseURL,
		MaxLength:         a.cfg.Bot.MaxLength,
		NotificationLimit: a.cfg.Bot.NotificationLimit,
		HandledTTL:        a.dur.HandledTTL,
	}
	if a.store != nil {
		d.Handled = a.store
	}
	return d, nil
}

func (a *app) engine() (*trend.Engine, error) {
	cats, err := a.cfg.LoadCategories()
	if err != nil {
		return nil, err
	}
	topics := make([]trend.Topic, 0, len(a.cfg.Crawl.Topics))
	for _, t := range a.cfg.Crawl.Topics {
		topics = append(topics, trend.Topic{Name: t.Name, Keywords: t.Keywords})
	}
	return &trend.Engine{
		Searcher:    a.bsky,
		Classifier:  classify.New(cats),
		Sink:        a.sink(),
		SearchTerms: a.cfg.Crawl.SearchTerms,
		Topics:      topics,
		SearchLimit: a.cfg.Crawl.SearchLimit,
		Concurrency: a.cfg.Crawl.Concurrency,
		TopHashtags: a.cfg.Crawl.TopHashtags,
		TopPosts:    a.cfg.Crawl.TopPosts,
		DedupePosts: a.cfg.Crawl.DedupePosts,
	}, nil
}

func mergeDirs(override map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range storage.DefaultCategoryDirs {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
