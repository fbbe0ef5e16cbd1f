package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"emergency-alert/internal/backend"
	"emergency-alert/internal/config"
	"emergency-alert/internal/geo"
	"emergency-alert/internal/host"
	"emergency-alert/internal/repository"
	"emergency-alert/internal/service"
)

func newApp(cfg *config.Config, logger *logrus.Logger) *cli.App {
	return &cli.App{
		Name:      "alerta",
		Usage:     "send a red alert to your community",
		UsageText: "alerta [global options] send|interactive [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Value: cfg.BackendURL, Usage: "alert backend base URL"},
			&cli.StringFlag{Name: "source", Value: string(cfg.Source), Usage: "identity source: telegram or url"},
			&cli.StringFlag{Name: "fallback", Value: string(cfg.Fallback), Usage: "member selection fallback: first or none"},
			&cli.StringFlag{Name: "launch-url", Usage: "URL the form was opened with"},
			&cli.StringFlag{Name: "init-data", Usage: "raw Telegram WebApp init data"},
			&cli.StringFlag{Name: "comunidad", Usage: "community name (url source)"},
			&cli.StringFlag{Name: "user-id", Usage: "Telegram user id (url source)"},
			&cli.StringFlag{Name: "bot-token", Value: cfg.BotToken, Usage: "verify init data with this bot token"},
			&cli.Float64Flag{Name: "lat", Usage: "current latitude"},
			&cli.Float64Flag{Name: "lon", Usage: "current longitude"},
			&cli.StringFlag{Name: "geo-url", Value: cfg.GeoURL, Usage: "JSON endpoint reporting the current position"},
			&cli.StringFlag{Name: "redis-addr", Value: cfg.Redis.Addr, Usage: "cache positions in this Redis"},
		},
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "send one alert",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Required: true, Usage: "what is happening (4-300 characters)"},
					&cli.BoolFlag{Name: "realtime", Usage: "use the current position instead of the registered address"},
				},
				Action: func(c *cli.Context) error {
					return runSession(c, cfg, logger, sendOnce)
				},
			},
			{
				Name:  "interactive",
				Usage: "type the description line by line; /rt toggles real time, /send submits, /quit exits",
				Action: func(c *cli.Context) error {
					return runSession(c, cfg, logger, interact)
				},
			},
		},
	}
}

type session struct {
	form   *service.Form
	host   *host.Session
	launch host.Launch
}

func runSession(c *cli.Context, cfg *config.Config, logger *logrus.Logger, run func(ctx context.Context, c *cli.Context, s *session) error) error {
	source, err := config.ParseIdentitySource(c.String("source"))
	if err != nil {
		return err
	}
	fallback, err := config.ParseSelectionFallback(c.String("fallback"))
	if err != nil {
		return err
	}
	launch, err := launchFromFlags(c, source)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	var cache geo.Cache = geo.NewMemoryCache()
	if addr := c.String("redis-addr"); addr != "" {
		redisCfg := cfg.Redis
		redisCfg.Addr = addr
		rc, err := repository.NewRedisCache(ctx, redisCfg)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, caching positions in memory")
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	key := launch.UserToken
	if key == "" {
		key = "anonymous"
	}
	var locator geo.Locator
	if inner := locatorFromFlags(c, logger); inner != nil {
		locator = &geo.Cached{Locator: inner, Cache: cache, Key: key, Logger: logger}
	}

	hs := host.NewSession(logger, launch, cancel)
	form := service.NewForm(service.Options{
		Launch:   launch,
		Fallback: fallback,
		Backend:  backend.NewClient(c.String("backend"), nil, logger),
		Locator:  locator,
		Bridge:   hs,
		Notifier: service.NotifierFunc(func(msg string) { fmt.Fprintln(c.App.Writer, msg) }),
		Logger:   logger,
	})

	if err := form.Load(ctx); err != nil {
		if !errors.Is(err, service.ErrEmptyRoster) || form.State() != service.StateReady {
			return cli.Exit(form.View().Status, 1)
		}
	}
	fmt.Fprintln(c.App.Writer, form.View().Status)

	return run(ctx, c, &session{form: form, host: hs, launch: launch})
}

func launchFromFlags(c *cli.Context, source config.IdentitySource) (host.Launch, error) {
	var (
		launch host.Launch
		err    error
	)
	switch {
	case c.String("init-data") != "":
		launch, err = host.ParseInitData(c.String("init-data"))
	case c.String("launch-url") != "":
		launch, err = host.ParseLaunchURL(source, c.String("launch-url"))
		if errors.Is(err, host.ErrNoInitData) {
			// opened outside Telegram; the form reports it
			return launch, nil
		}
	default:
		launch = host.Launch{Source: source}
		if source == config.SourceURL {
			launch.Key = strings.TrimSpace(c.String("comunidad"))
			launch.UserToken = strings.TrimSpace(c.String("user-id"))
		}
	}
	if err != nil {
		return launch, err
	}
	if token := c.String("bot-token"); token != "" && launch.InitData != "" {
		if err := host.VerifyInitData(launch.InitData, token); err != nil {
			return launch, err
		}
	}
	return launch, nil
}

func locatorFromFlags(c *cli.Context, logger *logrus.Logger) geo.Locator {
	if c.IsSet("lat") && c.IsSet("lon") {
		return geo.Fixed{Lat: c.Float64("lat"), Lon: c.Float64("lon")}
	}
	if u := c.String("geo-url"); u != "" {
		return &geo.HTTPLocator{URL: u, Logger: logger}
	}
	return nil
}

func sendOnce(ctx context.Context, c *cli.Context, s *session) error {
	s.form.SetRealTime(c.Bool("realtime"))
	if !s.form.SetDescription(c.String("description")) {
		return cli.Exit(s.form.View().Status, 1)
	}
	if _, err := s.form.Submit(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if !s.launch.InHost {
		return nil
	}
	// the view closes itself after the confirmation delay
	select {
	case <-ctx.Done():
	case <-time.After(s.launch.Source.CloseDelay() + time.Second):
	}
	return nil
}

func interact(ctx context.Context, c *cli.Context, s *session) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	out := c.App.Writer
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return nil
			case "/rt":
				s.form.SetRealTime(!s.form.View().RealTime)
			case "/send":
				_, _ = s.form.Submit(ctx)
			default:
				s.form.SetDescription(line)
			}
			v := s.form.View()
			fmt.Fprintf(out, "[%s] %s\n", v.Button, v.Status)
			if s.host.Closed() {
				return nil
			}
		}
	}
}
