package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/simpletodo/internal/api"
	"github.com/idilsaglam/simpletodo/internal/auth"
	"github.com/idilsaglam/simpletodo/internal/cache"
	"github.com/idilsaglam/simpletodo/internal/config"
	"github.com/idilsaglam/simpletodo/internal/logger"
	"github.com/idilsaglam/simpletodo/internal/model"
	"github.com/idilsaglam/simpletodo/internal/todos"
	"github.com/idilsaglam/simpletodo/internal/tui"
	"github.com/idilsaglam/simpletodo/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group   bool   // list grouped into active/done
	Theme   string // classic | neon | mono
	Color   bool   // force color even when not a TTY
	NoColor bool
}

// App holds what subcommands share. Fields are exported so tests can wire fakes.
type App struct {
	Config *config.Config
	// ConfigErr is why Config is nil; reported by commands that need the backend.
	ConfigErr error
	Auth      *auth.Store
	Options   Options

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// RunTUI starts the interactive screen; replaced in tests.
	RunTUI func(svc tui.Service, metricsAddr string) error

	svc     *todos.Service
	closers []func() error
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
// A configuration error only fails commands that talk to the backend.
func Run(args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp(os.Stdout)
		return 2
	}
	cfg, cfgErr := config.Load()
	store, err := auth.DefaultStore()
	if err != nil {
		ui.Fail(os.Stderr, "auth: "+err.Error())
		return 1
	}

	logOut := io.Writer(os.Stderr)
	if args[0] == "ui" {
		logOut = io.Discard
	}
	level, jsonLogs := "warn", false
	if cfg != nil {
		level, jsonLogs = cfg.LogLevel, cfg.LogJSON
		if cfg.LogFile != "" {
			f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				ui.Fail(os.Stderr, "log file: "+err.Error())
				return 1
			}
			defer f.Close()
			logOut = f
		}
	}
	logger.Init(level, jsonLogs, logOut)

	app := &App{
		Config:    cfg,
		ConfigErr: cfgErr,
		Auth:      store,
		Options:   opt,
		In:        os.Stdin,
		Out:       os.Stdout,
		Err:       os.Stderr,
		RunTUI:    tui.Run,
	}
	defer app.Close()
	return app.Run(args)
}

func (a *App) Run(args []string) int {
	ui.SetColorForcing(a.Options.Color, a.Options.NoColor)
	ui.SetTheme(a.Options.Theme)

	if len(args) == 0 {
		PrintHelp(a.Out)
		return 2
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(a.Out)
		return 0

	case "ls":
		return a.doList()

	case "add":
		if len(rest) == 0 {
			ui.Fail(a.Err, "usage: todo add <text...>")
			return 2
		}
		return a.doAdd(strings.Join(rest, " "))

	case "done":
		id, code := a.parseID("done", rest)
		if code != 0 {
			return code
		}
		return a.doToggle(id)

	case "rm":
		id, code := a.parseID("rm", rest)
		if code != 0 {
			return code
		}
		return a.doRemove(id)

	case "ui":
		return a.doUI()

	case "auth":
		if len(rest) == 0 {
			ui.Fail(a.Err, "usage: todo auth <login|logout|status|whoami>")
			return 2
		}
		switch rest[0] {
		case "login":
			return a.doAuthLogin()
		case "logout":
			return a.doAuthLogout()
		case "status":
			return a.doAuthStatus()
		case "whoami":
			return a.doAuthWhoAmI()
		default:
			ui.Fail(a.Err, "usage: todo auth <login|logout|status|whoami>")
			return 2
		}
	}

	ui.Fail(a.Err, "unknown subcommand: "+cmd)
	fmt.Fprintln(a.Err)
	PrintHelp(a.Err)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a small client for a to-do REST backend

Usage:
  todo [-group] [-theme classic|neon|mono] [-color|-no-color] <subcommand> [args]

Subcommands:
  ls                 List items (-group splits Active / Done)
  add <text...>      Create an item (text can be multiple words)
  done <id>          Toggle done for the item with that id
  rm <id>            Delete the item with that id
  ui                 Interactive screen
  auth <login|logout|status|whoami>   Bearer token for the backend

Environment:
  TODO_ENV           development (default, http://localhost:3000) or production
  TODO_API_URL       backend base URL (required in production)
  TODO_CACHE         memory (default), file or redis

Examples:
  todo add "Buy milk"
  todo -group ls
  todo done 2
  todo rm 3
`)
}

func (a *App) parseID(cmd string, rest []string) (int, int) {
	if len(rest) != 1 {
		ui.Fail(a.Err, "usage: todo "+cmd+" <id>")
		return 0, 2
	}
	id, err := strconv.Atoi(strings.TrimPrefix(rest[0], "#"))
	if err != nil {
		ui.Fail(a.Err, cmd+": not a number: "+rest[0])
		return 0, 2
	}
	return id, 0
}

// service builds the query layer on first use.
func (a *App) service() (*todos.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	cfg := a.Config
	if cfg == nil {
		if a.ConfigErr != nil {
			return nil, fmt.Errorf("config: %w", a.ConfigErr)
		}
		return nil, errors.New("config: not loaded")
	}
	opts := []api.Option{api.WithTimeout(cfg.HTTPTimeout)}
	if a.Auth != nil {
		ti, err := a.Auth.Token()
		if err != nil {
			return nil, err
		}
		if ti != nil {
			if ti.Expired(timeNow()) {
				logger.Warn("token expired", logrus.Fields{"source": ti.Source, "expires_at": ti.ExpiresAt})
			}
			opts = append(opts, api.WithToken(ti.Token))
		}
	}
	client, err := api.New(cfg.APIURL, opts...)
	if err != nil {
		return nil, err
	}

	var c cache.Cache
	switch cfg.CacheBackend {
	case "file":
		c = cache.NewFile(cfg.CacheFile)
	case "redis":
		r, err := cache.NewRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		c = r
	default:
		c = cache.NewMemory()
	}
	logger.Debug("service ready", logrus.Fields{"api": cfg.APIURL, "cache": cfg.CacheBackend, "env": cfg.Env})

	a.svc = todos.NewService(client, c, cfg.CacheTTL)
	return a.svc, nil
}

// Close releases connections opened by service.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}

// -------------- subcommand impls ----------------

func (a *App) doList() int {
	svc, err := a.service()
	if err != nil {
		ui.Fail(a.Err, "setup: "+err.Error())
		return 1
	}
	items, err := svc.List(context.Background())
	if err != nil {
		ui.Fail(a.Err, "Could not load to-dos")
		ui.Hint(a.Err, err.Error())
		return 1
	}

	lines := ui.Header(items)
	lines = append(lines, "")
	if a.Options.Group {
		lines = append(lines, ui.SectionLines(items)...)
	} else {
		lines = append(lines, ui.FlatLines(items)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Muted, "Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(a.Out, lines)
	return 0
}

func (a *App) doAdd(text string) int {
	svc, err := a.service()
	if err != nil {
		ui.Fail(a.Err, "setup: "+err.Error())
		return 1
	}
	created, err := svc.Create(context.Background(), text)
	if errors.Is(err, todos.ErrEmptyText) {
		ui.Fail(a.Err, "add: empty text")
		return 2
	}
	if err != nil {
		return a.alert(err)
	}
	ui.OK(a.Out, fmt.Sprintf("added #%d", created.ID))
	return 0
}

func (a *App) doToggle(id int) int {
	svc, err := a.service()
	if err != nil {
		ui.Fail(a.Err, "setup: "+err.Error())
		return 1
	}
	ctx := context.Background()
	items, err := svc.List(ctx)
	if err != nil {
		ui.Fail(a.Err, "Could not load to-dos")
		ui.Hint(a.Err, err.Error())
		return 1
	}
	it, ok := model.Find(items, id)
	if !ok {
		ui.Fail(a.Err, fmt.Sprintf("no to-do with id %d", id))
		ui.Hint(a.Err, "Hint: run `todo ls` to see valid ids")
		return 2
	}
	updated, err := svc.Toggle(ctx, it)
	if err != nil {
		return a.alert(err)
	}
	if updated.Done {
		ui.OK(a.Out, fmt.Sprintf("#%d done", id))
	} else {
		ui.OK(a.Out, fmt.Sprintf("#%d active again", id))
	}
	return 0
}

func (a *App) doRemove(id int) int {
	svc, err := a.service()
	if err != nil {
		ui.Fail(a.Err, "setup: "+err.Error())
		return 1
	}
	if err := svc.Delete(context.Background(), id); err != nil {
		code := a.alert(err)
		if api.IsNotFound(err) {
			ui.Hint(a.Err, "Hint: run `todo ls` to see valid ids")
		}
		return code
	}
	ui.OK(a.Out, fmt.Sprintf("removed #%d", id))
	return 0
}

func (a *App) doUI() int {
	svc, err := a.service()
	if err != nil {
		ui.Fail(a.Err, "setup: "+err.Error())
		return 1
	}
	if err := a.RunTUI(svc, a.Config.MetricsAddr); err != nil {
		ui.Fail(a.Err, "ui: "+err.Error())
		return 1
	}
	return 0
}

// alert prints the user-facing message of a failed mutation and its cause.
func (a *App) alert(err error) int {
	ui.Fail(a.Err, err.Error())
	if cause := errors.Unwrap(err); cause != nil {
		ui.Hint(a.Err, cause.Error())
	}
	return 1
}
