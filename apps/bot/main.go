package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"spadesbot/apps/bot/internal/command"
	"spadesbot/apps/bot/internal/config"
	"spadesbot/apps/bot/internal/enginelink"
	"spadesbot/apps/bot/internal/gateway"
	"spadesbot/apps/bot/internal/ledger"
	"spadesbot/apps/bot/internal/logging"
	"spadesbot/apps/bot/internal/notify"
	"spadesbot/apps/bot/internal/present"
	"spadesbot/apps/bot/internal/session"
	"spadesbot/apps/bot/internal/supervisor"
)

const usage = "usage: spadesbot start|stop|restart"

type cli struct {
	Env string `help:"Optional .env file read before the environment." default:".env" type:"path"`

	Start   startCmd   `cmd:"" help:"Start the bot daemon."`
	Stop    stopCmd    `cmd:"" help:"Stop the bot daemon."`
	Restart restartCmd `cmd:"" help:"Restart the bot daemon."`
}

type startCmd struct {
	Foreground bool `help:"Run in the foreground instead of forking a daemon."`
}

type stopCmd struct{}

type restartCmd struct{}

type app struct {
	cfg config.Config
	sup *supervisor.Supervisor
}

func (c *startCmd) Run(a *app) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if c.Foreground {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return a.runBot(ctx)
	}
	return a.sup.Start(a.runBot)
}

func (c *stopCmd) Run(a *app) error {
	return a.sup.Stop()
}

func (c *restartCmd) Run(a *app) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	return a.sup.Restart(a.runBot)
}

func parseArgs(argv []string) (*cli, *kong.Context, error) {
	var args cli
	parser, err := kong.New(&args,
		kong.Name("spadesbot"),
		kong.Description("Discord spades bot."),
	)
	if err != nil {
		return nil, nil, err
	}
	kctx, err := parser.Parse(argv)
	if err != nil {
		return nil, nil, err
	}
	return &args, kctx, nil
}

func main() {
	args, kctx, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(args.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "spadesbot: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.LogLevel)

	a := &app{cfg: cfg, sup: supervisor.New(cfg.PIDFile, cfg.LogFile)}
	if err := kctx.Run(a); err != nil {
		fmt.Fprintf(os.Stderr, "spadesbot: %v\n", err)
		os.Exit(1)
	}
}

// runBot wires the bot together and blocks until ctx is done.
func (a *app) runBot(ctx context.Context) error {
	log := logging.For("Bot")
	cfg := a.cfg

	ledgerService, ledgerMode, err := ledger.NewServiceFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer ledgerService.Close()

	engine := enginelink.New(cfg.EngineURL, cfg.EngineTimeout)
	defer engine.Close()
	if err := engine.Connect(ctx); err != nil {
		log.Warnf("engine not reachable yet, will retry on first command: %v", err)
	}

	client, err := gateway.Dial(cfg.Token, cfg.Prefix)
	if err != nil {
		return err
	}

	registry := session.NewRegistry()
	defer registry.Close()

	router := command.New(command.Options{
		Prefix:         cfg.Prefix,
		Simulation:     cfg.Simulation,
		CommandTimeout: cfg.CommandTimeout,
	}, command.Deps{
		Registry:   registry,
		Engine:     engine,
		Dispatcher: notify.NewDispatcher(client),
		Replier:    client,
		Members:    client,
		Formatter:  present.New(cfg.Emoji.Clubs, cfg.Emoji.Diamonds, cfg.Emoji.Hearts, cfg.Emoji.Spades),
		Ledger:     ledgerService,
	})
	client.SetHandler(router)

	if err := client.Open(); err != nil {
		return err
	}
	defer client.Close()

	log.Infof("ledger mode: %s", ledgerMode)
	log.Infof("engine: %s", cfg.EngineURL)
	if cfg.Simulation {
		log.Warn("simulation mode on, users may hold several seats")
	}
	log.Infof("listening for %q commands", cfg.Prefix)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
