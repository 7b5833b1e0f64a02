// Command refda-agent runs the reference DTN management agent: it loads
// configuration, wires the builtin ADMs and one worked ODM against an
// agent.Agent, starts whichever transports are enabled, and serves a
// read-only observability HTTP API alongside it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/jhuapl-dtnma/refda-go/internal/api"
	"github.com/jhuapl-dtnma/refda-go/internal/config"
	"github.com/jhuapl-dtnma/refda-go/internal/logger"
	"github.com/jhuapl-dtnma/refda-go/internal/service"
	"github.com/jhuapl-dtnma/refda-go/pkg/adm/ammbase"
	"github.com/jhuapl-dtnma/refda-go/pkg/adm/ammsemtype"
	"github.com/jhuapl-dtnma/refda-go/pkg/adm/dtnmaagent"
	"github.com/jhuapl-dtnma/refda-go/pkg/adm/ietfalarms"
	"github.com/jhuapl-dtnma/refda-go/pkg/adm/networkbase"
	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
	"github.com/jhuapl-dtnma/refda-go/pkg/odm/demo"
	"github.com/jhuapl-dtnma/refda-go/pkg/transport/proxysock"
	"github.com/jhuapl-dtnma/refda-go/pkg/transport/unixsock"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config.toml (defaults to the platform data dir)")
	writeExample := flag.String("write-example-config", "", "write an example config.toml to this path and exit")
	flag.Parse()

	if *writeExample != "" {
		if err := config.WriteExampleConfig(*writeExample); err != nil {
			fmt.Fprintf(os.Stderr, "write example config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path := *configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "ensure directories: %v\n", err)
		os.Exit(1)
	}
	log := logger.SetupLogger(cfg)
	defer logger.Stop()

	if err := run(cfg, path, log); err != nil {
		log.Error().Err(err).Msg("refda-agent exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, log arbor.ILogger) error {
	a, sock, err := newAgent(cfg)
	if err != nil {
		return fmt.Errorf("construct agent: %w", err)
	}
	defer sock.Close()

	daemon := service.NewDaemon(cfg, a)
	apiServer := api.NewServer(cfg, a)
	api.SetVersion(version)
	api.SetInstanceID(uuid.NewString())

	// Logging is the only setting safe to apply without a restart: level
	// and output destinations don't change anything the running workers,
	// transport, or bound socket depend on.
	if watcher, err := config.NewWatcher(configPath, func(updated *config.Config) {
		logger.SetupLogger(updated)
		log.Info().Msg("reloaded logging configuration")
	}); err != nil {
		log.Warn().Err(err).Msg("config watcher disabled")
	} else if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("config watcher disabled")
	} else {
		defer watcher.Stop()
	}

	ctx := context.Background()
	if err := daemon.Start(ctx, apiServer.Handler()); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	if cfg.Transport.ProxyStdioEnabled {
		go serveProxyStdio(a, cfg, version)
	}

	log.Info().Str("address", cfg.Address()).Bool("unix_socket", cfg.Transport.UnixSocketEnabled).
		Bool("proxy_stdio", cfg.Transport.ProxyStdioEnabled).Msg("refda-agent started")

	daemon.Wait()
	return nil
}

// newAgent builds and initializes the agent: store/timeline/queues, every
// builtin ADM in dependency order, the worked ODM example, and the unix
// datagram socket transport (cfg.Validate rejects a config with it
// disabled, since it backs both direct dialers and the stdio proxy). The
// caller owns the returned socket's lifetime and must Close it on shutdown.
func newAgent(cfg *config.Config) (*agent.Agent, *unixsock.Socket, error) {
	sock, err := unixsock.Listen(cfg.Transport.UnixSocketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("listen unix socket: %w", err)
	}

	a, err := agent.New(
		agent.WithConfig(agent.Config{
			ExecQueueDepth:      cfg.Agent.ExecQueueDepth,
			ReportHistoryDepth:  cfg.Agent.ReportHistoryDepth,
			AlarmMaxHistory:     cfg.Agent.AlarmMaxHistory,
			AlarmCompressWindow: cfg.Agent.AlarmCompressWindow(),
		}),
		agent.WithTransport(sock),
	)
	if err != nil {
		return nil, nil, err
	}
	a.Init()

	if err := a.RegisterBuiltins(
		ammbase.New(),
		ammsemtype.New(),
		networkbase.New(),
		dtnmaagent.New(),
		ietfalarms.New(),
		demo.New(),
	); err != nil {
		return nil, nil, fmt.Errorf("register builtins: %w", err)
	}

	if err := a.Bindrefs(); err != nil {
		return nil, nil, fmt.Errorf("bind references: %w", err)
	}

	return a, sock, nil
}

// serveProxyStdio runs the MCP-over-stdio proxy transport, submitting
// decoded EXECSETs through a dedicated unix socket dial rather than the
// agent's primary transport, so the two transports can run side by side
// without contending over a.transport's single Sender/Receiver slot.
func serveProxyStdio(a *agent.Agent, cfg *config.Config, version string) {
	ingress := func(ctx context.Context, raw []byte) error {
		client, err := unixsock.Dial(cfg.Transport.UnixSocketPath)
		if err != nil {
			return err
		}
		defer client.Close()
		return client.Send(ctx, raw)
	}

	srv := proxysock.New("refda-agent", version, ingress, a.ReportQueue())
	if err := srv.ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "proxy stdio server exited: %v\n", err)
	}
}
