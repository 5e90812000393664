package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"vectorportal/internal/adapter/discovery"
	"vectorportal/internal/adapter/gatewayclient"
	"vectorportal/internal/adapter/tui/uxerror"
	"vectorportal/internal/infra/config"
	"vectorportal/internal/infra/logger"
	"vectorportal/internal/infra/tracer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "--help", "-h", "help":
		showUsage()
		return
	case "--version", "version":
		fmt.Println("portal", version)
		return
	case "credential", "credentials":
		err = runWizard("credential", args)
	case "vectorstore", "vector-store", "vectorstores":
		err = runWizard("vector_store", args)
	case "apply":
		err = runApply(args)
	case "serve":
		err = runServe(args)
	case "watch":
		err = runWatch(args)
	case "doctor":
		err = runDoctor(args)
	case "seal":
		err = runSeal(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'portal --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", os.Args[1], uxerror.Message(err))
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`portal - configure credentials and vector stores

USAGE:
    portal <COMMAND> [FLAGS]

COMMANDS:
    credential     Create a credential with the interactive wizard
    vectorstore    Create a vector store with the interactive wizard
    apply          Run the wizard headless from an answers file
                   Flags: -f FILE, --yes
    serve          Run the reference Schema Provider Gateway
    watch          Monitor gateway events
                   Flags: --plain
    doctor         Check configuration and gateway health
    seal           Encrypt a config secret with PORTAL_CONFIG_KEY

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file (default: ~/.vectorportal/config.yaml)
    --gateway URL      Gateway URL, overrides gateway.url

CONFIGURATION:
    Environment: PORTAL_* variables override config
    Secrets:     values written as enc:... are opened with PORTAL_CONFIG_KEY

EXAMPLES:
    portal serve                        # Start a local gateway
    portal credential                   # Add a credential
    portal vectorstore --gateway http://10.0.0.5:8600
    portal apply -f answers.yaml --yes  # Scripted setup
    portal doctor`)
}

// flagValue returns the value of the first of names present in args, as
// either "--name value" or "--name=value".
func flagValue(args []string, names ...string) (string, bool) {
	for i, arg := range args {
		for _, name := range names {
			if arg == name && i+1 < len(args) {
				return args[i+1], true
			}
			if v, ok := strings.CutPrefix(arg, name+"="); ok {
				return v, true
			}
		}
	}
	return "", false
}

// hasFlag reports whether any of names is present in args.
func hasFlag(args []string, names ...string) bool {
	for _, arg := range args {
		for _, name := range names {
			if arg == name {
				return true
			}
		}
	}
	return false
}

func configPath(args []string) string {
	if p, ok := flagValue(args, "--config"); ok {
		return p
	}
	if p := os.Getenv("PORTAL_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath()
}

// app holds what every command needs once the config is loaded.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	cleanup []func()
}

func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// bootstrap loads the config and sets up logging and tracing. Interactive
// commands own the terminal, so their logs go to a file next to the
// config instead of stderr.
func bootstrap(ctx context.Context, args []string, service string, interactive bool) (*app, error) {
	path := configPath(args)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if u, ok := flagValue(args, "--gateway"); ok {
		cfg.Gateway.URL = u
	}
	if interactive && (cfg.Logger.Output == "stderr" || cfg.Logger.Output == "stdout" || cfg.Logger.Output == "") {
		cfg.Logger.Output = filepath.Join(filepath.Dir(path), "portal.log")
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.cleanup = append(a.cleanup, func() { _ = logCloser() })

	shutdown, err := tracer.Setup(ctx, service, cfg.Tracer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.cleanup = append(a.cleanup, func() { _ = shutdown(context.Background()) })
	return a, nil
}

// gatewayClient connects to the configured gateway, looking it up over
// mDNS first when discovery is enabled.
func (a *app) gatewayClient(ctx context.Context) (*gatewayclient.Client, error) {
	gw := a.cfg.Gateway
	if gw.Discover {
		url, err := discovery.Resolve(ctx, discovery.New(a.log))
		switch {
		case err == nil:
			a.log.Info("gateway discovered", "url", url)
			gw.URL = url
		case gw.URL == "":
			return nil, fmt.Errorf("discover gateway: %w", err)
		default:
			a.log.Warn("gateway discovery failed, using configured url", "url", gw.URL, "error", err)
		}
	}
	return gatewayclient.New(gw, a.log, gatewayclient.WithUserAgent("vectorportal/"+version))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
