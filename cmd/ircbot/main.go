package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dalnet/ircbot/internal/auth"
	"github.com/dalnet/ircbot/internal/bot"
	"github.com/dalnet/ircbot/internal/config"
	"github.com/dalnet/ircbot/internal/irc"
	"github.com/dalnet/ircbot/internal/logger"
	"github.com/dalnet/ircbot/internal/plugins/core"
	"github.com/dalnet/ircbot/internal/plugins/wikipedia"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Command line flags
	foreground := flag.Bool("x", false, "Run in foreground (don't daemonize)")
	configPath := flag.String("c", "./config.yaml", "Path to configuration file")
	showVersion := flag.Bool("v", false, "Show version information and exit")
	showVersionLong := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("ircbot version %s\n", version)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	irc.Version = version
	irc.BuildDate = buildDate
	irc.GitCommit = gitCommit

	// Daemonize unless -x flag is set
	if !*foreground {
		daemonize()
		return
	}

	run(*configPath)
}

// daemonize re-executes the binary detached, with -x so the child runs
// the bot instead of forking again.
func daemonize() {
	args := append([]string{}, os.Args[1:]...)
	args = append(args, "-x")

	cmd := exec.Command(os.Args[0], args...)
	cmd.Env = os.Environ()
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		logger.Logger.Fatal("failed to fork", "err", err)
	}
	fmt.Printf("Now becoming a daemon\nMy pid is %d\n", cmd.Process.Pid)
	os.Exit(0)
}

func writePIDFile(dataDir string) error {
	path := filepath.Join(dataDir, "pid.txt")
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

func run(configPath string) {
	// Make config path absolute
	if !filepath.IsAbs(configPath) {
		wd, _ := os.Getwd()
		configPath = filepath.Join(wd, configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Logger.Fatal("failed to load configuration", "err", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		logger.Logger.Fatal("failed to open log file", "err", err)
	}
	log := logger.Logger

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal("failed to create data directory", "err", err)
	}
	if err := writePIDFile(cfg.DataDir); err != nil {
		log.Warn("could not write PID file", "err", err)
	}

	store, err := auth.LoadFileStore(cfg.RolesFile)
	if err != nil {
		log.Fatal("failed to load roles", "err", err)
	}

	b := bot.New(cfg, store, log)
	if err := b.Load(core.New(), wikipedia.New()); err != nil {
		log.Fatal("failed to load plugins", "err", err)
	}

	client := b.NewClient()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGHUP {
				if err := store.Reload(); err != nil {
					log.Error("could not reload roles", "err", err)
				} else {
					log.Info("roles reloaded", "file", cfg.RolesFile)
				}
				continue
			}

			log.Info("shutting down", "signal", sig)
			client.Quit()
			b.Close()
			os.Exit(0)
		}
	}()

	log.Info("connecting", "server", cfg.Server, "port", cfg.Port)
	if err := client.Connect(); err != nil {
		log.Fatal("failed to connect", "err", err)
	}

	log.Info("connected, entering main loop")
	client.Loop()
	b.Close()
}
