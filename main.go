package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/vaultmerge/vaultmerge/config"
	"github.com/vaultmerge/vaultmerge/faults"
	"github.com/vaultmerge/vaultmerge/privilege"
	"github.com/vaultmerge/vaultmerge/process"
	"github.com/vaultmerge/vaultmerge/signals"
)

// Options are the global command line options
type Options struct {
	Configuration string `short:"c" long:"configuration" description:"the optional settings file"`
	EnvFile       string `long:"env-file" description:"the environment file to export before reading settings"`
	Daemon        bool   `short:"d" long:"daemon" description:"run as daemon"`
	LogLevel      string `long:"log-level" description:"log level: debug, info, warn or error" default:"info"`
	HTTPAddr      string `long:"http-addr" description:"listen address of the status server, disabled when empty"`
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{DisableColors: false, FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

var options Options
var parser = flags.NewParser(&options, flags.Default & ^flags.PrintErrors)

func initLogLevel() {
	level, err := log.ParseLevel(options.LogLevel)
	if err != nil {
		log.WithFields(log.Fields{"level": options.LogLevel}).Warn("unknown log level, keep info")
		return
	}
	log.SetLevel(level)
}

// loadSettings layers the settings file and the environment over the defaults
func loadSettings() (*config.Settings, error) {
	if options.EnvFile != "" {
		if err := config.LoadEnvFile(options.EnvFile); err != nil {
			return nil, err
		}
	}
	s, err := config.Load(options.Configuration)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if options.HTTPAddr != "" {
		s.HTTPAddr = options.HTTPAddr
	}
	return s, s.Validate()
}

func fatal(err error, msg string) {
	log.WithFields(log.Fields{log.ErrorKey: err, "exitCode": faults.ExitCode(err)}).Error(msg)
	os.Exit(faults.ExitCode(err))
}

// dropPrivileges re-executes vaultmerge as the configured user when running
// as root. It returns only when nothing had to be done.
func dropPrivileges(ctx context.Context, s *config.Settings) {
	target, ok := privilege.Plan(s, os.Geteuid(), os.Getenv)
	if !ok {
		return
	}
	err := privilege.NewDropper(*target, process.NewExec()).Drop(ctx)
	fatal(err, "fail to drop privileges")
}

// RunServer sets everything up, then waits for a stop signal
func RunServer() {
	initLogLevel()
	if os.Getpid() == 1 {
		ReapZombie()
	}
	ctx := context.Background()

	s, err := loadSettings()
	if err != nil {
		fatal(err, "fail to load settings")
	}
	stopSignals, err := signals.Parse(s.StopSignals)
	if err != nil {
		fatal(err, "fail to load settings")
	}
	dropPrivileges(ctx, s)

	o := NewOrchestrator(s, afero.NewOsFs(), process.NewExec())
	status := NewStatusServer(o)
	if s.HTTPAddr != "" {
		// the vault keeps running without the status server
		if err := status.Start(s.HTTPAddr); err != nil {
			log.WithError(err).Error("fail to start status server")
		}
	}

	// handlers are installed before the setup so an early signal still unmounts
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, stopSignals...)
	go func() {
		sig := <-sigs
		log.WithFields(log.Fields{"signal": sig}).Info("receive a signal to unmount & exit")
		status.Stop()
		if err := o.Shutdown(context.Background()); err != nil {
			log.WithError(err).Error("fail to unmount")
		} else {
			log.WithFields(log.Fields{"mountPoint": s.MountPoint}).Info("unmounted")
		}
		os.Exit(0)
	}()

	if err := o.Run(ctx); err != nil {
		fatal(err, "fail to set up the vault")
	}
	log.WithFields(log.Fields{"mountPoint": s.MountPoint}).Info("vault is set up, wait for a stop signal")
	select {}
}

func main() {
	if _, err := parser.Parse(); err != nil {
		flagsErr, ok := err.(*flags.Error)
		if ok {
			switch flagsErr.Type {
			case flags.ErrHelp:
				fmt.Fprintln(os.Stdout, err)
				os.Exit(0)
			case flags.ErrCommandRequired:
				if options.Daemon {
					Deamonize(RunServer)
				} else {
					RunServer()
				}
			default:
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
