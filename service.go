package main

import (
	"fmt"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"
)

const serviceName = "vaultmerge"

// ServiceCommand install/uninstall/start/stop the vaultmerge service
type ServiceCommand struct {
}

var serviceCommand ServiceCommand

type program struct{}

func (p *program) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *program) run() {}

func (p *program) Stop(s service.Service) error {
	// Stop should not block. Return with a few seconds.
	return nil
}

// serviceArguments are the options the installed service runs vaultmerge with
func serviceArguments(opts Options) []string {
	args := make([]string, 0)
	if opts.Configuration != "" {
		args = append(args, "--configuration="+opts.Configuration)
	}
	if opts.EnvFile != "" {
		args = append(args, "--env-file="+opts.EnvFile)
	}
	if opts.HTTPAddr != "" {
		args = append(args, "--http-addr="+opts.HTTPAddr)
	}
	if opts.LogLevel != "" {
		args = append(args, "--log-level="+opts.LogLevel)
	}
	return args
}

// Execute implement Execute() method defined in flags.Commander interface, executes the given command
func (sc ServiceCommand) Execute(args []string) error {
	if len(args) == 0 {
		showUsage()
		return nil
	}

	svcConfig := &service.Config{
		Name:        serviceName,
		DisplayName: serviceName,
		Description: "Encrypted union mount over cloud storage accounts",
		Arguments:   serviceArguments(options),
	}
	s, err := service.New(&program{}, svcConfig)
	if err != nil {
		log.WithError(err).Error("service init failed")
		return err
	}

	var action func() error
	switch args[0] {
	case "install":
		action = s.Install
	case "uninstall":
		action = func() error {
			_ = s.Stop()
			return s.Uninstall()
		}
	case "start":
		action = s.Start
	case "stop":
		action = s.Stop
	default:
		showUsage()
		return nil
	}

	if err := action(); err != nil {
		log.WithFields(log.Fields{log.ErrorKey: err, "action": args[0]}).Error("service action failed")
		fmt.Printf("Failed to %s service %s: %v\n", args[0], serviceName, err)
		return err
	}
	fmt.Printf("Succeed to %s service %s\n", args[0], serviceName)
	return nil
}

func showUsage() {
	fmt.Println("usage: vaultmerge service install/uninstall/start/stop")
}

func init() {
	parser.AddCommand("service",
		"install/uninstall/start/stop service",
		"install/uninstall/start/stop service",
		&serviceCommand)
}
