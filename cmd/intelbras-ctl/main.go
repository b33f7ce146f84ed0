package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	logp "github.com/charmbracelet/log"
	client "github.com/matbott/addons-alarma-intelbras"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "intelbras-ctl",
})

const usage = "usage: intelbras-ctl <ARM_AWAY|DISARM|STATUS> <ip> <port> <password>"

func main() {
	if len(os.Args) != 5 {
		log.Fatal(usage)
	}
	command, host, port, password := os.Args[1], os.Args[2], os.Args[3], os.Args[4]

	log.Info("running command", "command", command, "panel", host+":"+port)
	if err := run(client.New(host, port, client.DefaultTimeout), command, password); err != nil {
		switch {
		case errors.Is(err, client.ErrAuth):
			log.Fatal("authentication failed", "err", err)
		case errors.Is(err, client.ErrCommunication):
			log.Fatal("could not talk to the panel", "err", err)
		default:
			log.Fatal("command failed", "err", err)
		}
	}
}

func run(cli *client.Client, command, password string) error {
	defer func() {
		log.Info("closing connection")
		if err := cli.Close(); err != nil {
			log.Error("could not close connection", "err", err)
		}
	}()

	if err := cli.Connect(); err != nil {
		return err
	}
	if err := cli.Auth(password); err != nil {
		return err
	}
	log.Info("authenticated")

	switch command {
	case "ARM_AWAY":
		return cli.Arm(client.AllPartitions)
	case "DISARM":
		return cli.Disarm(client.AllPartitions)
	case "STATUS":
		status, err := cli.Status()
		if err != nil {
			return err
		}
		fmt.Printf("model:   %s\nversion: %s\nstate:   %s\nbattery: %s\ntamper:  %v\nsiren:   %v\nfiring:  %v\n",
			status.Model, status.Version, status.State, status.Battery,
			status.Tamper, status.Siren, status.ZonesFiring)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}
