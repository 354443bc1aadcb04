package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Adrxx/adt-smart-security/cmd"
)

func main() {
	app := &cli.App{
		Name:   "adt-smart-security",
		Usage:  "controller for the ADT smart security web portal",
		Action: cmd.PortalCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "adt-username",
				EnvVars: []string{"ADT_USERNAME"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "adt-password",
				EnvVars: []string{"ADT_PASSWORD"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "adt-domain",
				EnvVars: []string{"ADT_DOMAIN"},
				Value:   "",
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				EnvVars: []string{"CACHE_TTL"},
			},
			&cli.StringSliceFlag{
				Name:    "bypass-sensors",
				EnvVars: []string{"BYPASS_SENSORS"},
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "listen-addr",
				EnvVars: []string{"LISTEN_ADDR"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
