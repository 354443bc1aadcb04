package cmd

import (
	"context"
	"net/http"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Adrxx/adt-smart-security/internal/pkg/config"
	"github.com/Adrxx/adt-smart-security/internal/pkg/contxt"
	"github.com/Adrxx/adt-smart-security/internal/pkg/decoder"
	"github.com/Adrxx/adt-smart-security/internal/pkg/mqtt"
	"github.com/Adrxx/adt-smart-security/internal/pkg/portal"
	"github.com/Adrxx/adt-smart-security/internal/pkg/publisher"
	"github.com/Adrxx/adt-smart-security/internal/pkg/server"
)

// PortalCommand is the entry point for the portal controller CLI. It
// builds configuration from environment defaults plus flag overrides
// and starts all services.
func PortalCommand(ctx *cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if v := ctx.String("adt-username"); v != "" {
		cfg.PortalCfg.Username = v
	}
	if v := ctx.String("adt-password"); v != "" {
		cfg.PortalCfg.Password = v
	}
	if v := ctx.String("adt-domain"); v != "" {
		cfg.PortalCfg.Domain = v
	}
	if v := ctx.Duration("cache-ttl"); v > 0 {
		cfg.PortalCfg.CacheTTL = v
	}
	if v := ctx.StringSlice("bypass-sensors"); len(v) > 0 {
		cfg.PortalCfg.BypassSensors = v
	}
	if v := ctx.String("mqtt-host"); v != "" {
		cfg.MqttCfg.Host = v
	}
	if v := ctx.String("mqtt-user"); v != "" {
		cfg.MqttCfg.Username = v
	}
	if v := ctx.String("mqtt-pass"); v != "" {
		cfg.MqttCfg.Password = v
	}
	if v := ctx.String("listen-addr"); v != "" {
		cfg.ListenAddr = v
	}
	if v := ctx.String("log-level"); v != "" {
		cfg.LogLevel = v
	}

	return run(ctx.Context, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	errorChan := make(chan error, 1000)
	var err error

	eg, ctx := errgroup.WithContext(ctx)
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if cfg.MqttCfg.Host != "" {
		opts := paho_mqtt.NewClientOptions().
			AddBroker(cfg.MqttCfg.Host).
			SetUsername(cfg.MqttCfg.Username).
			SetPassword(cfg.MqttCfg.Password)
		mqttSvc := mqtt.New(paho_mqtt.NewClient(opts))
		if err := mqttSvc.Connect(); err != nil {
			return err
		}
		if err := publisher.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return err
		}
	}

	var portalSvc PortalService = portal.New(cfg.PortalCfg, decoder.New(), errorChan)
	if err := portalSvc.Start(ctx); err != nil {
		return err
	}

	eg.Go(func() error {
		return portalSvc.RunRecovery(ctx)
	})

	eg.Go(func() error {
		// fan portal events out to the registered publishers
		sub := portalSvc.Subscribe()
		defer portalSvc.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev := <-sub:
				if ev.State == nil {
					continue
				}
				if err := publisher.PublishState(ctx, ev.State); err != nil {
					logger.Error("failed to publish state", zap.Error(err))
				}
			}
		}
	})

	eg.Go(func() error {
		return cronSessionKeepalive(portalSvc, errorChan)
	})

	eg.Go(func() error {
		srv := &http.Server{
			Handler:      server.New(portalSvc).Handler(),
			Addr:         cfg.ListenAddr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}
		return srv.ListenAndServe()
	})

	eg.Go(func() error {
		// handle any async errors from the portal service
		for {
			select {
			case err := <-errorChan:
				logger.Error("portal error, recovery in progress", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

// cronSessionKeepalive re-authenticates nightly, ahead of the portal's
// idle timeout, so the regular refresh path rarely has to go through
// the recovery loop at all. It runs the full login, fetch and reseed
// cycle: a bare login would leave the cache absent with no TTL clock
// running.
func cronSessionKeepalive(svc PortalService, errChan chan error) error {
	c := cron.New()
	if _, err := c.AddFunc("30 4 * * *", func() {
		if err := svc.Reauthenticate(contxt.NewContext(time.Minute)); err != nil {
			zap.L().Error("scheduled re-login failed", zap.Error(err))
			errChan <- err
			return
		}
		zap.L().Info("scheduled re-login succeeded")
	}); err != nil {
		return err
	}

	c.Run()
	return nil
}
