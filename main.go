package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"i4.energy/across/sim868/gpio"
	"i4.energy/across/sim868/modem"
)

const usage = `Usage: sim868 [flags] [action]

Actions:
  serve      run the HTTP control server (default)
  console    interactive AT command console
  network    register on the network and configure GPRS
  gps        run a GPS session
  http-get   fetch -url through the modem
  http-post  upload -payload to -url through the modem
  sms        send -text to -number
  call       call -number for -call-duration
  bt-scan    scan for Bluetooth devices

Flags:
`

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.String("serial-port", "/dev/ttyS0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("apn", "CMNET", "Access point name for GPRS")
	flag.Bool("strict", false, "Abort command sequences at the first failed step")
	flag.Int("startup-attempts", 0, "Give up startup after this many probes (0 retries forever)")
	flag.Int("power-pin", 14, "GPIO of the modem power key (-1 disables power control)")
	flag.Int("led-pin", 25, "GPIO of the status LED (-1 disables it)")
	flag.String("url", "", "Target URL for http-get and http-post")
	flag.String("payload", "", "Request body for http-post")
	flag.String("number", "", "Phone number for sms and call")
	flag.String("text", "", "Message text for sms")
	flag.Duration("call-duration", 10*time.Second, "How long call holds the line")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	action := "serve"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger, action); err != nil {
		logger.Error("Exiting", "action", action, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config *Config, logger *slog.Logger, action string) error {
	builder := modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		WithLogger(logger.With("component", "modem")).
		WithAPN(config.APN).
		WithStrict(config.Strict).
		WithStartupAttempts(config.StartupAttempts)

	if config.PowerPin >= 0 {
		pin, err := gpio.Open(config.GPIORoot, config.PowerPin)
		if err != nil {
			logger.Warn("Power key unavailable, running without power control", "pin", config.PowerPin, "error", err)
		} else {
			builder.WithPower(gpio.NewPowerKey(pin, gpio.WithLogger(logger.With("component", "power"))))
		}
	}

	var led gpio.Line
	if config.LEDPin >= 0 {
		pin, err := gpio.Open(config.GPIORoot, config.LEDPin)
		if err != nil {
			logger.Warn("Status LED unavailable", "pin", config.LEDPin, "error", err)
		} else {
			led = pin
		}
	}

	modemConfig, err := builder.Build()
	if err != nil {
		return fmt.Errorf("create modem config: %w", err)
	}

	m, err := modem.New(ctx, modemConfig)
	if err != nil {
		return fmt.Errorf("create modem: %w", err)
	}
	defer func() {
		logger.Info("Closing modem connection")
		if err := m.Close(); err != nil {
			logger.Error("Failed to close modem", "error", err)
		}
	}()

	logger.Info("Starting SIM868 controller", "modem", m.String(), "action", action)
	if _, err := m.Startup(ctx); err != nil {
		return err
	}
	if led != nil {
		go func() {
			if err := gpio.Blink(ctx, led, 2, time.Second); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Status LED failed", "error", err)
			}
		}()
	}
	notify(logger, daemon.SdNotifyReady)
	defer notify(logger, daemon.SdNotifyStopping)

	switch action {
	case "serve":
		return serve(ctx, config, logger, m)
	case "console":
		console := &Console{
			Logger: logger.With("component", "console"),
			Modem:  m,
			In:     os.Stdin,
			Out:    os.Stdout,
		}
		return console.Run(ctx)
	case "network":
		report, err := m.RegisterNetwork(ctx)
		logger.Info("Network registration finished",
			"registered", report.Registered,
			"attempts", report.Attempts,
			"failed_steps", len(report.Failed()),
		)
		return err
	case "gps":
		report, err := m.PollGPS(ctx)
		for _, fix := range report.Fixes {
			fmt.Println(fix)
		}
		return err
	case "http-get":
		if _, err := m.ConfigureBearer(ctx); err != nil {
			return err
		}
		body, err := m.HTTPGet(ctx, config.HTTPGetURL)
		if err != nil {
			return err
		}
		os.Stdout.Write(body)
		return nil
	case "http-post":
		if _, err := m.ConfigureBearer(ctx); err != nil {
			return err
		}
		return m.HTTPPost(ctx, config.HTTPPostURL, config.ContentType, []byte(config.PostPayload))
	case "sms":
		ack, err := m.SendSMS(ctx, config.PhoneNumber, config.SMSText)
		if err != nil {
			return err
		}
		logger.Info("SMS submitted", "ack", ack.Outcome.String())
		return nil
	case "call":
		return m.Call(ctx, config.PhoneNumber, config.CallDuration)
	case "bt-scan":
		scan, err := m.ScanBluetooth(ctx)
		if err != nil {
			return err
		}
		fmt.Println(scan.Text())
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown action %q", action)
	}
}

func serve(ctx context.Context, config *Config, logger *slog.Logger, m *modem.Modem) error {
	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger: logger.With("component", "server"),
			Modem:  m,
			Config: config,
		},
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 30*time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}
	return nil
}

// notify reports state to systemd. Outside a notify-type unit it does
// nothing.
func notify(logger *slog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		logger.Warn("Failed to notify systemd", "state", state, "error", err)
	case !sent:
		logger.Debug("Systemd notification not sent", "state", state)
	}
}
