package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/mitchellh/go-ps"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-groups/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-groups/internal/config"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/service/console"
	"github.com/oshokin/alarm-groups/internal/service/scheduler"
)

// Options controls the scheduler process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// NoConsole disables the interactive console; the daemon then runs until canceled.
	NoConsole bool
	// AllowMultiple skips the single-instance guard.
	AllowMultiple bool
	// In is the console input, defaults to stdin.
	In io.Reader
	// Out is the console output, defaults to stdout.
	Out io.Writer
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// errConsoleClosed ends the process group when the console reaches end of input.
var errConsoleClosed = errors.New("console closed")

// Run starts the engine, the gRPC server and the console, and blocks until ctx
// is canceled or the console input ends.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	closeLog, err := setupLogging(settings)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx = logger.WithName(ctx, "alarm-scheduler")

	if !opts.AllowMultiple {
		if err = ensureSingleInstance(ps.Processes); err != nil {
			return err
		}
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	engine := scheduler.New(
		scheduler.WithDisplayPeriod(settings.DisplayPeriod),
		scheduler.WithReaperPeriod(settings.ReaperPeriod),
	)

	err = serve(ctx, engine, lis, opts)
	if errors.Is(err, errConsoleClosed) {
		return nil
	}

	return err
}

// serve supervises the engine, the gRPC server on lis and the console.
func serve(ctx context.Context, engine *scheduler.Engine, lis net.Listener, opts *Options) error {
	grpcServer := grpc.NewServer()
	api.RegisterSchedulerServer(grpcServer, api.NewServer(engine))

	logger.InfoKV(ctx, "Alarm scheduler listening", "listen_address", lis.Addr().String())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(gctx)
	})

	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	if !opts.NoConsole {
		in, out := opts.In, opts.Out
		if in == nil {
			in = os.Stdin
		}

		if out == nil {
			out = os.Stdout
		}

		g.Go(func() error {
			if err := console.Run(gctx, in, out, engine); err != nil {
				return err
			}

			if gctx.Err() != nil {
				return nil
			}

			logger.Info(ctx, "Console input closed")

			return errConsoleClosed
		})
	}

	err := g.Wait()

	logger.Info(ctx, "Alarm scheduler stopped")

	return err
}

// setupLogging applies the configured level and, when a log file is configured,
// swaps the global logger for one that also writes rotated JSON files.
// The returned function restores the previous logger.
func setupLogging(settings *config.Config) (func(), error) {
	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	if settings.LogFile == "" {
		return func() {}, nil
	}

	file, err := logger.OpenRotatingFile(settings.LogFile, 0, 0)
	if err != nil {
		return nil, err
	}

	previous := logger.Logger()
	logger.SetLogger(logger.New(nil, logger.WithFile(file)))

	return func() {
		_ = logger.Logger().Sync()

		logger.SetLogger(previous)

		_ = file.Close()
	}, nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
