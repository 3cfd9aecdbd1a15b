package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"p2pindex/common"
	"p2pindex/config"
	"p2pindex/discovery"
	"p2pindex/index"
	"p2pindex/logging"
)

var (
	addrFlag = &cli.StringFlag{
		Name:    "addr",
		Usage:   "host:port the index server listens on",
		EnvVars: []string{"INDEX_SERVICE_ADDR"},
	}
	transportFlag = &cli.StringFlag{
		Name:    "transport",
		Usage:   "tcp (stream) or udp (datagram)",
		EnvVars: []string{"INDEX_SERVICE_TRANSPORT"},
	}
	workersFlag = &cli.IntFlag{
		Name:    "workers",
		Usage:   "concurrent request handlers, 1 handles requests one at a time",
		EnvVars: []string{"INDEX_SERVICE_WORKERS"},
	}
	httpFlag = &cli.StringFlag{
		Name:    "http",
		Usage:   "serve the HTTP status API on this address",
		EnvVars: []string{"INDEX_SERVICE_HTTP"},
	}
	mdnsFlag = &cli.BoolFlag{
		Name:  "mdns",
		Usage: "advertise the index server over mDNS",
	}
)

func main() {
	app := &cli.App{
		Name:   "index_service",
		Usage:  "central file index for servents",
		Flags:  append([]cli.Flag{addrFlag, transportFlag, workersFlag, httpFlag, mdnsFlag}, config.Flags...),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func indexConfig(c *cli.Context) (config.Config, error) {
	conf, err := config.FromContext(c)
	if err != nil {
		return conf, err
	}

	if c.IsSet(addrFlag.Name) {
		conf.Index.Address = c.String(addrFlag.Name)
	}
	if c.IsSet(transportFlag.Name) {
		conf.Index.Transport = c.String(transportFlag.Name)
	}
	if c.IsSet(workersFlag.Name) {
		conf.Index.Workers = c.Int(workersFlag.Name)
	}
	if c.IsSet(httpFlag.Name) {
		conf.Index.HTTPAddress = c.String(httpFlag.Name)
	}
	if c.IsSet(mdnsFlag.Name) {
		conf.Index.MDNS = c.Bool(mdnsFlag.Name)
	}

	return conf, nil
}

func run(c *cli.Context) error {
	conf, err := indexConfig(c)
	if err != nil {
		return err
	}

	transport, err := common.ParseTransport(conf.Index.Transport)
	if err != nil {
		return err
	}

	logger, err := logging.New(conf.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := index.NewServer(index.Config{
		Address:   conf.Index.Address,
		Transport: transport,
		Workers:   conf.Index.Workers,
	}, nil, logger)
	if err := server.Listen(); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Serve(ctx)
	})

	if conf.Index.HTTPAddress != "" {
		handler := index.NewHTTPHandler(server.Index(), logger)
		group.Go(func() error {
			return index.ServeHTTP(ctx, conf.Index.HTTPAddress, handler)
		})
		logger.Info("HTTP API started", zap.String("address", conf.Index.HTTPAddress))
	}

	if conf.Index.MDNS {
		advertise(ctx, group, server.Addr(), transport, logger)
	}

	return group.Wait()
}

// advertise is best effort: the index keeps running without mDNS.
func advertise(ctx context.Context, group *errgroup.Group, addr net.Addr, transport common.Transport, logger *zap.Logger) {
	_, portString, err := net.SplitHostPort(addr.String())
	if err != nil {
		logger.Warn("Cannot advertise index", zap.Error(err))
		return
	}
	port, _ := strconv.Atoi(portString)

	instance, err := os.Hostname()
	if err != nil {
		instance = "index_service"
	}

	mdnsServer, err := discovery.Advertise(instance, transport, port)
	if err != nil {
		logger.Warn("Cannot advertise index", zap.Error(err))
		return
	}
	logger.Info("Advertising index over mDNS", zap.String("instance", instance), zap.Int("port", port))

	group.Go(func() error {
		<-ctx.Done()
		mdnsServer.Shutdown()
		return nil
	})
}
