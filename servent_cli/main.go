package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"p2pindex/common"
	"p2pindex/config"
	"p2pindex/discovery"
	"p2pindex/logging"
	"p2pindex/servent"
	"p2pindex/util"
)

const DISCOVERY_TIMEOUT = 5 * time.Second

var (
	indexFlag = &cli.StringFlag{
		Name:    "index",
		Usage:   "index server address as transport:host:port",
		EnvVars: []string{"INDEX_ADDRESS"},
	}
	discoverFlag = &cli.BoolFlag{
		Name:  "discover",
		Usage: "find the index server over mDNS using the transport of --index",
	}
	transportFlag = &cli.StringFlag{
		Name:    "transport",
		Usage:   "tcp or udp for serving files to other servents",
		EnvVars: []string{"SERVENT_TRANSPORT"},
	}
	hostFlag = &cli.StringFlag{
		Name:    "host",
		Usage:   "host advertised to the index (defaults to the local address)",
		EnvVars: []string{"SERVENT_HOST"},
	}
	portFlag = &cli.UintFlag{
		Name:    "port",
		Usage:   "port for serving files, 0 picks a free one",
		EnvVars: []string{"SERVENT_PORT"},
	}
	sharedFlag = &cli.StringFlag{
		Name:    "shared",
		Usage:   "directory of shared files",
		EnvVars: []string{"SERVENT_SHARED_DIR"},
	}
	downloadsFlag = &cli.StringFlag{
		Name:    "downloads",
		Usage:   "directory downloaded files are written to",
		EnvVars: []string{"SERVENT_DOWNLOAD_DIR"},
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "concurrent file transfers served, 1 serves one at a time",
	}
	framedFlag = &cli.BoolFlag{
		Name:  "framed",
		Usage: "size-prefix stream file transfers",
	}
	watchFlag = &cli.BoolFlag{
		Name:  "watch",
		Usage: "register files added to the shared directory while running",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "bound every network exchange, 0 waits forever",
	}
	generateFlag = &cli.IntFlag{
		Name:  "generate",
		Usage: "create this many random files in the shared directory first",
	}
	interactiveFlag = &cli.BoolFlag{
		Name:    "it",
		Aliases: []string{"interactive"},
		Usage:   "run the interactive menu while serving",
	}
)

var clientFlags = append([]cli.Flag{
	indexFlag,
	discoverFlag,
	downloadsFlag,
	framedFlag,
	timeoutFlag,
}, config.Flags...)

func main() {
	app := &cli.App{
		Name:  "servent_cli",
		Usage: "share files through an index server and download them from peers",
		Flags: append([]cli.Flag{
			transportFlag,
			hostFlag,
			portFlag,
			sharedFlag,
			workersFlag,
			watchFlag,
			generateFlag,
			interactiveFlag,
		}, clientFlags...),
		Action: runServent,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "query the index server",
				ArgsUsage: "QUERY",
				Flags:     clientFlags,
				Action:    runSearch,
			},
			{
				Name:      "download",
				Usage:     "download a file from a peer",
				ArgsUsage: "FILE PEER",
				Flags:     clientFlags,
				Action:    runDownload,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serventConfig(c *cli.Context) (config.Config, error) {
	conf, err := config.FromContext(c)
	if err != nil {
		return conf, err
	}

	s := &conf.Servent
	if c.IsSet(indexFlag.Name) {
		s.Index = c.String(indexFlag.Name)
	}
	if c.IsSet(discoverFlag.Name) {
		s.Discover = c.Bool(discoverFlag.Name)
	}
	if c.IsSet(transportFlag.Name) {
		s.Transport = c.String(transportFlag.Name)
	}
	if c.IsSet(hostFlag.Name) {
		s.Host = c.String(hostFlag.Name)
	}
	if c.IsSet(portFlag.Name) {
		port := c.Uint(portFlag.Name)
		if port > 65535 {
			return conf, errors.Errorf("port %d out of range", port)
		}
		s.Port = uint16(port)
	}
	if c.IsSet(sharedFlag.Name) {
		s.SharedDir = c.String(sharedFlag.Name)
	}
	if c.IsSet(downloadsFlag.Name) {
		s.DownloadDir = c.String(downloadsFlag.Name)
	}
	if c.IsSet(workersFlag.Name) {
		s.Workers = c.Int(workersFlag.Name)
	}
	if c.IsSet(framedFlag.Name) {
		s.Framed = c.Bool(framedFlag.Name)
	}
	if c.IsSet(watchFlag.Name) {
		s.Watch = c.Bool(watchFlag.Name)
	}
	if c.IsSet(timeoutFlag.Name) {
		s.Timeout.Duration = c.Duration(timeoutFlag.Name)
	}
	if s.Host == "" {
		s.Host = util.GetMyHost()
	}

	return conf, nil
}

func indexAddress(ctx context.Context, conf config.ServentConfig, logger *zap.Logger) (common.PeerAddress, error) {
	address, err := common.ParseAddress(conf.Index)
	if err != nil {
		return address, errors.Wrap(err, "index address")
	}
	if !conf.Discover {
		return address, nil
	}

	ctx, cancel := context.WithTimeout(ctx, DISCOVERY_TIMEOUT)
	defer cancel()

	discovered, err := discovery.Lookup(ctx, address.Transport)
	if err != nil {
		logger.Warn("mDNS discovery failed, using configured index", zap.String("index", address.String()), zap.Error(err))
		return address, nil
	}
	logger.Info("Discovered index server", zap.String("index", discovered.String()))

	return discovered, nil
}

// setup loads the configuration and returns a logger and a context that is
// cancelled on SIGINT/SIGTERM. The caller runs cleanup.
func setup(c *cli.Context) (config.Config, *zap.Logger, context.Context, func(), error) {
	conf, err := serventConfig(c)
	if err != nil {
		return conf, nil, nil, nil, err
	}

	logger, err := logging.New(conf.Log)
	if err != nil {
		return conf, nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	cleanup := func() {
		stop()
		logger.Sync()
	}

	return conf, logger, ctx, cleanup, nil
}

func runServent(c *cli.Context) error {
	conf, logger, ctx, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	transport, err := common.ParseTransport(conf.Servent.Transport)
	if err != nil {
		return err
	}

	created, err := servent.EnsureSampleFile(conf.Servent.SharedDir)
	if err != nil {
		return err
	}
	if created {
		logger.Info("Created sample file", zap.String("file", servent.SAMPLE_FILE_NAME))
	}

	if n := c.Int(generateFlag.Name); n > 0 {
		names, err := util.GenerateFiles(conf.Servent.SharedDir, n)
		if err != nil {
			return err
		}
		logger.Info("Generated files", zap.Strings("files", names))
	}

	indexAddr, err := indexAddress(ctx, conf.Servent, logger)
	if err != nil {
		return err
	}

	node, err := servent.NewServent(servent.Config{
		IndexAddress: indexAddr,
		Self:         common.PeerAddress{Transport: transport, Host: conf.Servent.Host, Port: conf.Servent.Port},
		SharedDir:    conf.Servent.SharedDir,
		DownloadDir:  conf.Servent.DownloadDir,
		Workers:      conf.Servent.Workers,
		Framed:       conf.Servent.Framed,
		Timeout:      conf.Servent.Timeout.Duration,
		Watch:        conf.Servent.Watch,
	}, logger)
	if err != nil {
		return err
	}
	if err := node.Listen(); err != nil {
		return err
	}
	logger.Info("Servent started", zap.String("self", node.Self().String()), zap.String("index", indexAddr.String()))

	if !c.Bool(interactiveFlag.Name) {
		return node.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() {
		errc <- node.Run(ctx)
	}()

	runMenu(ctx, node)
	cancel()

	return <-errc
}

func newClient(c *cli.Context) (*servent.Client, *zap.Logger, context.Context, func(), error) {
	conf, logger, ctx, cleanup, err := setup(c)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	indexAddr, err := indexAddress(ctx, conf.Servent, logger)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	client, err := servent.NewClient(servent.ClientConfig{
		IndexAddress: indexAddr,
		DownloadDir:  conf.Servent.DownloadDir,
		Timeout:      conf.Servent.Timeout.Duration,
		Framed:       conf.Servent.Framed,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	return client, logger, ctx, cleanup, nil
}

func runSearch(c *cli.Context) error {
	if c.NArg() > 1 {
		return cli.Exit("usage: servent_cli search [QUERY]", 2)
	}

	client, _, ctx, cleanup, err := newClient(c)
	if err != nil {
		return err
	}
	defer cleanup()

	printSearchResult(os.Stdout, client.Search(ctx, c.Args().First()))

	return nil
}

func runDownload(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: servent_cli download FILE PEER", 2)
	}

	client, _, ctx, cleanup, err := newClient(c)
	if err != nil {
		return err
	}
	defer cleanup()

	fileName, peer := c.Args().Get(0), c.Args().Get(1)
	if !client.Download(ctx, fileName, peer) {
		return cli.Exit("Download of "+strconv.Quote(fileName)+" failed", 1)
	}
	fmt.Println("Downloaded", fileName)

	return nil
}
