package servent

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"p2pindex/common"
	"p2pindex/message"
)

type Config struct {
	IndexAddress common.PeerAddress
	// Self is the address advertised to the index. A zero port is replaced
	// by the port the responder actually bound.
	Self common.PeerAddress
	// ListenAddress is the responder bind address; empty means all
	// interfaces on Self.Port.
	ListenAddress string
	SharedDir     string
	DownloadDir   string
	Workers       int
	Framed        bool
	Timeout       time.Duration
	// Watch re-registers files that appear in SharedDir while running.
	Watch bool
}

// Servent is a peer node: it serves its shared files in the background and
// acts as a client of the index server and of other servents.
type Servent struct {
	config    Config
	files     *SharedFileSet
	responder *Responder
	client    *Client
	logger    *zap.Logger
}

func NewServent(config Config, logger *zap.Logger) (*Servent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := NewSharedFileSet(config.SharedDir, logger)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(ClientConfig{
		IndexAddress: config.IndexAddress,
		DownloadDir:  config.DownloadDir,
		Timeout:      config.Timeout,
		Framed:       config.Framed,
	}, logger)
	if err != nil {
		return nil, err
	}

	listenAddress := config.ListenAddress
	if listenAddress == "" {
		listenAddress = net.JoinHostPort("", strconv.FormatUint(uint64(config.Self.Port), 10))
	}

	responder := NewResponder(ResponderConfig{
		Address:   listenAddress,
		Transport: config.Self.Transport,
		Workers:   config.Workers,
		Framed:    config.Framed,
	}, files, logger)

	return &Servent{
		config:    config,
		files:     files,
		responder: responder,
		client:    client,
		logger:    logger,
	}, nil
}

func (s *Servent) Files() *SharedFileSet {
	return s.files
}

func (s *Servent) Client() *Client {
	return s.client
}

func (s *Servent) Self() common.PeerAddress {
	return s.config.Self
}

// Listen binds the responder and fixes the advertised port.
func (s *Servent) Listen() error {
	if err := s.responder.Listen(); err != nil {
		return err
	}

	if s.config.Self.Port == 0 {
		_, port, err := net.SplitHostPort(s.responder.Addr().String())
		if err != nil {
			return errors.Wrap(err, "reading bound port")
		}
		self, err := common.ParseAddress(string(s.config.Self.Transport) + ":" + s.config.Self.Host + ":" + port)
		if err != nil {
			return err
		}
		s.config.Self = self
	}

	return nil
}

// Run registers the shared files with the index, then serves file requests
// (and watches the shared dir when configured) until ctx is cancelled.
// A failed registration is logged and does not stop the servent.
func (s *Servent) Run(ctx context.Context) error {
	s.client.RegisterWithIndex(ctx, s.files.Names(), s.config.Self)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.responder.Serve(ctx)
	})

	if s.config.Watch {
		group.Go(func() error {
			return s.files.Watch(ctx, func(name string) {
				s.client.RegisterWithIndex(ctx, []string{name}, s.config.Self)
			})
		})
	}

	return group.Wait()
}

func (s *Servent) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	return s.Run(ctx)
}

func (s *Servent) Search(ctx context.Context, query string) message.SearchResult {
	return s.client.Search(ctx, query)
}

func (s *Servent) Download(ctx context.Context, fileName, peerAddress string) bool {
	return s.client.Download(ctx, fileName, peerAddress)
}
