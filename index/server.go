package index

import (
	"context"
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"p2pindex/common"
	"p2pindex/message"
	"p2pindex/util"
)

type Config struct {
	// Address is the host:port the server binds.
	Address   string
	Transport common.Transport
	// Workers <= 1 handles requests strictly one at a time in arrival
	// order. Larger values run up to Workers handlers concurrently.
	Workers int
}

// Server answers register and search requests over a single transport
// chosen at construction: one request and one response per connection in
// stream mode, one datagram each way in datagram mode.
type Server struct {
	config     Config
	index      *FileIndex
	codec      message.MessageCodec
	logger     *zap.Logger
	pool       *util.WorkerPool
	listener   net.Listener
	packetConn net.PacketConn
}

func NewServer(config Config, index *FileIndex, logger *zap.Logger) *Server {
	if index == nil {
		index = NewFileIndex()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		config: config,
		index:  index,
		codec:  message.MessageCodecJSON{},
		logger: logger.Named("index"),
		pool:   util.NewWorkerPool(config.Workers),
	}
}

func (s *Server) Index() *FileIndex {
	return s.index
}

func (s *Server) Listen() error {
	var err error
	switch s.config.Transport {
	case common.TCP:
		s.listener, err = net.Listen("tcp", s.config.Address)
	case common.UDP:
		s.packetConn, err = net.ListenPacket("udp", s.config.Address)
	default:
		return errors.Wrapf(common.ErrUnsupportedTransport, "%q", s.config.Transport)
	}
	if err != nil {
		return errors.Wrapf(err, "listening on %s %s", s.config.Transport, s.config.Address)
	}

	s.logger.Info("Server started",
		zap.Stringer("addr", s.Addr()),
		zap.String("transport", string(s.config.Transport)),
		zap.Int("workers", s.config.Workers))

	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	if s.packetConn != nil {
		return s.packetConn.LocalAddr()
	}

	return nil
}

// Serve runs until ctx is cancelled. Listen must have been called.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener != nil {
		return util.ServeStream(ctx, s.listener, s.pool, s.logger, s.handleConnection)
	}
	if s.packetConn != nil {
		return util.ServeDatagram(ctx, s.packetConn, message.DatagramRequestSize, s.pool, s.logger, s.handleDatagram)
	}

	return errors.New("index server is not listening")
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	return s.Serve(ctx)
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	logger := s.requestLogger(conn.RemoteAddr())
	logger.Debug("New connection")

	request, err := s.codec.ReadRequest(conn)
	response := s.dispatch(logger, request, err)

	if _, err := conn.Write(response); err != nil {
		logger.Error("Error writing response", util.ErrorField(err))
	}
}

func (s *Server) handleDatagram(data []byte, addr net.Addr) {
	logger := s.requestLogger(addr)
	logger.Debug("New datagram", zap.Int("size", len(data)))

	request, err := s.codec.DecodeRequest(data)
	response := s.dispatch(logger, request, err)

	if _, err := s.packetConn.WriteTo(response, addr); err != nil {
		logger.Error("Error sending reply", zap.Int("size", len(response)), util.ErrorField(err))
	}
}

func (s *Server) requestLogger(addr net.Addr) *zap.Logger {
	return s.logger.With(
		zap.String("request", uuid.New().String()),
		zap.String("remote", common.GetHostFromAddr(addr)))
}
