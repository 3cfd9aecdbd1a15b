package servent

import (
	"context"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"p2pindex/common"
	"p2pindex/message"
	"p2pindex/util"
)

type ResponderConfig struct {
	Address   string
	Transport common.Transport
	Workers   int
	// Framed puts the file size after OK in stream responses.
	Framed bool
}

// Responder serves raw file requests from other servents.
type Responder struct {
	config     ResponderConfig
	files      *SharedFileSet
	logger     *zap.Logger
	pool       *util.WorkerPool
	listener   net.Listener
	packetConn net.PacketConn
}

func NewResponder(config ResponderConfig, files *SharedFileSet, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Responder{
		config: config,
		files:  files,
		logger: logger.Named("responder"),
		pool:   util.NewWorkerPool(config.Workers),
	}
}

func (r *Responder) Listen() error {
	var err error
	switch r.config.Transport {
	case common.TCP:
		r.listener, err = net.Listen("tcp", r.config.Address)
	case common.UDP:
		r.packetConn, err = net.ListenPacket("udp", r.config.Address)
	default:
		return errors.Wrapf(common.ErrUnsupportedTransport, "%q", r.config.Transport)
	}
	if err != nil {
		return errors.Wrapf(err, "listening on %s %s", r.config.Transport, r.config.Address)
	}

	r.logger.Info("File server started",
		zap.Stringer("addr", r.Addr()),
		zap.String("transport", string(r.config.Transport)),
		zap.Bool("framed", r.config.Framed))

	return nil
}

func (r *Responder) Addr() net.Addr {
	if r.listener != nil {
		return r.listener.Addr()
	}
	if r.packetConn != nil {
		return r.packetConn.LocalAddr()
	}

	return nil
}

func (r *Responder) Serve(ctx context.Context) error {
	if r.listener != nil {
		return util.ServeStream(ctx, r.listener, r.pool, r.logger, r.handleConnection)
	}
	if r.packetConn != nil {
		return util.ServeDatagram(ctx, r.packetConn, message.MaxFileNameSize, r.pool, r.logger, r.handleDatagram)
	}

	return errors.New("responder is not listening")
}

func (r *Responder) handleConnection(conn net.Conn) {
	defer conn.Close()

	logger := r.requestLogger(conn.RemoteAddr())

	buffer := make([]byte, message.MaxFileNameSize)
	numRead, err := conn.Read(buffer)
	if err != nil {
		logger.Error("Error reading file request", util.ErrorField(err))
		return
	}
	fileName := string(buffer[:numRead])
	logger = logger.With(zap.String("file", fileName))

	file, size, err := r.files.Open(fileName)
	if err != nil {
		logger.Info("File request for missing file", util.ErrorField(err))
		if err := message.WriteFileNotFound(conn); err != nil {
			logger.Error("Error serving file", util.ErrorField(err))
		}
		return
	}
	defer file.Close()

	numWritten, err := message.WriteStreamFile(conn, file, size, r.config.Framed)
	if err != nil {
		logger.Error("Error serving file", zap.Int64("sent", numWritten), util.ErrorField(err))
		return
	}

	logger.Info("Sent file", zap.Int64("bytes", numWritten))
}

// handleDatagram answers with the whole file in one datagram. Files larger
// than message.MaxDatagramSize cannot be sent; the write error is logged.
func (r *Responder) handleDatagram(data []byte, addr net.Addr) {
	fileName := string(data)
	logger := r.requestLogger(addr).With(zap.String("file", fileName))

	reply, err := r.datagramReply(fileName)
	if err != nil {
		logger.Info("File request for missing file", util.ErrorField(err))
		reply = []byte(message.FILE_NOT_FOUND_RESPONSE)
	}

	if _, err := r.packetConn.WriteTo(reply, addr); err != nil {
		logger.Error("Error serving file", zap.Int("size", len(reply)), util.ErrorField(err))
		return
	}

	logger.Info("Sent datagram", zap.Int("bytes", len(reply)))
}

func (r *Responder) datagramReply(fileName string) ([]byte, error) {
	file, size, err := r.files.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content := make([]byte, size)
	if _, err := io.ReadFull(file, content); err != nil {
		return nil, errors.Wrap(message.ErrFileNotFound, err.Error())
	}

	return message.EncodeDatagramFile(content), nil
}

func (r *Responder) requestLogger(addr net.Addr) *zap.Logger {
	return r.logger.With(
		zap.String("request", uuid.New().String()),
		zap.String("remote", common.GetHostFromAddr(addr)))
}
