package servent

import (
	"context"
	"io"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"p2pindex/common"
	"p2pindex/message"
	"p2pindex/util"
)

type ClientConfig struct {
	IndexAddress common.PeerAddress
	DownloadDir  string
	// Timeout bounds every exchange. Zero blocks until the other side
	// answers or the transport fails.
	Timeout time.Duration
	// Framed expects size-prefixed stream responses from responders.
	Framed bool
}

// Client talks to the index server and downloads from other servents. None
// of its operations return errors: failures are logged and reported as
// false or an empty result.
type Client struct {
	config ClientConfig
	codec  message.MessageCodec
	logger *zap.Logger
}

func NewClient(config ClientConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(config.DownloadDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating downloads dir %s", config.DownloadDir)
	}

	return &Client{
		config: config,
		codec:  message.MessageCodecJSON{},
		logger: logger.Named("client"),
	}, nil
}

func (c *Client) RegisterWithIndex(ctx context.Context, files []string, self common.PeerAddress) bool {
	request, err := c.codec.EncodeRegisterRequest(files, self.String())
	if err != nil {
		c.logger.Error("Error registering files", util.ErrorField(err))
		return false
	}

	response, err := c.requestIndex(ctx, request)
	if err != nil {
		c.logger.Error("Error registering files", zap.Stringer("index", c.config.IndexAddress), util.ErrorField(err))
		return false
	}

	if string(response) != message.OK_RESPONSE {
		c.logger.Error("Failed to register files", zap.ByteString("response", response))
		return false
	}

	c.logger.Info("Successfully registered files", zap.Int("count", len(files)), zap.Stringer("self", self))
	return true
}

func (c *Client) Search(ctx context.Context, query string) message.SearchResult {
	request, err := c.codec.EncodeSearchRequest(query)
	if err != nil {
		c.logger.Error("Error searching files", util.ErrorField(err))
		return message.SearchResult{}
	}

	response, err := c.requestIndex(ctx, request)
	if err != nil {
		c.logger.Error("Error searching files", zap.Stringer("index", c.config.IndexAddress), util.ErrorField(err))
		return message.SearchResult{}
	}

	result, err := c.codec.DecodeSearchResult(response)
	if err != nil {
		c.logger.Error("Error searching files", zap.String("query", query), util.ErrorField(err))
		return message.SearchResult{}
	}

	c.logger.Info("Search finished", zap.String("query", query), zap.Int("results", len(result)))
	return result
}

// Download fetches fileName from the servent at peerAddress into the
// downloads directory. Nothing is written unless the whole transfer
// succeeds.
func (c *Client) Download(ctx context.Context, fileName, peerAddress string) bool {
	logger := c.logger.With(zap.String("file", fileName), zap.String("peer", peerAddress))

	if !ValidFileName(fileName) {
		logger.Error("Refusing to download file with unsafe name")
		return false
	}

	address, err := common.ParseAddress(peerAddress)
	if err != nil {
		logger.Error("Error downloading file", util.ErrorField(err))
		return false
	}

	conn, err := c.dial(ctx, address)
	if err != nil {
		logger.Error("Error downloading file", util.ErrorField(err))
		return false
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(fileName)); err != nil {
		logger.Error("Error downloading file", util.ErrorField(err))
		return false
	}

	tmp, err := ioutil.TempFile(c.config.DownloadDir, "."+fileName+".part-*")
	if err != nil {
		logger.Error("Error downloading file", util.ErrorField(err))
		return false
	}

	numRead, err := c.receiveFile(conn, address.Transport, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(c.config.DownloadDir, fileName))
	}
	if err != nil {
		os.Remove(tmp.Name())
		if errors.Is(err, message.ErrFileNotFound) {
			logger.Error("File not found on peer")
		} else {
			logger.Error("Error downloading file", util.ErrorField(err))
		}
		return false
	}

	logger.Info("Successfully downloaded file", zap.Int64("bytes", numRead))
	return true
}

func (c *Client) receiveFile(conn net.Conn, transport common.Transport, dst io.Writer) (int64, error) {
	if transport == common.TCP {
		return message.ReadStreamFile(conn, dst, c.config.Framed)
	}

	buffer := make([]byte, message.MaxDatagramSize)
	numRead, err := conn.Read(buffer)
	if err != nil {
		return 0, errors.Wrap(err, "receiving datagram")
	}

	content, err := message.DecodeDatagramFile(buffer[:numRead])
	if err != nil {
		return 0, err
	}

	numWritten, err := dst.Write(content)
	return int64(numWritten), err
}

// requestIndex performs one request/response exchange with the index
// server. Stream responses end when the server closes the connection.
func (c *Client) requestIndex(ctx context.Context, request []byte) ([]byte, error) {
	conn, err := c.dial(ctx, c.config.IndexAddress)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(request); err != nil {
		return nil, errors.Wrap(err, "sending request")
	}

	if c.config.IndexAddress.Transport == common.UDP {
		buffer := make([]byte, message.MaxDatagramSize)
		numRead, err := conn.Read(buffer)
		if err != nil {
			return nil, errors.Wrap(err, "receiving reply")
		}
		return buffer[:numRead], nil
	}

	response, err := ioutil.ReadAll(conn)
	if err != nil {
		return nil, errors.Wrap(err, "receiving response")
	}

	return response, nil
}

func (c *Client) dial(ctx context.Context, address common.PeerAddress) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.config.Timeout}
	conn, err := dialer.DialContext(ctx, address.Network(), address.HostPort())
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", address)
	}

	if c.config.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(c.config.Timeout))
	}

	return conn, nil
}
