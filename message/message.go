package message

import (
	"github.com/pkg/errors"
)

const REGISTER_COMMAND = "register"
const SEARCH_COMMAND = "search"

// Response tokens of the index control protocol.
const (
	OK_RESPONSE             = "OK"
	INVALID_COMMAND         = "Invalid command"
	INVALID_JSON_FORMAT     = "Invalid JSON format"
	SERVER_ERROR            = "Server error"
	FILE_NOT_FOUND_RESPONSE = "FILE_NOT_FOUND"
	DATAGRAM_FILE_PREFIX    = "OK:"
)

const (
	// MaxFrameSize bounds one control record read from a stream connection.
	MaxFrameSize = 64 * 1024
	// DatagramRequestSize is the receive buffer used for datagram requests.
	DatagramRequestSize = 1024
	// MaxDatagramSize is the largest UDP payload over IPv4.
	MaxDatagramSize = 65507
	MaxFileNameSize = 1024
	ChunkSize       = 8192
)

var (
	ErrInvalidFormat     = errors.New(INVALID_JSON_FORMAT)
	ErrUnknownCommand    = errors.New(INVALID_COMMAND)
	ErrServerError       = errors.New(SERVER_ERROR)
	ErrFileNotFound      = errors.New("file not found")
	ErrMalformedResponse = errors.New("malformed response")
	ErrTruncatedTransfer = errors.New("truncated transfer")
)

type RegisterRequest struct {
	Command string   `json:"command"`
	Files   []string `json:"files"`
	IP      string   `json:"ip"`
}

type SearchRequest struct {
	Command string `json:"command"`
	Query   string `json:"query"`
}

// Request is the decoded form of any control record. Only the fields of
// the named command are meaningful.
type Request struct {
	Command string   `json:"command"`
	Files   []string `json:"files"`
	IP      string   `json:"ip"`
	Query   string   `json:"query"`
}

// ResponseToken maps a request handling error to the literal token sent
// back to the requester.
func ResponseToken(err error) string {
	switch {
	case err == nil:
		return OK_RESPONSE
	case errors.Is(err, ErrInvalidFormat):
		return INVALID_JSON_FORMAT
	case errors.Is(err, ErrUnknownCommand):
		return INVALID_COMMAND
	default:
		return SERVER_ERROR
	}
}
