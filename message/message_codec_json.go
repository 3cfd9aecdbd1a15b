package message

import (
	"bufio"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type MessageCodecJSON struct {
}

func (MessageCodecJSON) EncodeRegisterRequest(files []string, address string) ([]byte, error) {
	if files == nil {
		files = []string{}
	}

	return json.Marshal(RegisterRequest{
		Command: REGISTER_COMMAND,
		Files:   files,
		IP:      address,
	})
}

func (MessageCodecJSON) EncodeSearchRequest(query string) ([]byte, error) {
	return json.Marshal(SearchRequest{
		Command: SEARCH_COMMAND,
		Query:   query,
	})
}

func (MessageCodecJSON) EncodeSearchResult(result SearchResult) ([]byte, error) {
	return result.MarshalJSON()
}

func (MessageCodecJSON) DecodeRequest(data []byte) (Request, error) {
	var request Request
	if !jsoniter.Valid(data) {
		return request, errors.Wrap(ErrInvalidFormat, "not a json record")
	}

	if err := json.Unmarshal(data, &request); err != nil {
		return request, errors.Wrap(ErrInvalidFormat, err.Error())
	}

	return request, validateCommand(request)
}

// ReadRequest decodes exactly one record from r without waiting for the
// writer to close its side, reading at most MaxFrameSize bytes. Anything
// that does not open with '{' is rejected on its first byte, since a bare
// number or literal has no terminator and would wait for EOF.
func (MessageCodecJSON) ReadRequest(r io.Reader) (Request, error) {
	var request Request

	reader := bufio.NewReader(io.LimitReader(r, MaxFrameSize))
	if err := expectObject(reader); err != nil {
		return request, err
	}

	var raw jsoniter.RawMessage
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&raw); err != nil {
		return request, errors.Wrap(ErrInvalidFormat, err.Error())
	}

	return MessageCodecJSON{}.DecodeRequest(raw)
}

func (MessageCodecJSON) DecodeSearchResult(data []byte) (SearchResult, error) {
	var result SearchResult
	err := result.UnmarshalJSON(data)

	return result, err
}

func validateCommand(request Request) error {
	switch request.Command {
	case REGISTER_COMMAND, SEARCH_COMMAND:
		return nil
	}

	return errors.Wrapf(ErrUnknownCommand, "%q", request.Command)
}

// expectObject skips leading whitespace and leaves the '{' unread.
func expectObject(reader *bufio.Reader) error {
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return errors.Wrap(ErrInvalidFormat, "empty record")
		}

		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return reader.UnreadByte()
		}

		return errors.Wrapf(ErrInvalidFormat, "record starts with %q", b)
	}
}
