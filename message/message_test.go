package message

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codec MessageCodec = MessageCodecJSON{}

func TestEncodeRequests(t *testing.T) {
	data, err := codec.EncodeRegisterRequest([]string{"a.txt", "b.txt"}, "tcp:127.0.0.1:6001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"register","files":["a.txt","b.txt"],"ip":"tcp:127.0.0.1:6001"}`, string(data))

	data, err = codec.EncodeRegisterRequest(nil, "udp:h:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"register","files":[],"ip":"udp:h:1"}`, string(data))

	data, err = codec.EncodeSearchRequest("")
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"search","query":""}`, string(data))
}

func TestDecodeRequest(t *testing.T) {
	request, err := codec.DecodeRequest([]byte(`{"command":"register","files":["x.txt"],"ip":"tcp:h:1"}`))
	require.NoError(t, err)
	assert.Equal(t, REGISTER_COMMAND, request.Command)
	assert.Equal(t, []string{"x.txt"}, request.Files)
	assert.Equal(t, "tcp:h:1", request.IP)

	request, err = codec.DecodeRequest([]byte(`{"command":"search","query":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", request.Query)
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		in    string
		token string
	}{
		{`hello`, INVALID_JSON_FORMAT},
		{`{"command":"search"`, INVALID_JSON_FORMAT},
		{``, INVALID_JSON_FORMAT},
		{`{"command":"search","query":5}`, INVALID_JSON_FORMAT},
		{`{"query":"x"}`, INVALID_COMMAND},
		{`{"command":"delete"}`, INVALID_COMMAND},
	}

	for _, tt := range tests {
		_, err := codec.DecodeRequest([]byte(tt.in))
		require.Error(t, err, tt.in)
		assert.Equal(t, tt.token, ResponseToken(err), tt.in)
	}
}

func TestReadRequestDoesNotNeedEOF(t *testing.T) {
	r := strings.NewReader(`{"command":"search","query":"a"}{"trailing":true}`)

	request, err := codec.ReadRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "a", request.Query)

	_, err = codec.ReadRequest(strings.NewReader(`not json`))
	assert.True(t, errors.Is(err, ErrInvalidFormat))
}

func TestReadRequestRejectsNonObjectsWithoutEOF(t *testing.T) {
	for _, in := range []string{"42", "  -7", "true", `"x"`, "[1,2]", "null"} {
		reader, writer := io.Pipe()
		go writer.Write([]byte(in))

		done := make(chan error, 1)
		go func() {
			_, err := codec.ReadRequest(reader)
			done <- err
		}()

		select {
		case err := <-done:
			assert.Equal(t, INVALID_JSON_FORMAT, ResponseToken(err), in)
		case <-time.After(2 * time.Second):
			t.Errorf("ReadRequest(%q) waited for more input", in)
		}
		writer.Close()
	}

	request, err := codec.ReadRequest(strings.NewReader("\n\t {\"command\":\"search\",\"query\":\"b\"}"))
	require.NoError(t, err)
	assert.Equal(t, "b", request.Query)
}

func TestResponseToken(t *testing.T) {
	assert.Equal(t, OK_RESPONSE, ResponseToken(nil))
	assert.Equal(t, SERVER_ERROR, ResponseToken(errors.New("boom")))
	assert.Equal(t, SERVER_ERROR, ResponseToken(errors.Wrap(ErrServerError, "no ip")))
}

func TestSearchResultKeepsOrder(t *testing.T) {
	result := SearchResult{
		{FileName: "zeta.txt", Peers: []string{"tcp:h:2", "tcp:h:1"}},
		{FileName: "alpha.txt", Peers: []string{"udp:h:3"}},
	}

	data, err := codec.EncodeSearchResult(result)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta.txt":["tcp:h:2","tcp:h:1"],"alpha.txt":["udp:h:3"]}`, string(data))

	decoded, err := codec.DecodeSearchResult(data)
	require.NoError(t, err)
	assert.Equal(t, result, decoded)
	assert.Equal(t, []string{"zeta.txt", "alpha.txt"}, decoded.FileNames())

	peers, ok := decoded.Peers("alpha.txt")
	require.True(t, ok)
	assert.Equal(t, []string{"udp:h:3"}, peers)
}

func TestEmptySearchResult(t *testing.T) {
	data, err := codec.EncodeSearchResult(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	decoded, err := codec.DecodeSearchResult(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeSearchResultRejectsTokens(t *testing.T) {
	for _, in := range []string{INVALID_COMMAND, SERVER_ERROR, `{"a":`, `["a"]`} {
		_, err := codec.DecodeSearchResult([]byte(in))
		assert.True(t, errors.Is(err, ErrMalformedResponse), in)
	}
}

func TestStreamFile(t *testing.T) {
	for _, framed := range []bool{false, true} {
		var wire bytes.Buffer
		numWritten, err := WriteStreamFile(&wire, strings.NewReader("hello"), 5, framed)
		require.NoError(t, err)
		assert.EqualValues(t, 5, numWritten)
		assert.True(t, bytes.HasPrefix(wire.Bytes(), []byte(OK_RESPONSE)))

		var out bytes.Buffer
		numRead, err := ReadStreamFile(&wire, &out, framed)
		require.NoError(t, err)
		assert.EqualValues(t, 5, numRead)
		assert.Equal(t, "hello", out.String())
	}
}

func TestStreamFileNotFound(t *testing.T) {
	var wire bytes.Buffer
	require.NoError(t, WriteFileNotFound(&wire))

	var out bytes.Buffer
	_, err := ReadStreamFile(&wire, &out, false)
	assert.Equal(t, ErrFileNotFound, err)
	assert.Zero(t, out.Len())
}

func TestFramedStreamDetectsTruncation(t *testing.T) {
	var wire bytes.Buffer
	_, err := WriteStreamFile(&wire, strings.NewReader("hel"), 5, true)
	require.NoError(t, err)

	_, err = ReadStreamFile(&wire, &bytes.Buffer{}, true)
	assert.True(t, errors.Is(err, ErrTruncatedTransfer))
}

func TestReadStreamFileMalformed(t *testing.T) {
	for _, in := range []string{"", "X", "NOPE"} {
		_, err := ReadStreamFile(strings.NewReader(in), &bytes.Buffer{}, false)
		assert.True(t, errors.Is(err, ErrMalformedResponse), in)
	}
}

func TestDatagramFile(t *testing.T) {
	payload := EncodeDatagramFile([]byte("hello"))
	assert.Equal(t, "OK:hello", string(payload))

	content, err := DecodeDatagramFile(payload)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	_, err = DecodeDatagramFile([]byte(FILE_NOT_FOUND_RESPONSE))
	assert.Equal(t, ErrFileNotFound, err)

	_, err = DecodeDatagramFile([]byte("OKhello"))
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}
