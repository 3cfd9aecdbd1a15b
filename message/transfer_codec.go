package message

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
)

// Frames of the peer to peer file-transfer protocol. A stream response is
// either FILE_NOT_FOUND or OK followed by the file bytes until the
// connection closes; in framed mode a little-endian uint64 byte count
// follows OK so the receiver can detect truncation. A datagram response is
// FILE_NOT_FOUND or OK: followed by the whole file in the same packet.

func WriteFileNotFound(w io.Writer) error {
	_, err := w.Write([]byte(FILE_NOT_FOUND_RESPONSE))
	return err
}

func WriteStreamFile(w io.Writer, file io.Reader, size int64, framed bool) (int64, error) {
	header := []byte(OK_RESPONSE)
	if framed {
		header = PrependDataSize(header, uint64(size))
	}

	if _, err := w.Write(header); err != nil {
		return 0, errors.Wrap(err, "writing transfer header")
	}

	numWritten, err := io.CopyBuffer(w, file, make([]byte, ChunkSize))
	if err != nil {
		return numWritten, errors.Wrap(err, "streaming file")
	}

	return numWritten, nil
}

// PrependDataSize appends the little-endian size to header.
func PrependDataSize(header []byte, size uint64) []byte {
	sizeBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(sizeBytes, size)

	return append(header, sizeBytes...)
}

func ReadStreamFile(r io.Reader, dst io.Writer, framed bool) (int64, error) {
	reader := bufio.NewReaderSize(r, ChunkSize)

	status, err := reader.Peek(len(OK_RESPONSE))
	if err != nil {
		return 0, errors.Wrap(ErrMalformedResponse, "response shorter than a status token")
	}

	if string(status) != OK_RESPONSE {
		rest, _ := ioutil.ReadAll(io.LimitReader(reader, int64(len(FILE_NOT_FOUND_RESPONSE)+1)))
		if string(rest) == FILE_NOT_FOUND_RESPONSE {
			return 0, ErrFileNotFound
		}

		return 0, errors.Wrapf(ErrMalformedResponse, "unexpected status %q", truncate(rest, 32))
	}
	reader.Discard(len(OK_RESPONSE))

	if !framed {
		numRead, err := io.Copy(dst, reader)
		return numRead, errors.Wrap(err, "receiving file")
	}

	var size uint64
	if err := binary.Read(reader, binary.LittleEndian, &size); err != nil {
		return 0, errors.Wrap(ErrTruncatedTransfer, "missing size header")
	}

	numRead, err := io.CopyN(dst, reader, int64(size))
	if err == io.EOF {
		return numRead, errors.Wrapf(ErrTruncatedTransfer, "got %d of %d bytes", numRead, size)
	}

	return numRead, errors.Wrap(err, "receiving file")
}

func EncodeDatagramFile(content []byte) []byte {
	return append([]byte(DATAGRAM_FILE_PREFIX), content...)
}

func DecodeDatagramFile(payload []byte) ([]byte, error) {
	if string(payload) == FILE_NOT_FOUND_RESPONSE {
		return nil, ErrFileNotFound
	}

	if !bytes.HasPrefix(payload, []byte(DATAGRAM_FILE_PREFIX)) {
		return nil, errors.Wrapf(ErrMalformedResponse, "unexpected datagram %q", truncate(payload, 32))
	}

	return payload[len(DATAGRAM_FILE_PREFIX):], nil
}
