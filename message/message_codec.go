package message

import "io"

type MessageCodec interface {
	EncodeRegisterRequest(files []string, address string) ([]byte, error)
	EncodeSearchRequest(query string) ([]byte, error)
	EncodeSearchResult(result SearchResult) ([]byte, error)

	DecodeRequest(data []byte) (Request, error)
	ReadRequest(r io.Reader) (Request, error)
	DecodeSearchResult(data []byte) (SearchResult, error)
}
