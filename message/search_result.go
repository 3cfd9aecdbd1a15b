package message

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

type SearchEntry struct {
	FileName string
	Peers    []string
}

// SearchResult maps file names to the peer addresses offering them. It is
// an ordered slice so the JSON object keeps the index's insertion order.
type SearchResult []SearchEntry

func (r SearchResult) FileNames() []string {
	names := make([]string, 0, len(r))
	for _, entry := range r {
		names = append(names, entry.FileName)
	}

	return names
}

func (r SearchResult) Peers(fileName string) ([]string, bool) {
	for _, entry := range r {
		if entry.FileName == fileName {
			return entry.Peers, true
		}
	}

	return nil, false
}

func (r SearchResult) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, entry := range r {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(entry.FileName)
		peers := entry.Peers
		if peers == nil {
			peers = []string{}
		}
		stream.WriteVal(peers)
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}

	return append([]byte(nil), stream.Buffer()...), nil
}

func (r *SearchResult) UnmarshalJSON(data []byte) error {
	if !jsoniter.Valid(data) {
		return errors.Wrapf(ErrMalformedResponse, "search response %q", truncate(data, 64))
	}

	iter := json.BorrowIterator(data)
	defer json.ReturnIterator(iter)

	result := SearchResult{}
	iter.ReadMapCB(func(iter *jsoniter.Iterator, fileName string) bool {
		var peers []string
		iter.ReadVal(&peers)
		result = append(result, SearchEntry{FileName: fileName, Peers: peers})
		return true
	})
	if iter.Error != nil && iter.Error != io.EOF {
		return errors.Wrap(ErrMalformedResponse, iter.Error.Error())
	}

	*r = result

	return nil
}

func truncate(data []byte, size int) []byte {
	if len(data) > size {
		return data[:size]
	}

	return data
}
