package index

import (
	"strings"

	"p2pindex/common"
	"p2pindex/message"
	"p2pindex/util"
)

// FileIndex maps file names to the addresses of the peers that registered
// them. It only grows; duplicate registrations are kept.
type FileIndex struct {
	files *util.ConcurrentStringMap
}

func NewFileIndex() *FileIndex {
	return &FileIndex{files: util.NewConcurrentStringMap()}
}

func (i *FileIndex) Register(files []string, address common.PeerAddress) {
	i.files.AppendToKeys(files, address.String())
}

// Search returns every file whose name contains query, in the order the
// names were first registered. An empty query matches everything.
func (i *FileIndex) Search(query string) message.SearchResult {
	result := message.SearchResult{}
	i.files.ApplyOperation(func(fileName string, peers []string) {
		if strings.Contains(fileName, query) {
			result = append(result, message.SearchEntry{FileName: fileName, Peers: peers})
		}
	})

	return result
}

func (i *FileIndex) Lookup(fileName string) ([]string, bool) {
	return i.files.Get(fileName)
}

func (i *FileIndex) Len() int {
	return i.files.Len()
}
