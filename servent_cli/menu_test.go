package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"p2pindex/message"
)

func TestResultItems(t *testing.T) {
	result := message.SearchResult{
		{FileName: "b.txt", Peers: []string{"tcp:1.1.1.1:6000", "udp:2.2.2.2:6000"}},
		{FileName: "a.txt", Peers: []string{"tcp:1.1.1.1:6000"}},
	}

	assert.Equal(t, []string{"b.txt (2 peers)", "a.txt (1 peers)", CANCEL_ITEM}, resultItems(result))
	assert.Equal(t, []string{CANCEL_ITEM}, resultItems(nil))
}

func TestPrintSearchResult(t *testing.T) {
	var out bytes.Buffer
	printSearchResult(&out, message.SearchResult{
		{FileName: "b.txt", Peers: []string{"tcp:1.1.1.1:6000", "udp:2.2.2.2:6000"}},
	})
	assert.Equal(t, "b.txt: tcp:1.1.1.1:6000, udp:2.2.2.2:6000\n", out.String())

	out.Reset()
	printSearchResult(&out, nil)
	assert.Equal(t, "No files found\n", out.String())
}
