package index

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"p2pindex/message"
)

func TestBadRequestsLogOneLineWithoutStack(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	server := NewServer(Config{}, nil, zap.New(core))
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.7"), Port: 4321}

	for _, request := range []string{`{"command":"search"`, `{"command":"register","files":["a"],"ip":"smtp:h:1"}`} {
		decoded, err := server.codec.DecodeRequest([]byte(request))
		server.dispatch(server.requestLogger(addr), decoded, err)
	}

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 2)
	for _, entry := range errorLogs {
		fields := entry.ContextMap()
		assert.NotContains(t, fields, "errorVerbose")
		assert.IsType(t, "", fields["error"])
		assert.NotContains(t, fields["error"], "\n")
		assert.Equal(t, "10.0.0.7", fields["remote"])
		assert.NotEmpty(t, fields["request"])
	}
	assert.Contains(t, errorLogs[0].ContextMap()["error"], message.INVALID_JSON_FORMAT)
	assert.Zero(t, server.Index().Len())
}
