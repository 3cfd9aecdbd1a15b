package index

import (
	"context"
	"io/ioutil"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"p2pindex/common"
	"p2pindex/message"
)

func startServer(t *testing.T, transport common.Transport, workers int) *Server {
	t.Helper()

	server := NewServer(Config{Address: "127.0.0.1:0", Transport: transport, Workers: workers}, nil, zaptest.NewLogger(t))
	require.NoError(t, server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	return server
}

func roundTrip(t *testing.T, server *Server, request string) string {
	t.Helper()

	response, err := sendRequest(server.Addr(), request)
	require.NoError(t, err)

	return response
}

func sendRequest(addr net.Addr, request string) (string, error) {
	conn, err := net.Dial(addr.Network(), addr.String())
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(request)); err != nil {
		return "", err
	}

	if addr.Network() == "udp" {
		buffer := make([]byte, message.MaxDatagramSize)
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		numRead, err := conn.Read(buffer)
		return string(buffer[:numRead]), err
	}

	response, err := ioutil.ReadAll(conn)
	return string(response), err
}

func TestServerRegisterAndSearch(t *testing.T) {
	for _, transport := range []common.Transport{common.TCP, common.UDP} {
		t.Run(string(transport), func(t *testing.T) {
			server := startServer(t, transport, 1)

			assert.Equal(t, message.OK_RESPONSE,
				roundTrip(t, server, `{"command":"register","files":["a.txt","b.txt"],"ip":"tcp:127.0.0.1:6001"}`))
			assert.Equal(t, message.OK_RESPONSE,
				roundTrip(t, server, `{"command":"register","files":["a.txt"],"ip":"udp:127.0.0.1:6002"}`))

			assert.Equal(t, `{"a.txt":["tcp:127.0.0.1:6001","udp:127.0.0.1:6002"]}`,
				roundTrip(t, server, `{"command":"search","query":"a"}`))
			assert.Equal(t, `{"a.txt":["tcp:127.0.0.1:6001","udp:127.0.0.1:6002"],"b.txt":["tcp:127.0.0.1:6001"]}`,
				roundTrip(t, server, `{"command":"search","query":""}`))
			assert.Equal(t, `{}`, roundTrip(t, server, `{"command":"search","query":"zzz"}`))
		})
	}
}

func TestServerRejectsBadRequests(t *testing.T) {
	for _, transport := range []common.Transport{common.TCP, common.UDP} {
		t.Run(string(transport), func(t *testing.T) {
			server := startServer(t, transport, 1)

			assert.Equal(t, message.INVALID_JSON_FORMAT, roundTrip(t, server, `this is not a record`))
			assert.Equal(t, message.INVALID_COMMAND, roundTrip(t, server, `{"files":["ghost.txt"],"ip":"tcp:h:1"}`))
			assert.Equal(t, message.INVALID_COMMAND, roundTrip(t, server, `{"command":"delete","files":["ghost.txt"]}`))
			assert.Equal(t, message.SERVER_ERROR, roundTrip(t, server, `{"command":"register","files":["ghost.txt"]}`))
			assert.Equal(t, message.SERVER_ERROR, roundTrip(t, server, `{"command":"register","files":["ghost.txt"],"ip":"ftp:h:1"}`))

			assert.Equal(t, `{}`, roundTrip(t, server, `{"command":"search","query":""}`))
			assert.Zero(t, server.Index().Len())
		})
	}
}

func TestStreamServerAnswersPartialWrites(t *testing.T) {
	server := startServer(t, common.TCP, 1)

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"command":"register",`))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = conn.Write([]byte(`"files":["late.txt"],"ip":"tcp:h:9"}`))
	require.NoError(t, err)

	response, err := ioutil.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, message.OK_RESPONSE, string(response))
	assert.Equal(t, 1, server.Index().Len())
}

func TestStreamServerAnswersBareValueWithoutClose(t *testing.T) {
	server := startServer(t, common.TCP, 1)

	for _, request := range []string{"42", "true", `"x"`} {
		conn, err := net.Dial("tcp", server.Addr().String())
		require.NoError(t, err)

		_, err = conn.Write([]byte(request))
		require.NoError(t, err)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		response, err := ioutil.ReadAll(conn)
		conn.Close()
		require.NoError(t, err, request)
		assert.Equal(t, message.INVALID_JSON_FORMAT, string(response), request)
	}

	assert.Equal(t, `{}`, roundTrip(t, server, `{"command":"search","query":""}`))
}

func TestSequentialServerIsBlockedByStalledClient(t *testing.T) {
	server := startServer(t, common.TCP, 1)

	stalled, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)

	answered := make(chan string, 1)
	go func() {
		conn, err := net.Dial("tcp", server.Addr().String())
		if err != nil {
			answered <- err.Error()
			return
		}
		defer conn.Close()
		conn.Write([]byte(`{"command":"search","query":""}`))
		response, _ := ioutil.ReadAll(conn)
		answered <- string(response)
	}()

	select {
	case <-answered:
		t.Fatal("second client was served while the first one stalled")
	case <-time.After(100 * time.Millisecond):
	}

	stalled.Close()
	assert.Equal(t, `{}`, <-answered)
}

func TestWorkerPoolServesAroundStalledClient(t *testing.T) {
	server := startServer(t, common.TCP, 4)

	stalled, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer stalled.Close()

	response := make(chan string, 1)
	go func() {
		conn, err := net.Dial("tcp", server.Addr().String())
		if err != nil {
			response <- err.Error()
			return
		}
		defer conn.Close()
		conn.Write([]byte(`{"command":"search","query":""}`))
		data, _ := ioutil.ReadAll(conn)
		response <- string(data)
	}()

	select {
	case got := <-response:
		assert.Equal(t, `{}`, got)
	case <-time.After(5 * time.Second):
		t.Fatal("request queued behind a stalled client")
	}
	stalled.Close()
}

func TestConcurrentRegistrationsAreNotLost(t *testing.T) {
	server := startServer(t, common.TCP, 8)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			request := `{"command":"register","files":["shared.bin"],"ip":"tcp:10.0.0.1:` + strconv.Itoa(7000+i) + `"}`
			response, err := sendRequest(server.Addr(), request)
			assert.NoError(t, err)
			assert.Equal(t, message.OK_RESPONSE, response)
		}(i)
	}
	wg.Wait()

	peers, found := server.Index().Lookup("shared.bin")
	require.True(t, found)
	assert.Len(t, peers, 40)
}

func TestServeWithoutListen(t *testing.T) {
	server := NewServer(Config{Address: "127.0.0.1:0", Transport: common.TCP}, nil, nil)
	assert.Error(t, server.Serve(context.Background()))
	assert.Nil(t, server.Addr())

	bad := NewServer(Config{Address: "127.0.0.1:0", Transport: "sctp"}, nil, nil)
	assert.Error(t, bad.Listen())
}
