package util

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ServeStream accepts connections until ctx is cancelled and hands each one
// to handler through pool. It closes listener on return and waits for
// in-flight handlers.
func ServeStream(ctx context.Context, listener net.Listener, pool *WorkerPool, logger *zap.Logger, handler func(net.Conn)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	defer pool.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Error("Connection error", zap.Error(err))
			continue
		}

		if err := pool.Go(ctx, func() { handler(conn) }); err != nil {
			conn.Close()
			return nil
		}
	}
}

// ServeDatagram reads datagrams of at most bufferSize bytes until ctx is
// cancelled and hands a private copy of each payload to handler through
// pool.
func ServeDatagram(ctx context.Context, conn net.PacketConn, bufferSize int, pool *WorkerPool, logger *zap.Logger, handler func([]byte, net.Addr)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	defer pool.Wait()

	buffer := make([]byte, bufferSize)
	for {
		numRead, addr, err := conn.ReadFrom(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Error("Datagram error", zap.Error(err))
			continue
		}

		data := append([]byte(nil), buffer[:numRead]...)
		if err := pool.Go(ctx, func() { handler(data, addr) }); err != nil {
			return nil
		}
	}
}
