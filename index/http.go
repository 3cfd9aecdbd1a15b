package index

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"p2pindex/message"
)

// NewHTTPHandler exposes a read-only view of the index for operators.
func NewHTTPHandler(index *FileIndex, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	codec := message.MessageCodecJSON{}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger.Named("http")))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "files": index.Len()})
	})

	router.GET("/search", func(c *gin.Context) {
		data, err := codec.EncodeSearchResult(index.Search(c.Query("q")))
		if err != nil {
			c.String(http.StatusInternalServerError, message.SERVER_ERROR)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	})

	router.GET("/files/:name", func(c *gin.Context) {
		peers, found := index.Lookup(c.Param("name"))
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": message.FILE_NOT_FOUND_RESPONSE})
			return
		}
		c.JSON(http.StatusOK, gin.H{"file": c.Param("name"), "peers": peers})
	})

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

// ServeHTTP runs the handler on addr until ctx is cancelled.
func ServeHTTP(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{Addr: addr, Handler: handler}

	errc := make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http shutdown")
		}
		<-errc
		return nil
	}
}
