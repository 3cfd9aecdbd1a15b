package index

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"p2pindex/common"
	"p2pindex/message"
	"p2pindex/util"
)

// dispatch turns one decoded request into the bytes of its single response.
// Failures never touch the index.
func (s *Server) dispatch(logger *zap.Logger, request message.Request, decodeErr error) []byte {
	if decodeErr != nil {
		if errors.Is(decodeErr, message.ErrUnknownCommand) {
			logger.Warn("Invalid command received", zap.String("command", request.Command))
		} else {
			logger.Error("Invalid JSON received", util.ErrorField(decodeErr))
		}
		return []byte(message.ResponseToken(decodeErr))
	}

	switch request.Command {
	case message.REGISTER_COMMAND:
		if err := s.register(request); err != nil {
			logger.Error("Error processing request", util.ErrorField(err))
			return []byte(message.ResponseToken(err))
		}
		logger.Info("Registered files", zap.String("ip", request.IP), zap.Strings("files", request.Files))
		return []byte(message.OK_RESPONSE)

	case message.SEARCH_COMMAND:
		result := s.index.Search(request.Query)
		data, err := s.codec.EncodeSearchResult(result)
		if err != nil {
			logger.Error("Error processing request", util.ErrorField(err))
			return []byte(message.SERVER_ERROR)
		}
		logger.Info("Search query", zap.String("query", request.Query), zap.Int("results", len(result)))
		return data
	}

	logger.Warn("Invalid command received", zap.String("command", request.Command))
	return []byte(message.INVALID_COMMAND)
}

func (s *Server) register(request message.Request) error {
	address, err := common.ParseAddress(request.IP)
	if err != nil {
		return errors.Wrap(message.ErrServerError, err.Error())
	}

	s.index.Register(request.Files, address)

	return nil
}
