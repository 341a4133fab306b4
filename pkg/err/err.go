package errprocess

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voicelink_service/pkg/logger"
)

// Set log errMsg and return it as an error
func Set(errMsg string, fields ...zap.Field) error {
	logger.Log.Error(errMsg, fields...)
	return errors.New(errMsg)
}

// Wrap log errMsg with the cause, the returned error still matches err via errors.Is
func Wrap(err error, errMsg string, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	logger.Log.Error(errMsg, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", errMsg, err)
}
