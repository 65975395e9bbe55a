// internal/middleware/logging.go

package middleware

import (
	"context"
	"time"

	"github.com/jason-s-yu/uno/internal/dispatch"
	"github.com/sirupsen/logrus"
)

// LogRequests decorates a dispatch handler with request logging.
// Logs the type, session, player, duration and outcome of each request. Rule
// rejections are expected traffic and log at Info; anything else failing logs at Error.
func LogRequests(logger logrus.FieldLogger) func(next dispatch.HandlerFunc) dispatch.HandlerFunc {
	return func(next dispatch.HandlerFunc) dispatch.HandlerFunc {
		return func(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
			start := time.Now()

			resp, err := next(ctx, req)

			session := req.SessionID
			if err == nil {
				session = resp.SessionID
			}
			fields := logrus.Fields{
				"type":     req.Type,
				"session":  session,
				"player":   req.Player,
				"duration": time.Since(start),
			}
			if err != nil {
				code := dispatch.ErrorCode(err)
				fields["code"] = code
				entry := logger.WithFields(fields).WithError(err)
				if code == dispatch.CodeInternal {
					entry.Error("request failed")
				} else {
					entry.Info("request rejected")
				}
				return resp, err
			}
			fields["events"] = len(resp.Events)
			logger.WithFields(fields).Info("request handled")
			return resp, nil
		}
	}
}

// LogClientAttached logs a message when a client stream starts feeding requests.
func LogClientAttached(logger logrus.FieldLogger, source string) {
	logger.WithField("source", source).Info("client attached")
}

// LogClientDetached logs a message when a client stream ends.
func LogClientDetached(logger logrus.FieldLogger, source string, err error) {
	fields := logrus.Fields{"source": source}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("client detached")
}
