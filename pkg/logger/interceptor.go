package logger

import (
	"context"
	"path"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pkgerrors "github.com/socialgouv/companion-launcher/pkg/errors"
)

// UnaryServerInterceptor returns a new unary server interceptor that logs requests.
// Successful calls are logged at debug level since health probes are frequent.
func UnaryServerInterceptor(logger Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		startTime := time.Now()
		method := path.Base(info.FullMethod)

		ctxLogger := LoggerFromContext(ctx, logger).WithFields(map[string]interface{}{
			FieldRequestID: getOrGenerateRequestID(ctx),
			FieldMethod:    method,
			FieldComponent: "grpc",
		})

		resp, err := handler(ctx, req)
		duration := float64(time.Since(startTime).Microseconds()) / 1000.0

		if err != nil {
			errFields := map[string]interface{}{
				FieldDuration: duration,
				FieldStatus:   status.Code(err).String(),
			}
			for k, v := range pkgerrors.GetFields(err) {
				errFields[k] = v
			}
			ctxLogger.WithFields(errFields).Error("Request failed")
			return resp, err
		}

		ctxLogger.WithFields(map[string]interface{}{
			FieldDuration: duration,
			FieldStatus:   codes.OK.String(),
		}).Debug("Request completed")

		return resp, nil
	}
}

// getOrGenerateRequestID gets the request ID from the metadata or generates a new one
func getOrGenerateRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("x-request-id"); len(values) > 0 {
			return values[0]
		}
	}
	return uuid.New().String()
}
