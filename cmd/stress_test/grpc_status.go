package main

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcStatus folds a gRPC result into the HTTP status the report counts.
func grpcStatus(err error) (int, error) {
	st, ok := status.FromError(err)
	if !ok {
		return 0, err
	}
	switch st.Code() {
	case codes.OK:
		return http.StatusOK, nil
	case codes.NotFound:
		return http.StatusNotFound, nil
	case codes.InvalidArgument:
		return http.StatusBadRequest, nil
	case codes.Unavailable:
		return http.StatusServiceUnavailable, nil
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, nil
	default:
		return http.StatusInternalServerError, nil
	}
}
