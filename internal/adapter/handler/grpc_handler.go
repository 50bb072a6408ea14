package handler

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/stock-lookup/internal/core/domain"
	"github.com/rl1809/stock-lookup/internal/core/service"
	logx "github.com/rl1809/stock-lookup/pkg/logger"
)

const lookupServiceName = "stocklookup.v1.LookupService"

type GetBySKURequest struct {
	SKU string `json:"sku"`
}

type GetBySKUResponse struct {
	Record *domain.ProductRecord `json:"record"`
}

type GetBySKUsRequest struct {
	SKUs []string `json:"skus"`
}

type BatchItem struct {
	SKU    string                `json:"sku"`
	Found  bool                  `json:"found"`
	Error  string                `json:"error,omitempty"`
	Code   string                `json:"code,omitempty"`
	Record *domain.ProductRecord `json:"record,omitempty"`
}

type GetBySKUsResponse struct {
	Results []BatchItem `json:"results"`
}

// LookupServiceServer is the server API for stocklookup.v1.LookupService.
type LookupServiceServer interface {
	GetBySKU(context.Context, *GetBySKURequest) (*GetBySKUResponse, error)
	GetBySKUs(context.Context, *GetBySKUsRequest) (*GetBySKUsResponse, error)
}

type GRPCHandler struct {
	lookupService *service.LookupService
}

func NewGRPCHandler(lookupService *service.LookupService) *GRPCHandler {
	return &GRPCHandler{lookupService: lookupService}
}

func (h *GRPCHandler) GetBySKU(ctx context.Context, req *GetBySKURequest) (*GetBySKUResponse, error) {
	record, err := h.lookupService.GetBySKU(ctx, req.SKU)
	if err != nil {
		return nil, grpcError(err)
	}
	return &GetBySKUResponse{Record: record}, nil
}

func (h *GRPCHandler) GetBySKUs(ctx context.Context, req *GetBySKUsRequest) (*GetBySKUsResponse, error) {
	results, err := h.lookupService.GetBySKUs(ctx, req.SKUs)
	if err != nil {
		return nil, grpcError(err)
	}

	resp := &GetBySKUsResponse{Results: make([]BatchItem, len(results))}
	for i, r := range results {
		if !r.Found() {
			m := r.Marker()
			resp.Results[i] = BatchItem{SKU: m.SKU, Error: m.Error, Code: m.Code}
			continue
		}
		resp.Results[i] = BatchItem{SKU: r.SKU, Found: true, Record: r.Record}
	}
	return resp, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return status.Error(codes.NotFound, domain.NotFoundMessage)
	case errors.Is(err, service.ErrInvalidSKU), errors.Is(err, service.ErrBatchSize):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return status.Error(codes.Unavailable, "catalog store temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "catalog store timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	default:
		return status.Error(codes.Internal, "catalog store failure")
	}
}

// LoggingInterceptor logs each unary call with its duration and status code.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)

	logx.Ctx(ctx).Info().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("duration", time.Since(start)).
		Msg("rpc")
	return resp, err
}

func RegisterLookupServiceServer(s grpc.ServiceRegistrar, srv LookupServiceServer) {
	s.RegisterService(&lookupServiceDesc, srv)
}

var lookupServiceDesc = grpc.ServiceDesc{
	ServiceName: lookupServiceName,
	HandlerType: (*LookupServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBySKU", Handler: getBySKUHandler},
		{MethodName: "GetBySKUs", Handler: getBySKUsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stocklookup/v1/lookup.proto",
}

func getBySKUHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBySKURequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LookupServiceServer).GetBySKU(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + lookupServiceName + "/GetBySKU"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LookupServiceServer).GetBySKU(ctx, req.(*GetBySKURequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getBySKUsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBySKUsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LookupServiceServer).GetBySKUs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + lookupServiceName + "/GetBySKUs"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LookupServiceServer).GetBySKUs(ctx, req.(*GetBySKUsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type LookupServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLookupServiceClient(cc grpc.ClientConnInterface) *LookupServiceClient {
	return &LookupServiceClient{cc: cc}
}

func (c *LookupServiceClient) GetBySKU(ctx context.Context, in *GetBySKURequest, opts ...grpc.CallOption) (*GetBySKUResponse, error) {
	out := new(GetBySKUResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+lookupServiceName+"/GetBySKU", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LookupServiceClient) GetBySKUs(ctx context.Context, in *GetBySKUsRequest, opts ...grpc.CallOption) (*GetBySKUsResponse, error) {
	out := new(GetBySKUsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+lookupServiceName+"/GetBySKUs", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
