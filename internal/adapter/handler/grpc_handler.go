package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/logging"
)

// JSONCodecName is the content subtype of the admin service. Messages are
// plain Go structs encoded as JSON, so no generated code is needed.
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type ListOrdersRequest struct {
	OperatorID int64 `json:"operator_id"`
}

type ListOrdersResponse struct {
	Orders []OrderView `json:"orders"`
}

type OrderActionRequest struct {
	OperatorID  int64 `json:"operator_id"`
	RequesterID int64 `json:"requester_id"`
}

type ConfirmOrderResponse struct {
	Result ConfirmView `json:"result"`
}

type CancelOrderResponse struct {
	Order OrderView `json:"order"`
}

type OrderAdminServer interface {
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	ConfirmOrder(context.Context, *OrderActionRequest) (*ConfirmOrderResponse, error)
	CancelOrder(context.Context, *OrderActionRequest) (*CancelOrderResponse, error)
}

const orderAdminService = "storefront.OrderAdmin"

var OrderAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: orderAdminService,
	HandlerType: (*OrderAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListOrders", Handler: listOrdersHandler},
		{MethodName: "ConfirmOrder", Handler: confirmOrderHandler},
		{MethodName: "CancelOrder", Handler: cancelOrderHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/order_admin",
}

func RegisterOrderAdminServer(s grpc.ServiceRegistrar, srv OrderAdminServer) {
	s.RegisterService(&OrderAdminServiceDesc, srv)
}

func listOrdersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderAdminService + "/ListOrders"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderAdminServer).ListOrders(ctx, req.(*ListOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func confirmOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(OrderActionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).ConfirmOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderAdminService + "/ConfirmOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderAdminServer).ConfirmOrder(ctx, req.(*OrderActionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(OrderActionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderAdminServer).CancelOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderAdminService + "/CancelOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderAdminServer).CancelOrder(ctx, req.(*OrderActionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AuthInterceptor rejects admin service calls whose "authorization" metadata
// is not "Bearer <adminToken>". Other services on the server, such as
// health checks, pass through.
func AuthInterceptor(adminToken string, logger logging.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = logging.Discard()
	}
	want := []byte(adminToken)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+orderAdminService+"/") {
			return handler(ctx, req)
		}
		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get("authorization"); len(values) > 0 {
				header = values[0]
			}
		}
		if !validToken(want, bearerToken(header)) {
			logger.Warn(ctx, "admin rpc rejected", "method", info.FullMethod)
			return nil, status.Error(codes.Unauthenticated, "invalid or missing admin token")
		}
		return handler(ctx, req)
	}
}

type GRPCHandler struct {
	orders OrderAdmin
	logger logging.Logger
}

func NewGRPCHandler(orders OrderAdmin, logger logging.Logger) *GRPCHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &GRPCHandler{orders: orders, logger: logger.With("component", "grpc")}
}

func (h *GRPCHandler) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	orders, err := h.orders.ListOrders(ctx, req.OperatorID)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return &ListOrdersResponse{Orders: toOrderViews(orders)}, nil
}

func (h *GRPCHandler) ConfirmOrder(ctx context.Context, req *OrderActionRequest) (*ConfirmOrderResponse, error) {
	if req.RequesterID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "requester_id must be positive")
	}
	result, err := h.orders.ConfirmOrder(ctx, req.OperatorID, req.RequesterID)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return &ConfirmOrderResponse{Result: toConfirmView(result)}, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *OrderActionRequest) (*CancelOrderResponse, error) {
	if req.RequesterID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "requester_id must be positive")
	}
	order, err := h.orders.CancelOrder(ctx, req.OperatorID, req.RequesterID)
	if err != nil {
		return nil, h.toStatus(ctx, err)
	}
	return &CancelOrderResponse{Order: toOrderView(order)}, nil
}

func (h *GRPCHandler) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, "operator access required")
	case errors.Is(err, domain.ErrOrderNotFound):
		return status.Error(codes.NotFound, "no pending order")
	case errors.Is(err, domain.ErrConfirmInProgress):
		return status.Error(codes.Aborted, "confirmation already in progress")
	case errors.Is(err, domain.ErrAPI):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, domain.ErrProvisioning), errors.Is(err, domain.ErrPlanNotFound):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	h.logger.Error(ctx, "admin rpc failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

// OrderAdminClient calls the admin service with the JSON codec, sending
// adminToken as bearer metadata on every call.
type OrderAdminClient struct {
	cc    grpc.ClientConnInterface
	token string
}

func NewOrderAdminClient(cc grpc.ClientConnInterface, adminToken string) *OrderAdminClient {
	return &OrderAdminClient{cc: cc, token: adminToken}
}

func (c *OrderAdminClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	out := new(ListOrdersResponse)
	if err := c.invoke(ctx, "ListOrders", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderAdminClient) ConfirmOrder(ctx context.Context, in *OrderActionRequest, opts ...grpc.CallOption) (*ConfirmOrderResponse, error) {
	out := new(ConfirmOrderResponse)
	if err := c.invoke(ctx, "ConfirmOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderAdminClient) CancelOrder(ctx context.Context, in *OrderActionRequest, opts ...grpc.CallOption) (*CancelOrderResponse, error) {
	out := new(CancelOrderResponse)
	if err := c.invoke(ctx, "CancelOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderAdminClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	return c.cc.Invoke(ctx, "/"+orderAdminService+"/"+method, in, out, opts...)
}
