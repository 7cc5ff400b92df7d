package grpc

// proto.go defines the gRPC server and client API for zimaio.payment.v1.TransactionService.
// Messages travel with the JSON codec, so no generated code is required.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const transactionServiceName = "zimaio.payment.v1.TransactionService"

// TransactionServiceServer is the server API for TransactionService.
type TransactionServiceServer interface {
	GetTransaction(context.Context, *GetTransactionRequest) (*GetTransactionResponse, error)
	ListOrderTransactions(context.Context, *ListOrderTransactionsRequest) (*ListOrderTransactionsResponse, error)
	mustEmbedUnimplementedTransactionServiceServer()
}

// UnimplementedTransactionServiceServer provides forward-compatible default implementations.
type UnimplementedTransactionServiceServer struct{}

func (UnimplementedTransactionServiceServer) GetTransaction(context.Context, *GetTransactionRequest) (*GetTransactionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetTransaction not implemented")
}
func (UnimplementedTransactionServiceServer) ListOrderTransactions(context.Context, *ListOrderTransactionsRequest) (*ListOrderTransactionsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListOrderTransactions not implemented")
}
func (UnimplementedTransactionServiceServer) mustEmbedUnimplementedTransactionServiceServer() {}

// RegisterTransactionServiceServer registers the TransactionServiceServer with the gRPC server.
func RegisterTransactionServiceServer(s *grpclib.Server, srv TransactionServiceServer) {
	s.RegisterService(&_TransactionService_serviceDesc, srv)
}

// TransactionServiceClient is the client API for TransactionService.
type TransactionServiceClient interface {
	GetTransaction(ctx context.Context, in *GetTransactionRequest, opts ...grpclib.CallOption) (*GetTransactionResponse, error)
	ListOrderTransactions(ctx context.Context, in *ListOrderTransactionsRequest, opts ...grpclib.CallOption) (*ListOrderTransactionsResponse, error)
}

type transactionServiceClient struct {
	cc grpclib.ClientConnInterface
}

// NewTransactionServiceClient returns a client that always sends the JSON
// content-subtype.
func NewTransactionServiceClient(cc grpclib.ClientConnInterface) TransactionServiceClient {
	return &transactionServiceClient{cc: cc}
}

func (c *transactionServiceClient) GetTransaction(ctx context.Context, in *GetTransactionRequest, opts ...grpclib.CallOption) (*GetTransactionResponse, error) {
	out := new(GetTransactionResponse)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+transactionServiceName+"/GetTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionServiceClient) ListOrderTransactions(ctx context.Context, in *ListOrderTransactionsRequest, opts ...grpclib.CallOption) (*ListOrderTransactionsResponse, error) {
	out := new(ListOrderTransactionsResponse)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+transactionServiceName+"/ListOrderTransactions", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var _TransactionService_serviceDesc = grpclib.ServiceDesc{ //nolint:revive
	ServiceName: transactionServiceName,
	HandlerType: (*TransactionServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "GetTransaction", Handler: _TransactionService_GetTransaction_Handler},
		{MethodName: "ListOrderTransactions", Handler: _TransactionService_ListOrderTransactions_Handler},
	},
	Streams: []grpclib.StreamDesc{},
}

func _TransactionService_GetTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) { //nolint:revive
	in := new(GetTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).GetTransaction(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + transactionServiceName + "/GetTransaction",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionServiceServer).GetTransaction(ctx, req.(*GetTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransactionService_ListOrderTransactions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) { //nolint:revive
	in := new(ListOrderTransactionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionServiceServer).ListOrderTransactions(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + transactionServiceName + "/ListOrderTransactions",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionServiceServer).ListOrderTransactions(ctx, req.(*ListOrderTransactionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type GetTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type TransactionMsg struct {
	ID                   string         `json:"id"`
	OrderID              string         `json:"order_id"`
	UserID               string         `json:"user_id"`
	GatewayID            string         `json:"gateway_id"`
	GatewayType          string         `json:"gateway_type"`
	Amount               string         `json:"amount"`
	Currency             string         `json:"currency"`
	Status               string         `json:"status"`
	GatewayTransactionID string         `json:"gateway_transaction_id,omitempty"`
	TransactionReference string         `json:"transaction_reference,omitempty"`
	ErrorMessage         string         `json:"error_message,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Version              int32          `json:"version"`
	CreatedAt            string         `json:"created_at"`
	UpdatedAt            string         `json:"updated_at"`
}

type GetTransactionResponse struct {
	Transaction *TransactionMsg `json:"transaction"`
}

type ListOrderTransactionsRequest struct {
	OrderID string `json:"order_id"`
}

type ListOrderTransactionsResponse struct {
	Transactions []*TransactionMsg `json:"transactions"`
}
