package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Сообщения API передаются как google.protobuf.Struct, поэтому дескрипторы
// сервисов описаны вручную и не требуют сгенерированного кода.

const (
	OrderServiceName   = "storefront.v1.OrderService"
	CatalogServiceName = "storefront.v1.CatalogService"
)

// OrderServiceServer — серверная часть API заказов.
type OrderServiceServer interface {
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PayOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CommitInventory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// CatalogServiceServer — серверная часть API каталога.
type CatalogServiceServer interface {
	ListProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateInventory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func methodDesc(service, name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// OrderServiceDesc описывает storefront.v1.OrderService.
var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(OrderServiceName, "CreateOrder", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(OrderServiceServer).CreateOrder(ctx, in)
		}),
		methodDesc(OrderServiceName, "GetOrder", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(OrderServiceServer).GetOrder(ctx, in)
		}),
		methodDesc(OrderServiceName, "ListOrders", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(OrderServiceServer).ListOrders(ctx, in)
		}),
		methodDesc(OrderServiceName, "ValidateOrder", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(OrderServiceServer).ValidateOrder(ctx, in)
		}),
		methodDesc(OrderServiceName, "UpdateOrderStatus", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(OrderServiceServer).UpdateOrderStatus(ctx, in)
		}),
		methodDesc(OrderServiceName, "PayOrder", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(OrderServiceServer).PayOrder(ctx, in)
		}),
		methodDesc(OrderServiceName, "CancelOrder", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(OrderServiceServer).CancelOrder(ctx, in)
		}),
		methodDesc(OrderServiceName, "CommitInventory", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(OrderServiceServer).CommitInventory(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/order_service",
}

// CatalogServiceDesc описывает storefront.v1.CatalogService.
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(CatalogServiceName, "ListProducts", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CatalogServiceServer).ListProducts(ctx, in)
		}),
		methodDesc(CatalogServiceName, "GetProduct", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CatalogServiceServer).GetProduct(ctx, in)
		}),
		methodDesc(CatalogServiceName, "CreateProduct", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CatalogServiceServer).CreateProduct(ctx, in)
		}),
		methodDesc(CatalogServiceName, "UpdateInventory", func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(CatalogServiceServer).UpdateInventory(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/catalog_service",
}

// RegisterOrderServiceServer регистрирует API заказов на сервере.
func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

// RegisterCatalogServiceServer регистрирует API каталога на сервере.
func RegisterCatalogServiceServer(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// Client вызывает методы API по имени сервиса и метода.
type Client struct {
	cc      grpc.ClientConnInterface
	service string
}

// NewOrderServiceClient возвращает клиента storefront.v1.OrderService.
func NewOrderServiceClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, service: OrderServiceName}
}

// NewCatalogServiceClient возвращает клиента storefront.v1.CatalogService.
func NewCatalogServiceClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, service: CatalogServiceName}
}

// Call выполняет unary-вызов method.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+c.service+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
