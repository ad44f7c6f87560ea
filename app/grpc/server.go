package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/mapper"
	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
	"github.com/vibast-solutions/ms-go-holestpay/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "holestpay.v1.HolestPayService"

type paymentSigner interface {
	SignPaymentRequest(ctx context.Context, body *payload.Object) (*payload.Object, error)
}

type resultProcessor interface {
	HandlePaymentResult(ctx context.Context, topic string, body *payload.Object) (*service.DispatchResult, error)
	FindOrder(ctx context.Context, orderUID string) (*entity.Order, error)
}

type posConfigHandler interface {
	HandlePosConfigUpdated(ctx context.Context, body *payload.Object) error
}

type merchantChangeSyncer interface {
	SyncMerchantChange(ctx context.Context, incrementID string) (bool, error)
}

// HolestPayServiceServer is the admin API. Requests and responses are free
// form Structs carrying the same JSON documents as the HTTP endpoints.
type HolestPayServiceServer interface {
	Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SignRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SyncOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ProcessResult(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	signer    paymentSigner
	results   resultProcessor
	posConfig posConfigHandler
	sync      merchantChangeSyncer
}

func NewServer(signer paymentSigner, results resultProcessor, posConfig posConfigHandler, sync merchantChangeSyncer) *Server {
	return &Server{
		signer:    signer,
		results:   results,
		posConfig: posConfig,
		sync:      sync,
	}
}

func (s *Server) Health(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return responseToStruct(&types.HealthResponse{Status: "ok"})
}

func (s *Server) SignRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	body, err := structToObject(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	signed, err := s.signer.SignPaymentRequest(ctx, body)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrValidation):
			l.WithError(err).Debug("Sign request validation failed")
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, provider.ErrConfiguration):
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		default:
			l.WithError(err).Error("Sign request failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return objectToStruct(signed)
}

func (s *Server) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderUID := strings.TrimSpace(stringField(req, "order_uid"))
	if orderUID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_uid is required")
	}

	order, err := s.results.FindOrder(ctx, orderUID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return nil, status.Error(codes.NotFound, "order not found")
		}
		loggerWithContext(ctx).WithError(err).Error("Get order failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return responseToStruct(&types.OrderEnvelopeResponse{Order: mapper.OrderToResponse(order)})
}

func (s *Server) SyncOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	incrementID := strings.TrimSpace(stringField(req, "increment_id"))
	if incrementID == "" {
		return nil, status.Error(codes.InvalidArgument, "increment_id is required")
	}

	synced, err := s.sync.SyncMerchantChange(ctx, incrementID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			return nil, status.Error(codes.NotFound, "order not found")
		case errors.Is(err, provider.ErrSyncRejected):
			return nil, status.Error(codes.Unavailable, err.Error())
		default:
			loggerWithContext(ctx).WithError(err).Error("Sync order failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return responseToStruct(&types.SyncOrderResponse{Synced: synced})
}

// ProcessResult feeds a webhook document through the same path as
// POST /holestpay/webhook. The request carries "topic" and "body".
func (s *Server) ProcessResult(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	topic := strings.ToLower(strings.TrimSpace(stringField(req, "topic")))
	bodyValue, ok := req.GetFields()["body"]
	if topic == "" || !ok || bodyValue.GetStructValue() == nil {
		return nil, status.Error(codes.InvalidArgument, "topic and body are required")
	}

	body, err := structToObject(bodyValue.GetStructValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	switch topic {
	case service.TopicPosConfigUpdated:
		err = s.posConfig.HandlePosConfigUpdated(ctx, body)
	case service.TopicPayResult, service.TopicOrderUpdate:
		_, err = s.results.HandlePaymentResult(ctx, topic, body)
	default:
		return nil, status.Error(codes.InvalidArgument, "unsupported topic")
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return nil, status.Error(codes.NotFound, err.Error())
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrSignatureMismatch), errors.Is(err, provider.ErrValidation):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		default:
			loggerWithContext(ctx).WithError(err).Error("Process result failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	acceptResult := strings.ToUpper(topic)
	if topic == service.TopicPosConfigUpdated {
		acceptResult = "POS_CONFIG_UPDATED"
	}
	return responseToStruct(&types.WebhookAcceptedResponse{Received: "OK", AcceptResult: acceptResult})
}

func stringField(req *structpb.Struct, key string) string {
	value, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return value.GetStringValue()
}

func RegisterHolestPayServiceServer(s grpc.ServiceRegistrar, srv HolestPayServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HolestPayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", HolestPayServiceServer.Health)},
		{MethodName: "SignRequest", Handler: unaryHandler("SignRequest", HolestPayServiceServer.SignRequest)},
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", HolestPayServiceServer.GetOrder)},
		{MethodName: "SyncOrder", Handler: unaryHandler("SyncOrder", HolestPayServiceServer.SyncOrder)},
		{MethodName: "ProcessResult", Handler: unaryHandler("ProcessResult", HolestPayServiceServer.ProcessResult)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "holestpay/v1/holestpay.proto",
}

type unaryMethod func(HolestPayServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(HolestPayServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(server, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
