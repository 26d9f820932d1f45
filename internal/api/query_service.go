package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	queryServiceName = "shareit.v1.QueryService"

	queryMethodGetBooking   = "/" + queryServiceName + "/GetBooking"
	queryMethodListBookings = "/" + queryServiceName + "/ListBookings"
	queryMethodGetItem      = "/" + queryServiceName + "/GetItem"
)

// QueryServer is the read-only gRPC API over bookings and items. Requests and
// responses are google.protobuf.Struct messages.
type QueryServer interface {
	GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type queryCall func(srv QueryServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func queryHandler(fullMethod string, call queryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(QueryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(QueryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var queryServiceDesc = grpc.ServiceDesc{
	ServiceName: queryServiceName,
	HandlerType: (*QueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetBooking",
			Handler: queryHandler(queryMethodGetBooking, func(srv QueryServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetBooking(ctx, req)
			}),
		},
		{
			MethodName: "ListBookings",
			Handler: queryHandler(queryMethodListBookings, func(srv QueryServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.ListBookings(ctx, req)
			}),
		},
		{
			MethodName: "GetItem",
			Handler: queryHandler(queryMethodGetItem, func(srv QueryServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetItem(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shareit/v1/query.proto",
}

func RegisterQueryServer(s grpc.ServiceRegistrar, srv QueryServer) {
	s.RegisterService(&queryServiceDesc, srv)
}

// QueryService отвечает на gRPC-запросы через те же сервисы, что и HTTP API
type QueryService struct {
	bookings    domain.BookingService
	items       domain.ItemService
	defaultSize int
	maxSize     int
}

var _ QueryServer = (*QueryService)(nil)

func NewQueryService(bookings domain.BookingService, items domain.ItemService, defaultSize, maxSize int) *QueryService {
	return &QueryService{
		bookings:    bookings,
		items:       items,
		defaultSize: defaultSize,
		maxSize:     maxSize,
	}
}

func (s *QueryService) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}
	bookingID, err := requiredID(req, "booking_id")
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	return toStruct(booking)
}

func (s *QueryService) ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}

	from, err := intField(req, "from", 0)
	if err != nil {
		return nil, err
	}
	size, err := intField(req, "size", s.defaultSize)
	if err != nil {
		return nil, err
	}
	if from < 0 || size < 1 || size > s.maxSize {
		return nil, status.Errorf(codes.InvalidArgument, "from must be >= 0 and size between 1 and %d", s.maxSize)
	}
	page := models.Page{Offset: from, Limit: size}

	state := stringField(req, "state")
	var bookings []*models.Booking
	switch role := strings.ToLower(stringField(req, "role")); role {
	case "", "booker":
		bookings, err = s.bookings.GetBookerBookings(ctx, userID, state, page)
	case "owner":
		bookings, err = s.bookings.GetOwnerBookings(ctx, userID, state, page)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown role: %s", role)
	}
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return toStruct(map[string]any{"bookings": bookings})
}

func (s *QueryService) GetItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := requiredID(req, "user_id")
	if err != nil {
		return nil, err
	}
	itemID, err := requiredID(req, "item_id")
	if err != nil {
		return nil, err
	}

	view, err := s.items.GetItem(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	return toStruct(view)
}

func requiredID(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	// 1<<53: предел точных целых во float64
	n := v.GetNumberValue()
	if n < 1 || n > 1<<53 || n != math.Trunc(n) {
		return 0, status.Errorf(codes.InvalidArgument, "invalid %s", name)
	}
	return int64(n), nil
}

// intField читает целое число; дробные и выходящие за int32 значения отклоняются
func intField(req *structpb.Struct, name string, fallback int) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return fallback, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue != math.Trunc(n.NumberValue) ||
		n.NumberValue < math.MinInt32 || n.NumberValue > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int(n.NumberValue), nil
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

// toStruct переводит ответ в Struct через JSON, сохраняя имена полей HTTP API
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return structpb.NewStruct(m)
}
