package api

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type grpcFixture struct {
	conn    *grpc.ClientConn
	owner   *models.User
	booker  *models.User
	item    *models.Item
	booking *models.Booking
}

func newGRPCFixture(t *testing.T, cfg config.APIConfig) *grpcFixture {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "grpc.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	owner := &models.User{Name: "owner", Email: "owner@example.com"}
	booker := &models.User{Name: "booker", Email: "booker@example.com"}
	require.NoError(t, db.CreateUser(ctx, owner))
	require.NoError(t, db.CreateUser(ctx, booker))
	item := &models.Item{OwnerID: owner.ID, Name: "kayak", Description: "two seats", Available: true}
	require.NoError(t, db.CreateItem(ctx, item))
	start := time.Now().Add(24 * time.Hour)
	booking := &models.Booking{ItemID: item.ID, BookerID: booker.ID, Start: start, End: start.Add(time.Hour)}
	require.NoError(t, db.CreateBooking(ctx, booking))

	query := NewQueryService(
		service.NewBookingService(db, nil, &logger),
		service.NewItemService(db, &logger),
		models.DefaultBookingsPageSize,
		models.MaxPageSize,
	)
	srv := NewGRPCServer(&cfg, query, &logger)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.ServeListener(lis) }()
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &grpcFixture{conn: conn, owner: owner, booker: booker, item: item, booking: booking}
}

func (f *grpcFixture) call(ctx context.Context, t *testing.T, method string, fields map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	resp := new(structpb.Struct)
	err = f.conn.Invoke(ctx, method, req, resp)
	return resp, err
}

func TestQueryService(t *testing.T) {
	f := newGRPCFixture(t, config.APIConfig{})
	ctx := context.Background()

	t.Run("GetBooking", func(t *testing.T) {
		resp, err := f.call(ctx, t, queryMethodGetBooking, map[string]any{
			"user_id":    float64(f.owner.ID),
			"booking_id": float64(f.booking.ID),
		})
		require.NoError(t, err)
		assert.Equal(t, float64(f.booking.ID), resp.GetFields()["id"].GetNumberValue())
		assert.Equal(t, "WAITING", resp.GetFields()["status"].GetStringValue())
		itemName := resp.GetFields()["item"].GetStructValue().GetFields()["name"].GetStringValue()
		assert.Equal(t, "kayak", itemName)
	})

	t.Run("GetBooking stranger", func(t *testing.T) {
		_, err := f.call(ctx, t, queryMethodGetBooking, map[string]any{
			"user_id":    float64(999),
			"booking_id": float64(f.booking.ID),
		})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("ListBookings", func(t *testing.T) {
		resp, err := f.call(ctx, t, queryMethodListBookings, map[string]any{
			"user_id": float64(f.owner.ID),
			"role":    "owner",
			"state":   "future",
		})
		require.NoError(t, err)
		assert.Len(t, resp.GetFields()["bookings"].GetListValue().GetValues(), 1)

		resp, err = f.call(ctx, t, queryMethodListBookings, map[string]any{
			"user_id": float64(f.owner.ID),
		})
		require.NoError(t, err)
		assert.Empty(t, resp.GetFields()["bookings"].GetListValue().GetValues())
	})

	t.Run("ListBookings unknown state", func(t *testing.T) {
		_, err := f.call(ctx, t, queryMethodListBookings, map[string]any{
			"user_id": float64(f.booker.ID),
			"state":   "LATER",
		})
		st, _ := status.FromError(err)
		assert.Equal(t, codes.InvalidArgument, st.Code())
		assert.Equal(t, "Unknown state: LATER", st.Message())
	})

	t.Run("ListBookings bad paging", func(t *testing.T) {
		tests := []struct {
			name  string
			field string
			value any
		}{
			{"zero size", "size", float64(0)},
			{"fractional size", "size", 2.5},
			{"huge size", "size", 1e12},
			{"size as string", "size", "10"},
			{"negative from", "from", float64(-1)},
			{"fractional from", "from", 1.5},
			{"huge from", "from", 1e300},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.call(ctx, t, queryMethodListBookings, map[string]any{
					"user_id": float64(f.booker.ID),
					tt.field:  tt.value,
				})
				assert.Equal(t, codes.InvalidArgument, status.Code(err))
			})
		}
	})

	t.Run("GetBooking bad id", func(t *testing.T) {
		for _, id := range []float64{1.5, 1e300, -1} {
			_, err := f.call(ctx, t, queryMethodGetBooking, map[string]any{
				"user_id":    float64(f.owner.ID),
				"booking_id": id,
			})
			assert.Equal(t, codes.InvalidArgument, status.Code(err), "booking_id=%v", id)
		}
	})

	t.Run("GetItem", func(t *testing.T) {
		resp, err := f.call(ctx, t, queryMethodGetItem, map[string]any{
			"user_id": float64(f.owner.ID),
			"item_id": float64(f.item.ID),
		})
		require.NoError(t, err)
		next := resp.GetFields()["nextBooking"].GetStructValue()
		require.NotNil(t, next)
		assert.Equal(t, float64(f.booking.ID), next.GetFields()["id"].GetNumberValue())
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := f.call(ctx, t, queryMethodGetItem, map[string]any{"user_id": float64(f.owner.ID)})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestQueryService_Auth(t *testing.T) {
	f := newGRPCFixture(t, config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "items-only", Extra: "secret", Permissions: []string{permReadItems}},
			},
		},
	})
	fields := map[string]any{"user_id": float64(f.owner.ID), "item_id": float64(f.item.ID)}

	_, err := f.call(context.Background(), t, queryMethodGetItem, fields)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "items-only", "x-api-extra", "secret")
	_, err = f.call(ctx, t, queryMethodGetItem, fields)
	assert.NoError(t, err)

	_, err = f.call(ctx, t, queryMethodListBookings, map[string]any{"user_id": float64(f.owner.ID)})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}
