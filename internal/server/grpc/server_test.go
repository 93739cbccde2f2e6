package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newClient(t *testing.T, us UserService, v auth.Verifier) *pb.AuthServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("", logging.Nop(), us, v, nil).NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return pb.NewAuthServiceClient(conn)
}

func newStack(t *testing.T) (*services.UserService, *auth.TokenManager) {
	t.Helper()
	hasher, err := cryptox.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tm, err := auth.NewTokenManager([]byte("grpc-secret"))
	require.NoError(t, err)
	return services.NewUserService(users.NewMemoryRepository(), hasher, tm), tm
}

func msg(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestRegisterLoginWhoAmI(t *testing.T) {
	svc, tm := newStack(t)
	c := newClient(t, svc, tm)
	ctx := context.Background()

	reg, err := c.Register(ctx, msg(t, map[string]any{"email": "a@x.com", "password": "secret123", "role": "user"}))
	require.NoError(t, err)
	userID := reg.GetFields()["id"].GetStringValue()
	require.NotEmpty(t, userID)

	login, err := c.Login(ctx, msg(t, map[string]any{"email": "a@x.com", "password": "secret123"}))
	require.NoError(t, err)
	token := login.GetFields()["token"].GetStringValue()
	require.NotEmpty(t, token)

	authed := metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer "+token)
	me, err := c.WhoAmI(authed, &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, userID, me.GetFields()["id"].GetStringValue())
	assert.Equal(t, "user", me.GetFields()["role"].GetStringValue())
}

func TestErrorCodes(t *testing.T) {
	svc, tm := newStack(t)
	c := newClient(t, svc, tm)
	ctx := context.Background()

	_, err := c.Register(ctx, msg(t, map[string]any{"email": "a@x.com", "password": "secret123"}))
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"validation", func() error {
			_, err := c.Register(ctx, msg(t, map[string]any{"email": "nope", "password": "secret123"}))
			return err
		}, codes.InvalidArgument},
		{"taken", func() error {
			_, err := c.Register(ctx, msg(t, map[string]any{"email": "a@x.com", "password": "secret123"}))
			return err
		}, codes.AlreadyExists},
		{"unknown user", func() error {
			_, err := c.Login(ctx, msg(t, map[string]any{"email": "b@x.com", "password": "secret123"}))
			return err
		}, codes.NotFound},
		{"wrong password", func() error {
			_, err := c.Login(ctx, msg(t, map[string]any{"email": "a@x.com", "password": "wrong"}))
			return err
		}, codes.Unauthenticated},
		{"missing token", func() error {
			_, err := c.WhoAmI(ctx, &structpb.Struct{})
			return err
		}, codes.Unauthenticated},
		{"bad token", func() error {
			authed := metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer x.y.z")
			_, err := c.WhoAmI(authed, &structpb.Struct{})
			return err
		}, codes.Unauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(tt.call()))
		})
	}
}

type panicUsers struct{}

func (panicUsers) Register(context.Context, services.RegisterRequest) (*models.User, error) {
	panic("boom")
}

func (panicUsers) Login(context.Context, services.LoginRequest) (string, error) {
	return "", nil
}

func TestRecoveryInterceptor(t *testing.T) {
	tm, err := auth.NewTokenManager([]byte("k"))
	require.NoError(t, err)
	c := newClient(t, panicUsers{}, tm)

	_, err = c.Register(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestInterceptor_UnprotectedPassesThrough(t *testing.T) {
	s := NewGRPCServer("", logging.Nop(), nil, nil, nil)

	called := false
	h := func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: pb.MethodLogin}, h)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_ProtectedBindsIdentity(t *testing.T) {
	tm, err := auth.NewTokenManager([]byte("k"))
	require.NoError(t, err)
	s := NewGRPCServer("", logging.Nop(), nil, tm, nil)

	tok, err := tm.Issue("u-1", "admin")
	require.NoError(t, err)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(authorizationKey, "Bearer "+tok))

	var got *models.Identity
	h := func(ctx context.Context, req any) (any, error) {
		got, _ = auth.IdentityFromContext(ctx)
		return nil, nil
	}

	_, err = s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: pb.MethodWhoAmI}, h)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.Identity{SubjectID: "u-1", Role: "admin"}, *got)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:0", logging.Nop(), nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop(), nil, nil, nil)
	assert.Error(t, srv.Run(context.Background()))
}
