package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// metadata keys travel lower-cased
const authorizationKey = "authorization"

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *pb.AuthServiceClient
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(authorizationKey, common.BearerScheme+" "+token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient(opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) SetToken(token string) { s.accessToken = token }

func (s *GRPCClient) Register(ctx context.Context, email, password, role string) error {

	req, err := structpb.NewStruct(map[string]any{"email": email, "password": password, "role": role})
	if err != nil {
		return err
	}

	if _, err := s.client.Register(ctx, req); err != nil {
		return s.mapError(err)
	}

	return nil
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (string, error) {

	req, err := structpb.NewStruct(map[string]any{"email": email, "password": password})
	if err != nil {
		return "", err
	}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}

	s.accessToken = resp.GetFields()["token"].GetStringValue()

	return s.accessToken, nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*Identity, error) {

	resp, err := s.client.WhoAmI(ctx, &structpb.Struct{})
	if err != nil {
		return nil, s.mapError(err)
	}

	f := resp.GetFields()
	return &Identity{ID: f["id"].GetStringValue(), Role: f["role"].GetStringValue()}, nil
}

func (s *GRPCClient) ListUsers(context.Context) ([]User, error) {
	return nil, ErrUnsupported
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == ErrInvalidCredentials.Error() {
			return ErrInvalidCredentials
		}
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrUnauthorized
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrEmailTaken
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrBadRequest, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
