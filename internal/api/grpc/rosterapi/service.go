package rosterapi

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "roster.v1.Signups"

// Full method names.
const (
	MethodSubmit       = "/" + ServiceName + "/Submit"
	MethodBeginEdit    = "/" + ServiceName + "/BeginEdit"
	MethodUpdateField  = "/" + ServiceName + "/UpdateField"
	MethodCommitEdit   = "/" + ServiceName + "/CommitEdit"
	MethodCancelEdit   = "/" + ServiceName + "/CancelEdit"
	MethodDelete       = "/" + ServiceName + "/Delete"
	MethodGetRoster    = "/" + ServiceName + "/GetRoster"
	MethodWatchRoster  = "/" + ServiceName + "/WatchRoster"
	MethodExportRoster = "/" + ServiceName + "/ExportRoster"
	MethodFetchExport  = "/" + ServiceName + "/FetchExport"
)

// SignupsServer is the server API of the Signups service.
type SignupsServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	BeginEdit(context.Context, *SignupRequest) (*EditBuffer, error)
	UpdateField(context.Context, *UpdateFieldRequest) (*EditBuffer, error)
	CommitEdit(context.Context, *SignupRequest) (*Empty, error)
	CancelEdit(context.Context, *SignupRequest) (*Empty, error)
	Delete(context.Context, *SignupRequest) (*Empty, error)
	GetRoster(context.Context, *RosterRequest) (*Roster, error)
	WatchRoster(*RosterRequest, Signups_WatchRosterServer) error
	ExportRoster(context.Context, *RosterRequest) (*ExportResponse, error)
	FetchExport(context.Context, *FetchExportRequest) (*ExportDocument, error)
}

// Signups_WatchRosterServer is the server side of the WatchRoster stream.
type Signups_WatchRosterServer interface {
	Send(*Roster) error
	grpc.ServerStream
}

type watchRosterServer struct {
	grpc.ServerStream
}

func (s *watchRosterServer) Send(m *Roster) error {
	return s.ServerStream.SendMsg(m)
}

// RegisterSignupsServer registers srv on s.
func RegisterSignupsServer(s grpc.ServiceRegistrar, srv SignupsServer) {
	s.RegisterService(&SignupsServiceDesc, srv)
}

// unary builds a method handler for a unary call taking Req.
func unary[Req any, Resp any](name string, call func(SignupsServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SignupsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SignupsServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchRosterHandler(srv any, stream grpc.ServerStream) error {
	in := new(RosterRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SignupsServer).WatchRoster(in, &watchRosterServer{stream})
}

// SignupsServiceDesc describes the Signups service.
var SignupsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SignupsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Submit", SignupsServer.Submit),
		unary("BeginEdit", SignupsServer.BeginEdit),
		unary("UpdateField", SignupsServer.UpdateField),
		unary("CommitEdit", SignupsServer.CommitEdit),
		unary("CancelEdit", SignupsServer.CancelEdit),
		unary("Delete", SignupsServer.Delete),
		unary("GetRoster", SignupsServer.GetRoster),
		unary("ExportRoster", SignupsServer.ExportRoster),
		unary("FetchExport", SignupsServer.FetchExport),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchRoster",
			Handler:       watchRosterHandler,
			ServerStreams: true,
		},
	},
	Metadata: "roster/v1/signups",
}

// SignupsClient is the client API of the Signups service.
type SignupsClient struct {
	cc grpc.ClientConnInterface
}

// NewSignupsClient creates a client on cc. Every call uses the JSON codec.
func NewSignupsClient(cc grpc.ClientConnInterface) *SignupsClient {
	return &SignupsClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SignupsClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	return invoke[SubmitResponse](ctx, c.cc, MethodSubmit, in, opts)
}

func (c *SignupsClient) BeginEdit(ctx context.Context, in *SignupRequest, opts ...grpc.CallOption) (*EditBuffer, error) {
	return invoke[EditBuffer](ctx, c.cc, MethodBeginEdit, in, opts)
}

func (c *SignupsClient) UpdateField(ctx context.Context, in *UpdateFieldRequest, opts ...grpc.CallOption) (*EditBuffer, error) {
	return invoke[EditBuffer](ctx, c.cc, MethodUpdateField, in, opts)
}

func (c *SignupsClient) CommitEdit(ctx context.Context, in *SignupRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodCommitEdit, in, opts)
}

func (c *SignupsClient) CancelEdit(ctx context.Context, in *SignupRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodCancelEdit, in, opts)
}

func (c *SignupsClient) Delete(ctx context.Context, in *SignupRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodDelete, in, opts)
}

func (c *SignupsClient) GetRoster(ctx context.Context, in *RosterRequest, opts ...grpc.CallOption) (*Roster, error) {
	return invoke[Roster](ctx, c.cc, MethodGetRoster, in, opts)
}

func (c *SignupsClient) ExportRoster(ctx context.Context, in *RosterRequest, opts ...grpc.CallOption) (*ExportResponse, error) {
	return invoke[ExportResponse](ctx, c.cc, MethodExportRoster, in, opts)
}

func (c *SignupsClient) FetchExport(ctx context.Context, in *FetchExportRequest, opts ...grpc.CallOption) (*ExportDocument, error) {
	return invoke[ExportDocument](ctx, c.cc, MethodFetchExport, in, opts)
}

// WatchRoster opens a stream that yields the roster after every change.
func (c *SignupsClient) WatchRoster(ctx context.Context, in *RosterRequest, opts ...grpc.CallOption) (*WatchRosterClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &SignupsServiceDesc.Streams[0], MethodWatchRoster, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchRosterClient{stream: stream}, nil
}

// WatchRosterClient receives rosters from a WatchRoster stream.
type WatchRosterClient struct {
	stream grpc.ClientStream
}

func (c *WatchRosterClient) Recv() (*Roster, error) {
	m := new(Roster)
	if err := c.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
