// Package conn implements vm.Connection over an external renderer/network
// process: the three I/O bridge opcodes (Browse, BrowseResource,
// OutputControl) are forwarded as a single schema-less gRPC call, described
// at runtime via protoreflect dynamic messages rather than a compiled
// .proto, matching the teacher's own dynamic-RPC posture in its grpc
// builtins.
package conn

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/builder"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dreamruntime/dmrt/internal/vm"
)

const invokeMethod = "/dmrt.bridge.Bridge/Invoke"

// Bridge is a gRPC-backed vm.Connection. A zero-value Bridge is not usable;
// construct with Dial.
type Bridge struct {
	conn *grpc.ClientConn
}

// Dial opens a gRPC client connection to addr (insecure transport - the
// bridge runs as a local sidecar process, matching the teacher's own
// grpcConnect default of insecure.NewCredentials() for its scripting-level
// RPC builtin).
func Dial(addr string) (*Bridge, error) {
	c, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, &vm.BridgeUnavailableError{Op: "dial", Err: err}
	}
	return &Bridge{conn: c}, nil
}

// Close releases the underlying gRPC connection.
func (b *Bridge) Close() error { return b.conn.Close() }

func (b *Bridge) Browse(client *vm.Instance, html string, options string) error {
	return b.call("browse", client, []byte(html), options)
}

func (b *Bridge) BrowseResource(client *vm.Instance, resource *vm.Resource, filename string) error {
	var payload []byte
	if resource != nil {
		payload = resource.Bytes
	}
	return b.call("browse_resource", client, payload, filename)
}

func (b *Bridge) OutputControl(client *vm.Instance, message string, control string) error {
	return b.call("output_control", client, []byte(message), control)
}

func (b *Bridge) call(kind string, client *vm.Instance, payload []byte, control string) error {
	var recipient uuid.UUID
	if client != nil {
		recipient = client.Handle
	}
	return b.invoke(kind, recipient, payload, control)
}

// invoke builds the generic BridgeCall dynamic message and sends it as a
// unary RPC; a correlation id (per-call, not the recipient handle) lets an
// out-of-process renderer log/trace individual bridge calls.
func (b *Bridge) invoke(kind string, recipient uuid.UUID, payload []byte, control string) error {
	md, err := callMessageDescriptor()
	if err != nil {
		return &vm.BridgeUnavailableError{Op: kind, Err: err}
	}
	req := dynamic.NewMessage(md)
	req.SetFieldByName("request_id", uuid.New().String())
	req.SetFieldByName("kind", kind)
	req.SetFieldByName("recipient", recipient.String())
	req.SetFieldByName("payload", payload)
	req.SetFieldByName("control", control)

	resp := dynamic.NewMessage(md)
	if err := b.conn.Invoke(context.Background(), invokeMethod, req, resp); err != nil {
		return &vm.BridgeUnavailableError{Op: kind, Err: err}
	}
	return nil
}

// callMessageDescriptor builds the BridgeCall descriptor: {request_id, kind,
// recipient, payload, control}, all scalar fields since the payload itself
// is opaque to both the VM and the bridge (an HTML blob, a resource's raw
// bytes, or empty).
func callMessageDescriptor() (*desc.MessageDescriptor, error) {
	msg := builder.NewMessage("BridgeCall").
		AddField(builder.NewField("request_id", builder.FieldTypeString())).
		AddField(builder.NewField("kind", builder.FieldTypeString())).
		AddField(builder.NewField("recipient", builder.FieldTypeString())).
		AddField(builder.NewField("payload", builder.FieldTypeBytes())).
		AddField(builder.NewField("control", builder.FieldTypeString()))

	file := builder.NewFile("dmrt_bridge.proto").AddMessage(msg)
	fd, err := file.Build()
	if err != nil {
		return nil, fmt.Errorf("building bridge call descriptor: %w", err)
	}
	md := fd.FindMessage("BridgeCall")
	if md == nil {
		return nil, fmt.Errorf("bridge call descriptor missing BridgeCall message")
	}
	return md, nil
}
