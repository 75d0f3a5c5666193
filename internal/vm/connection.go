package vm

// Connection is the external resource-manager/network-layer interface the
// I/O bridge opcodes (Browse, BrowseResource, OutputControl) call through.
// The production implementation (rendering, networking) lives outside this
// module; internal/conn supplies a gRPC-backed bridge and a no-op default.
type Connection interface {
	Browse(client *Instance, html string, options string) error
	BrowseResource(client *Instance, resource *Resource, filename string) error
	OutputControl(client *Instance, message string, control string) error
}

// NullConnection is a Connection that does nothing and never fails; it is
// the default when no external connection bridge is configured, matching
// the spec's "no-op if client is null" posture extended to "no bridge at
// all".
type NullConnection struct{}

func (NullConnection) Browse(*Instance, string, string) error                { return nil }
func (NullConnection) BrowseResource(*Instance, *Resource, string) error     { return nil }
func (NullConnection) OutputControl(*Instance, string, string) error        { return nil }
