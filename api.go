package protoshade

import (
	"fmt"
	"reflect"

	"github.com/tanayagrawal/protoshade/registry"
	"github.com/tanayagrawal/protoshade/schema"
	"github.com/tanayagrawal/protoshade/shadow"
	"github.com/tanayagrawal/protoshade/wire"
)

// Protoshade provides schema-aware protobuf wire operations without
// generated code. Schemas come from .proto files or programmatic descriptor
// registration; values travel as map[string]interface{} trees or as Go
// structs projected through the shadow package.
type Protoshade struct {
	registry *registry.Registry
}

// New creates a new Protoshade instance. The directories, if any, are used
// to resolve .proto import paths.
func New(protoDirectories ...string) *Protoshade {
	return &Protoshade{
		registry: registry.NewRegistry(protoDirectories...),
	}
}

// LoadSchema loads .proto definitions from a file or directory.
func (p *Protoshade) LoadSchema(protoPath string) error {
	return p.registry.LoadSchema(protoPath)
}

// RegisterMessage registers a programmatically built message descriptor.
func (p *Protoshade) RegisterMessage(pkg string, msg *schema.Message) error {
	return p.registry.RegisterMessage(pkg, msg)
}

// RegisterEnum registers a programmatically built enum descriptor.
func (p *Protoshade) RegisterEnum(pkg string, enum *schema.Enum) error {
	return p.registry.RegisterEnum(pkg, enum)
}

// Parse decodes protobuf bytes into a value tree using the named schema.
func (p *Protoshade) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	msg, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}
	return wire.DecodeMessage(data, msg, p.registry)
}

// Marshal encodes a value tree to protobuf bytes using the named schema.
func (p *Protoshade) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	msg, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s", messageType)
	}
	return wire.EncodeMessage(data, msg, p.registry)
}

// Size returns the number of bytes Marshal would produce, without encoding.
func (p *Protoshade) Size(data map[string]interface{}, messageType string) (int, error) {
	msg, err := p.registry.GetMessage(messageType)
	if err != nil {
		return 0, fmt.Errorf("message type not found: %s", messageType)
	}
	return wire.MessageSize(data, msg, p.registry)
}

// MarshalValue encodes a Go struct by projecting it through the shadow view.
// The schema is looked up by the struct's type name unless messageType
// overrides it.
func (p *Protoshade) MarshalValue(v interface{}, messageType ...string) ([]byte, error) {
	name, err := resolveTypeName(v, messageType)
	if err != nil {
		return nil, err
	}
	view, err := shadow.FromSun(v)
	if err != nil {
		return nil, err
	}
	return p.Marshal(view, name)
}

// UnmarshalValue decodes protobuf bytes into a Go struct. v must be a
// non-nil pointer to struct; the schema is looked up by the struct's type
// name unless messageType overrides it. The struct's PostDecode hook, if
// any, runs after all fields are set.
func (p *Protoshade) UnmarshalValue(data []byte, v interface{}, messageType ...string) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a non-nil pointer to struct")
	}
	name, err := resolveTypeName(v, messageType)
	if err != nil {
		return err
	}
	tree, err := p.Parse(data, name)
	if err != nil {
		return err
	}
	return shadow.ToSun(tree, v)
}

func resolveTypeName(v interface{}, override []string) (string, error) {
	if len(override) > 1 {
		return "", fmt.Errorf("at most one message type override allowed")
	}
	if len(override) == 1 {
		return override[0], nil
	}
	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Name() == "" {
		return "", fmt.Errorf("anonymous type %T needs an explicit message type", v)
	}
	return rt.Name(), nil
}

// ===== REGISTRY ACCESS =====

func (p *Protoshade) GetRegistry() *registry.Registry { return p.registry }
func (p *Protoshade) ListMessages() []string          { return p.registry.ListMessages() }
func (p *Protoshade) ListEnums() []string             { return p.registry.ListEnums() }
