package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tanayagrawal/protoshade/schema"
)

// Registry stores the schema of the protobuf messages. The wire codec looks
// up message and enum descriptors here; descriptors are immutable once
// registered.
type Registry struct {
	// ProtoDirectories are the roots used to resolve import statements.
	ProtoDirectories []string

	repo     *schema.ProtoRepo
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
}

// NewRegistry creates an empty registry. The directories, if any, are used
// to resolve .proto import paths.
func NewRegistry(protoDirectories ...string) *Registry {
	return &Registry{
		ProtoDirectories: protoDirectories,
		repo: &schema.ProtoRepo{
			ProtoFiles: make(map[string]*schema.ProtoFile),
		},
		messages: make(map[string]*schema.Message),
		enums:    make(map[string]*schema.Enum),
	}
}

// LoadSchema loads .proto definitions from a path. A directory is walked
// recursively; a single file is loaded along with everything it imports,
// resolved against ProtoDirectories depth-first.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	visited := make(map[string]struct{})

	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		if err := r.loadProtoFile(protoPath, visited); err != nil {
			return fmt.Errorf("failed to load proto file: %w", err)
		}
	} else {
		err = filepath.WalkDir(protoPath, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, ".proto") {
				return nil
			}
			if err := r.loadProtoFile(p, visited); err != nil {
				return fmt.Errorf("failed to load proto file %s: %w", p, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	return r.buildSymbolTable()
}

// loadProtoFile parses one file and recurses into its imports. The visited
// set keeps import cycles from looping.
func (r *Registry) loadProtoFile(filePath string, visited map[string]struct{}) error {
	if _, ok := visited[filePath]; ok {
		return nil
	}
	visited[filePath] = struct{}{}

	protoFile, imports, err := parseProtoFile(filePath)
	if err != nil {
		return err
	}
	r.repo.ProtoFiles[filePath] = protoFile

	for _, imp := range imports {
		// Well-known types are framed by the codec itself, not by schema.
		if strings.Contains(imp, "google/protobuf") {
			continue
		}
		resolved, err := r.resolveImport(imp)
		if err != nil {
			return err
		}
		if err := r.loadProtoFile(resolved, visited); err != nil {
			return err
		}
	}
	return nil
}

// resolveImport finds an import path under one of the proto directories.
func (r *Registry) resolveImport(importPath string) (string, error) {
	for _, dir := range r.ProtoDirectories {
		fullPath := path.Join(dir, importPath)
		if _, err := os.Stat(fullPath); err == nil {
			return fullPath, nil
		}
	}
	return "", fmt.Errorf("cannot resolve import %q in %v", importPath, r.ProtoDirectories)
}

// RegisterMessage registers a programmatically built message descriptor, the
// way a code generator would, bypassing .proto parsing. Set fields and the
// narrow integer types are only expressible this way.
func (r *Registry) RegisterMessage(pkg string, msg *schema.Message) error {
	fullName := r.getFullName(pkg, msg.Name)
	if _, exists := r.messages[fullName]; exists {
		return fmt.Errorf("message already registered: %s", fullName)
	}
	r.messages[fullName] = msg
	return r.registerNestedNames(pkg, msg.Name, msg)
}

// RegisterEnum registers a programmatically built enum descriptor.
func (r *Registry) RegisterEnum(pkg string, enum *schema.Enum) error {
	fullName := r.getFullName(pkg, enum.Name)
	if _, exists := r.enums[fullName]; exists {
		return fmt.Errorf("enum already registered: %s", fullName)
	}
	r.enums[fullName] = enum
	return nil
}

// buildSymbolTable builds the symbol tables from the loaded repository.
func (r *Registry) buildSymbolTable() error {
	// Pass 1: register all message and enum names.
	for _, protoFile := range r.repo.ProtoFiles {
		if err := r.registerNames(protoFile); err != nil {
			return err
		}
	}

	// Pass 2: a parsed field referencing a named type cannot know whether
	// the name is a message or an enum until every name is registered.
	for _, protoFile := range r.repo.ProtoFiles {
		for _, msg := range protoFile.Messages {
			if err := r.resolveMessageTypes(protoFile.Package, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// registerNames registers all message and enum names from one file.
func (r *Registry) registerNames(protoFile *schema.ProtoFile) error {
	pkg := protoFile.Package
	for _, msg := range protoFile.Messages {
		fullName := r.getFullName(pkg, msg.Name)
		r.messages[fullName] = msg
		if err := r.registerNestedNames(pkg, msg.Name, msg); err != nil {
			return err
		}
	}
	for _, enum := range protoFile.Enums {
		r.enums[r.getFullName(pkg, enum.Name)] = enum
	}
	return nil
}

// registerNestedNames registers nested message and enum names.
func (r *Registry) registerNestedNames(pkg, parentName string, msg *schema.Message) error {
	for _, nested := range msg.NestedTypes {
		nestedName := parentName + "." + nested.Name
		r.messages[r.getFullName(pkg, nestedName)] = nested
		if err := r.registerNestedNames(pkg, nestedName, nested); err != nil {
			return err
		}
	}
	for _, nestedEnum := range msg.NestedEnums {
		r.enums[r.getFullName(pkg, parentName+"."+nestedEnum.Name)] = nestedEnum
	}
	return nil
}

func (r *Registry) getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// GetMessage retrieves a message definition by name. A bare name matches any
// package suffix.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}
	for fullName, msg := range r.messages {
		if strings.HasSuffix(fullName, "."+name) {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("message not found: %s", name)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}
	for fullName, enum := range r.enums {
		if strings.HasSuffix(fullName, "."+name) {
			return enum, nil
		}
	}
	return nil, fmt.Errorf("enum not found: %s", name)
}

// ListMessages returns all registered message names
func (r *Registry) ListMessages() []string {
	names := make([]string, 0, len(r.messages))
	for name := range r.messages {
		names = append(names, name)
	}
	return names
}

// ListEnums returns all registered enum names
func (r *Registry) ListEnums() []string {
	names := make([]string, 0, len(r.enums))
	for name := range r.enums {
		names = append(names, name)
	}
	return names
}

// GetOrCreateMapEntryMessage materializes the synthetic two-field message a
// map field rides the wire as.
func (r *Registry) GetOrCreateMapEntryMessage(mapFieldName string, keyType, valueType *schema.FieldType) (*schema.Message, error) {
	entryTypeName := mapFieldName + "Entry"

	if msg, exists := r.messages[entryTypeName]; exists {
		return msg, nil
	}

	mapEntryMessage := &schema.Message{
		Name:     entryTypeName,
		MapEntry: true,
		Fields: []*schema.Field{
			{
				Name:   "key",
				Number: 1,
				Label:  schema.LabelOptional,
				Type:   *keyType,
			},
			{
				Name:   "value",
				Number: 2,
				Label:  schema.LabelOptional,
				Type:   *valueType,
			},
		},
	}

	r.messages[entryTypeName] = mapEntryMessage
	return mapEntryMessage, nil
}
