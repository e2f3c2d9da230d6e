package runtime

import (
	"context"
	"fmt"
)

// Method describes one operation of a service
type Method struct {
	Name       string `json:"name"`
	InputType  string `json:"input_type,omitempty"`
	OutputType string `json:"output_type,omitempty"`
}

// Descriptor describes a service interface
type Descriptor struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Methods   []Method `json:"methods"`
}

// Handler executes service methods. Input and output are JSON documents.
type Handler interface {
	Invoke(ctx context.Context, method string, input []byte) ([]byte, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, method string, input []byte) ([]byte, error)

// Invoke calls f(ctx, method, input)
func (f HandlerFunc) Invoke(ctx context.Context, method string, input []byte) ([]byte, error) {
	return f(ctx, method, input)
}

// ServicePackage encapsulates everything needed to run a service on the runtime
type ServicePackage struct {
	// Handler executes the service methods
	Handler Handler

	// Descriptor describes the service interface
	Descriptor Descriptor

	// Methods maps method names to their definitions for quick lookup
	Methods map[string]*Method
}

// NewServicePackage creates a new service package with validation
func NewServicePackage(handler Handler, desc Descriptor) (*ServicePackage, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if desc.Name == "" {
		return nil, ErrNoService
	}
	if len(desc.Methods) == 0 {
		return nil, ErrNoMethods
	}

	methods := make(map[string]*Method, len(desc.Methods))
	for i := range desc.Methods {
		name := desc.Methods[i].Name
		if _, exists := methods[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMethod, name)
		}
		methods[name] = &desc.Methods[i]
	}

	return &ServicePackage{
		Handler:    handler,
		Descriptor: desc,
		Methods:    methods,
	}, nil
}

// ServiceName returns the service name from the descriptor
func (sp *ServicePackage) ServiceName() string {
	return sp.Descriptor.Name
}

// GetMethod returns the method definition for the given name
func (sp *ServicePackage) GetMethod(name string) (*Method, bool) {
	method, ok := sp.Methods[name]
	return method, ok
}

// ActorID returns the fully qualified actor ID of the service.
// The format is: namespace.ServiceName.version
// Example: "eventsphere.Backend.v1"
// The gateway routes on the same ID.
func (sp *ServicePackage) ActorID() string {
	namespace := sp.Descriptor.Namespace
	if namespace == "" {
		namespace = "default"
	}

	version := sp.Descriptor.Version
	if version == "" {
		version = "v1"
	}

	return fmt.Sprintf("%s.%s.%s", namespace, sp.Descriptor.Name, version)
}
