package runtime

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Envelope kinds. goakt only carries proto messages, so requests and
// responses travel as structpb.Struct tagged with a kind field.
const (
	kindRequest  = "eventsphere.ServiceRequest"
	kindResponse = "eventsphere.ServiceResponse"
)

// ServiceRequest asks a service actor to run one method
type ServiceRequest struct {
	ID       string
	Method   string
	Input    []byte
	Timeout  time.Duration
	Metadata map[string]string
}

// ServiceError describes a failed method call
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the wire code of the failure.
func (e *ServiceError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the message without the code prefix.
func (e *ServiceError) ErrorMessage() string {
	return e.Message
}

// ServiceResponse is the reply of a service actor
type ServiceResponse struct {
	ID       string
	Success  bool
	Output   []byte
	Error    *ServiceError
	Duration time.Duration
	Metadata map[string]string
}

// NewServiceError creates a new ServiceError with the given code and message
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceResponse creates a new ServiceResponse with the given ID and success status
func NewServiceResponse(id string, success bool) *ServiceResponse {
	return &ServiceResponse{
		ID:       id,
		Success:  success,
		Metadata: make(map[string]string),
	}
}

// Proto encodes the request for actor messaging
func (r *ServiceRequest) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":       kindRequest,
		"id":         r.ID,
		"method":     r.Method,
		"input":      string(r.Input),
		"timeout_ms": r.Timeout.Milliseconds(),
		"metadata":   stringMap(r.Metadata),
	})
}

// Proto encodes the response for actor messaging
func (r *ServiceResponse) Proto() (*structpb.Struct, error) {
	fields := map[string]any{
		"kind":        kindResponse,
		"id":          r.ID,
		"success":     r.Success,
		"output":      string(r.Output),
		"duration_us": r.Duration.Microseconds(),
		"metadata":    stringMap(r.Metadata),
	}
	if r.Error != nil {
		fields["error"] = map[string]any{
			"code":    r.Error.Code,
			"message": r.Error.Message,
		}
	}
	return structpb.NewStruct(fields)
}

// ParseServiceRequest decodes a request received by an actor
func ParseServiceRequest(msg proto.Message) (*ServiceRequest, error) {
	s, ok := msg.(*structpb.Struct)
	if !ok || s.GetFields()["kind"].GetStringValue() != kindRequest {
		return nil, ErrNotServiceRequest
	}

	fields := s.GetFields()
	req := &ServiceRequest{
		ID:       fields["id"].GetStringValue(),
		Method:   fields["method"].GetStringValue(),
		Timeout:  time.Duration(fields["timeout_ms"].GetNumberValue()) * time.Millisecond,
		Metadata: fromStringMap(fields["metadata"]),
	}
	if input := fields["input"].GetStringValue(); input != "" {
		req.Input = []byte(input)
	}

	return req, nil
}

// ParseServiceResponse decodes an actor reply
func ParseServiceResponse(msg proto.Message) (*ServiceResponse, error) {
	s, ok := msg.(*structpb.Struct)
	if !ok || s.GetFields()["kind"].GetStringValue() != kindResponse {
		return nil, ErrNotServiceResponse
	}

	fields := s.GetFields()
	resp := &ServiceResponse{
		ID:       fields["id"].GetStringValue(),
		Success:  fields["success"].GetBoolValue(),
		Duration: time.Duration(fields["duration_us"].GetNumberValue()) * time.Microsecond,
		Metadata: fromStringMap(fields["metadata"]),
	}
	if output := fields["output"].GetStringValue(); output != "" {
		resp.Output = []byte(output)
	}
	if e := fields["error"].GetStructValue(); e != nil {
		resp.Error = NewServiceError(
			e.GetFields()["code"].GetStringValue(),
			e.GetFields()["message"].GetStringValue(),
		)
	}

	return resp, nil
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func fromStringMap(v *structpb.Value) map[string]string {
	out := make(map[string]string)
	for k, val := range v.GetStructValue().GetFields() {
		out[k] = val.GetStringValue()
	}
	return out
}
