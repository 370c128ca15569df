package models

// Response is the JSON body of every HTTP answer of the service.
type Response struct {
	Success   bool              `json:"success"`
	RequestID string            `json:"request_id,omitempty"`
	Data      any               `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

func Fail(message string) Response {
	return Response{Error: message}
}

// Invalid reports rejected request fields, keyed by field name.
func Invalid(fields map[string]string) Response {
	return Response{Error: "Validation failed", Fields: fields}
}

// WithRequestID tags the response with the id the request is logged under.
func (r Response) WithRequestID(id string) Response {
	r.RequestID = id
	return r
}
