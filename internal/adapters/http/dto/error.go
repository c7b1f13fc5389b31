package dto

type ErrorResponse struct {
	Error   string `json:"error" msgpack:"error"`
	Message string `json:"message,omitempty" msgpack:"message,omitempty"`
	Code    int    `json:"code,omitempty" msgpack:"code,omitempty"`
	// Rule names the policy rule that rejected a candidate prompt
	Rule string `json:"rule,omitempty" msgpack:"rule,omitempty"`
}

func NewErrorResponse(err string, message string, code int) *ErrorResponse {
	return &ErrorResponse{
		Error:   err,
		Message: message,
		Code:    code,
	}
}
