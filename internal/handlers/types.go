package handlers

import "time"

// EvaluateRequest is the request body for evaluating an identity against the limiter.
type EvaluateRequest struct {
	Body struct {
		Identity string `doc:"The caller identity to count" example:"user-42" json:"identity"`
	}
}

// DecisionBody describes the admission decision for one request.
type DecisionBody struct {
	Identity  string    `doc:"The evaluated identity"                      example:"user-42"              json:"identity"`
	Count     int64     `doc:"Requests counted in the current window"      example:"7"                    json:"count"`
	Limit     int64     `doc:"Requests allowed per window"                 example:"100"                  json:"limit"`
	Remaining int64     `doc:"Requests left in the current window"         example:"93"                   json:"remaining"`
	Limited   bool      `doc:"Whether the request must be rejected"        example:"false"                json:"limited"`
	ResetAt   time.Time `doc:"When the current window ends"                example:"2024-03-01T13:00:00Z" json:"resetAt"`
	Message   string    `doc:"Human readable rejection, set when limited"  json:"message,omitempty"`
}

// EvaluateResponse is the response for an evaluation. Limited decisions are still 200.
type EvaluateResponse struct {
	Body DecisionBody
}

// PingResponse is the response of the rate limited ping endpoint.
type PingResponse struct {
	Body struct {
		Message string `example:"pong" json:"message"`
	}
}
