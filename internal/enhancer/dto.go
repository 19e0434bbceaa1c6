package enhancer

// errorPayload covers both error shapes the service emits: the
// {"error": "..."} body and the framework's {"detail": "..."} body.
type errorPayload struct {
	Error  string `json:"error"`
	Detail any    `json:"detail"`
}

func (p *errorPayload) message() string {
	if p == nil {
		return ""
	}
	if p.Error != "" {
		return p.Error
	}
	if s, ok := p.Detail.(string); ok {
		return s
	}
	return ""
}

type submitResponse struct {
	ID        string `json:"id"`
	OutputURL string `json:"outputUrl"`
}

type taskResponse struct {
	ID        string `json:"id"`
	OutputURL string `json:"outputUrl"`
	Status    string `json:"status"`
	Model     string `json:"model"`
	Algo      string `json:"algo"`
	Scale     int    `json:"scale"`
	Input     string `json:"input"`
}
