package broker

import (
	"github.com/sevigo/resizer/internal/core"
)

// ResizeRequest is the JSON body of a message on the request queue.
// Image is base64 encoded on the wire.
type ResizeRequest struct {
	Image  []byte  `json:"image"`
	Width  *uint16 `json:"width,omitempty"`
	Height *uint16 `json:"height,omitempty"`
}

// Params resolves the requested size, filling absent dimensions from defaults.
func (r ResizeRequest) Params(defaults core.Params) core.Params {
	p := defaults
	if r.Width != nil {
		p.Width = *r.Width
	}
	if r.Height != nil {
		p.Height = *r.Height
	}
	return p
}

// ResizeResponse is published for every consumed request. Exactly one of
// Succeed and Failed is set.
type ResizeResponse struct {
	Succeed []byte `json:"succeed,omitempty"`
	Failed  string `json:"failed,omitempty"`
}
