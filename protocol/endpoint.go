package protocol

import (
	"fmt"
	"strconv"

	"github.com/yosida95/uritemplate/v3"
)

// DefaultEndpointTemplate is expanded with the server identity to get the socket URL.
const DefaultEndpointTemplate = "wss://api.battlefield.agency/ws{?username}"

// Identity is the per-endpoint username the remote side knows a server by.
func Identity(ip string, port int) string {
	return ip + "_" + strconv.Itoa(port)
}

func ExpandEndpoint(template, identity string) (string, error) {
	tmpl, err := uritemplate.New(template)
	if err != nil {
		return "", fmt.Errorf("parse endpoint template %q: %w", template, err)
	}
	u, err := tmpl.Expand(uritemplate.Values{
		"username": uritemplate.String(identity),
	})
	if err != nil {
		return "", fmt.Errorf("expand endpoint template %q: %w", template, err)
	}
	return u, nil
}
