package client

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/mdlayher/vsock"
)

// defaultHostCID is the context ID of the hypervisor host.
const defaultHostCID = 3

// NewVsockHTTPClient returns an HTTP client that dials the enclave's request
// proxy over vsock. The target address is written as the first line of the
// connection so the proxy knows where to forward.
func NewVsockHTTPClient(port uint32) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				vsockConn, err := vsock.Dial(defaultHostCID, port, nil)
				if err != nil {
					return nil, fmt.Errorf("failed to dial vsock: %w", err)
				}
				_, err = vsockConn.Write([]byte(addr + "\n"))
				if err != nil {
					return nil, fmt.Errorf("failed to write to vsock: %w", err)
				}
				return vsockConn, nil
			},
		},
	}
}
