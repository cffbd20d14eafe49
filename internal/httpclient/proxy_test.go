package httpclient

import (
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProxyURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare host port", input: "1.2.3.4:8080", want: "http://1.2.3.4:8080"},
		{name: "trimmed", input: "  1.2.3.4:3128 ", want: "http://1.2.3.4:3128"},
		{name: "socks5", input: "socks5://10.0.0.1:1080", want: "socks5://10.0.0.1:1080"},
		{name: "uppercase scheme", input: "HTTPS://proxy.local:443", want: "https://proxy.local:443"},
		{name: "empty", input: "", wantErr: true},
		{name: "unsupported scheme", input: "ftp://1.2.3.4:21", wantErr: true},
		{name: "missing port", input: "http://1.2.3.4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseProxyURL(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestApplyProxy(t *testing.T) {
	dialer := &net.Dialer{}

	httpURL, err := ParseProxyURL("1.2.3.4:8080")
	require.NoError(t, err)
	transport := &http.Transport{}
	require.NoError(t, applyProxy(transport, httpURL, dialer))
	assert.NotNil(t, transport.Proxy)

	socksURL, err := ParseProxyURL("socks5h://1.2.3.4:1080")
	require.NoError(t, err)
	transport = &http.Transport{Proxy: http.ProxyFromEnvironment}
	require.NoError(t, applyProxy(transport, socksURL, dialer))
	assert.Nil(t, transport.Proxy)
	assert.NotNil(t, transport.DialContext)
}
