package util

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
	assert.Equal(t, "", WrapString(""))
}

func TestGetClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("endpoint", "10.0.0.5:9090")
	viper.Set("conn-timeout", 250)
	viper.Set("timeout", 3)
	viper.Set("transport-read-buffer", 4)
	viper.Set("transport-tcp-linger", -1)

	conf, err := GetClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", conf.Endpoint.Host)
	assert.Equal(t, 9090, conf.Endpoint.Port)
	assert.Equal(t, 250, conf.Endpoint.ConnTimeoutMillisecond)
	assert.Equal(t, 3, conf.TimeoutSecond)
	assert.Equal(t, 4096, conf.Transport.ReadBufferSize)
	assert.Equal(t, -1, conf.Transport.TCPLingerSec)

	viper.Set("endpoint", "host:notaport")
	_, err = GetClientConfig()
	assert.Error(t, err)
}

func TestFactories(t *testing.T) {
	t.Cleanup(viper.Reset)

	for _, name := range []string{"json", "gob", "binary"} {
		viper.Set("serializer", name)
		s, err := GetSerializer()
		require.NoError(t, err, name)
		assert.NotNil(t, s)
	}
	viper.Set("serializer", "xml")
	_, err := GetSerializer()
	assert.Error(t, err)

	for _, name := range []string{"tcp", "unix"} {
		viper.Set("transport", name)
		c, err := GetTransport()
		require.NoError(t, err, name)
		assert.NotNil(t, c)
		s, err := GetServerTransport(1024, 1)
		require.NoError(t, err, name)
		assert.NotNil(t, s)
	}
	viper.Set("transport", "http")
	_, err = GetTransport()
	assert.Error(t, err)
}
