package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	p := Detect()
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, p.String())
}

func TestParseNormalizesArch(t *testing.T) {
	p, err := Parse("Linux/x86_64")
	require.NoError(t, err)
	assert.Equal(t, "linux/amd64", p.String())

	_, err = Parse("linux")
	require.Error(t, err)
}

func TestMatches(t *testing.T) {
	tests := []struct {
		plat, tag string
		want      bool
	}{
		{"linux/amd64", "any", true},
		{"linux/amd64", "linux/amd64", true},
		{"linux/amd64", "linux/x86_64", true},
		{"linux/arm64", "linux/aarch64", true},
		{"linux/amd64", "darwin/amd64", false},
		{"linux/amd64", "garbage", false},
		{"garbage", "any", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.plat, tt.tag), "%s vs %s", tt.plat, tt.tag)
	}
}
