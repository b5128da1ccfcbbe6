package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoLog(t *testing.T) {
	assert.Equal(t, "0:3(1): error: syntax error", infoLog("0:3(1): error: syntax error\n\x00\x00"))
	assert.Equal(t, "", infoLog("\x00"))
	assert.Equal(t, "a\nb", infoLog("a\nb\n"))
}

func TestShaderErrorMessage(t *testing.T) {
	assert.Equal(t, "failed to compile fragment shader: bad token",
		(&ShaderError{Stage: "fragment", Log: "bad token"}).Error())
	assert.Equal(t, "shader program failed to link: missing main",
		(&ShaderError{Stage: "link", Log: "missing main"}).Error())

	wrapped := fmt.Errorf("failed to compile shaders: %w", &ShaderError{Stage: "vertex", Log: "x"})
	var serr *ShaderError
	require.True(t, errors.As(wrapped, &serr))
	assert.Equal(t, "vertex", serr.Stage)
}
