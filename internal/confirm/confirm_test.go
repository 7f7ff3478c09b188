package confirm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAskAcceptsY(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, Ask(strings.NewReader("y\n"), &out, "Are you sure you want to continue?"))
}

func TestAskAcceptsN(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, Ask(strings.NewReader("n\n"), &out, "Are you sure you want to continue?"))
}

func TestAskIsCaseInsensitiveAndTrimmed(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, Ask(strings.NewReader("  Y  \n"), &out, "continue?"))
}

func TestAskRepromptsOnGarbageInput(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, Ask(strings.NewReader("maybe\nsure\ny\n"), &out, "continue?"))
}

func TestAskDeclinesOnExhaustedInput(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, Ask(strings.NewReader(""), &out, "continue?"))
}
