package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDocument(t *testing.T) {
	assert.Equal(t, "12345678000190", NormalizeDocument("12.345.678/0001-90"))
	assert.Equal(t, "12345678909", NormalizeDocument(" 123.456.789-09 "))
	assert.Equal(t, "AB12", NormalizeDocument("ab-12"))
	assert.Empty(t, NormalizeDocument(" "))
}
