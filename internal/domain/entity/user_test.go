package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@x.com", NormalizeEmail("  Jane@X.COM "))
	assert.Equal(t, NormalizeEmail("JANE@x.com"), NormalizeEmail("jane@X.com"))
}

func TestCreateOutcomeString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "already_exists", AlreadyExists.String())
	assert.Equal(t, "unknown", CreateOutcome(0).String())
}
