package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementsAreRerunnable(t *testing.T) {
	for i, s := range Statements {
		up := strings.ToUpper(s)
		ok := strings.Contains(up, "IF NOT EXISTS") || strings.Contains(up, "ON CONFLICT")
		assert.True(t, ok, "statement %d", i)
	}
}
