package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlld-lang/mlld-go/internal/security"
)

func TestClassifyCommandRejectsForbiddenOperators(t *testing.T) {
	cases := []string{
		"echo hi && rm -rf /",
		"echo hi || rm -rf /",
		"echo hi; rm -rf /",
		"echo hi > out.txt",
		"echo hi >> out.txt",
		"cat < in.txt",
		"sleep 10 &",
	}
	for _, cmd := range cases {
		err := security.ClassifyCommand(cmd)
		assert.Error(t, err, "expected forbidden operator in %q", cmd)
	}
}

func TestClassifyCommandAllowsQuotedOperators(t *testing.T) {
	assert.NoError(t, security.ClassifyCommand(`echo "a && b"`))
	assert.NoError(t, security.ClassifyCommand(`echo 'x; y'`))
}

func TestClassifyCommandAllowsHeredocAndLessEqualAndAmpGt(t *testing.T) {
	assert.NoError(t, security.ClassifyCommand("cat <<EOF\nhi\nEOF"))
	assert.NoError(t, security.ClassifyCommand("test 1 <= 2"))
	assert.NoError(t, security.ClassifyCommand("cmd &> out.txt"))
}

func TestClassifyCommandRejectsDoubleAmpersandEvenThoughItContainsAllowedAmpGt(t *testing.T) {
	assert.Error(t, security.ClassifyCommand("echo hi &> out.txt && echo bye"))
}
