package constructs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/raywall/raysouz-constructs/pkg/types"
)

func TestRole_GrantPointerVariants(t *testing.T) {
	s := newTestStack(t)
	r, err := NewRole(s, "Role", RoleProps{AssumedBy: "lambda.amazonaws.com"})
	require.NoError(t, err)

	stmt := dto.Allow([]string{"s3:GetObject"}, "arn:aws:s3:::bucket/*")
	require.NoError(t, r.Grant(&stmt))
	require.NoError(t, r.Grant(&dto.ManagedPolicy{Arn: "arn:aws:iam::123456789012:policy/custom"}))
	assert.Equal(t, []dto.PolicyStatement{stmt}, r.Statements())
	assert.Equal(t, []string{"arn:aws:iam::123456789012:policy/custom"}, r.ManagedPolicyArns())

	var nilStmt *dto.PolicyStatement
	var nilPolicy *dto.ManagedPolicy
	assert.Error(t, r.Grant(nilStmt))
	assert.Error(t, r.Grant(nilPolicy))
	assert.Error(t, r.Grant(nil))
	assert.Len(t, r.Statements(), 1)
}
