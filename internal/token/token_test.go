package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attest/pkg/domain-errors"
)

func newTestService() *Service {
	return NewService("test-signing-key", "attest", "attest-operator", 15*time.Minute).WithEnv("test")
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService()

	signed, err := svc.Generate("REGISTRAR-ADDRESS")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "REGISTRAR-ADDRESS", claims.Operator)
	assert.Equal(t, "REGISTRAR-ADDRESS", claims.Subject)
	assert.Equal(t, "test", claims.Env)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateRequiresOperator(t *testing.T) {
	_, err := newTestService().Generate("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	signed, err := newTestService().Generate("REGISTRAR-ADDRESS")
	require.NoError(t, err)

	other := NewService("different-key", "attest", "attest-operator", 15*time.Minute)
	_, err = other.Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	issuer := NewService("test-signing-key", "attest", "someone-else", 15*time.Minute)
	signed, err := issuer.Generate("REGISTRAR-ADDRESS")
	require.NoError(t, err)

	_, err = newTestService().Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	expired := NewService("test-signing-key", "attest", "attest-operator", -time.Minute)
	signed, err := expired.Generate("REGISTRAR-ADDRESS")
	require.NoError(t, err)

	_, err = newTestService().Validate(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := newTestService().Validate("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
