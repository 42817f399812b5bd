package jwttoken_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condoflow/internal/jwttoken"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/requestcontext"
)

func TestValidateToken(t *testing.T) {
	svc := jwttoken.New("test-signing-key", "condoflow")
	actorID := id.ActorID(uuid.New())

	token, err := svc.GenerateToken(actorID, requestcontext.RoleManager, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actorID, claims.ActorID)
	assert.Equal(t, requestcontext.RoleManager, claims.Role)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := jwttoken.New("test-signing-key", "condoflow")

	token, err := svc.GenerateToken(id.ActorID(uuid.New()), requestcontext.RoleResident, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateTokenWrongKey(t *testing.T) {
	issuer := jwttoken.New("key-one", "condoflow")
	validator := jwttoken.New("key-two", "condoflow")

	token, err := issuer.GenerateToken(id.ActorID(uuid.New()), requestcontext.RoleAuthority, time.Hour)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := jwttoken.New("test-signing-key", "condoflow")

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenUnknownRole(t *testing.T) {
	svc := jwttoken.New("test-signing-key", "condoflow")

	token, err := svc.GenerateToken(id.ActorID(uuid.New()), requestcontext.ActorRole("janitor"), time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
