package ebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebook-studio-api/internal/domain/entity"
	apperrors "ebook-studio-api/pkg/errors"
)

func TestRegistryOwnership(t *testing.T) {
	r, err := NewRegistry(4, &fakeGateway{}, WithDelays(Delays{}))
	require.NoError(t, err)

	c := r.Create("alice@ebook.com", "key")
	assert.Equal(t, entity.StageInput, c.Stage())
	assert.Equal(t, "alice@ebook.com", c.Owner())

	got, err := r.GetOwned(c.ID(), "alice@ebook.com", false)
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = r.GetOwned(c.ID(), "bob@ebook.com", false)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	_, err = r.GetOwned(c.ID(), "admin@ebook.com", true)
	assert.NoError(t, err)

	_, err = r.Get("missing")
	assert.Equal(t, apperrors.CodeRunNotFound, apperrors.CodeOf(err))
}

func TestRegistryEvictsOldest(t *testing.T) {
	r, err := NewRegistry(2, &fakeGateway{})
	require.NoError(t, err)

	first := r.Create("u", "k")
	r.Create("u", "k")
	r.Create("u", "k")

	assert.Equal(t, 2, r.Len())
	_, err = r.Get(first.ID())
	assert.Error(t, err)

	assert.True(t, r.Remove(r.Create("u", "k").ID()))
}
