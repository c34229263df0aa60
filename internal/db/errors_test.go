package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "client not found: 42", (&NotFoundError{Entity: "client", ID: "42"}).Error())
	assert.Equal(t, "client with email a@b.co already exists", (&DuplicateEmailError{Email: "a@b.co"}).Error())
	assert.Equal(t, "failed to list clients: boom", (&DatabaseError{Op: "list clients", Cause: errors.New("boom")}).Error())
}

func TestErrorMatchingThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("failed to load client: %w", &NotFoundError{Entity: "client", ID: "x"})
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsDuplicateEmail(wrapped))

	cause := errors.New("connection reset")
	dbErr := wrapErr("get client", cause)
	assert.ErrorIs(t, dbErr, cause)
	assert.Nil(t, wrapErr("noop", nil))
}

func TestClientListParamsNormalize(t *testing.T) {
	p := ClientListParams{Page: 0, PageSize: 500, Search: "  acme "}.normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, "acme", p.Search)
	assert.Equal(t, 0, p.offset())

	p = ClientListParams{Page: 3, PageSize: 0}.normalize()
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 40, p.offset())
}

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	assert.NoError(t, err)
	assert.Equal(t, []string{"001_create_clients.sql", "002_create_content_pipeline_runs.sql"}, names)
}
