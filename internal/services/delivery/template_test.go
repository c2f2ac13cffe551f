// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery_test

import (
	"errors"
	"testing"

	"codeberg.org/oliverandrich/rsvp-service/internal/services/delivery"
	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	out := delivery.RenderTemplate(
		"Dear {{name}}, please RSVP at {{url}}.",
		map[string]string{"name": "Ada", "url": "https://example.com/rsvp/abc"},
	)

	assert.Equal(t, "Dear Ada, please RSVP at https://example.com/rsvp/abc.", out)
}

func TestRenderTemplate_NoVars(t *testing.T) {
	assert.Equal(t, "Hello {{name}}", delivery.RenderTemplate("Hello {{name}}", nil))
}

func TestRenderTemplate_UnknownPlaceholderKept(t *testing.T) {
	out := delivery.RenderTemplate("Hello {{name}} {{missing}}", map[string]string{"name": "Ada"})

	assert.Equal(t, "Hello Ada {{missing}}", out)
}

func TestPermanentError(t *testing.T) {
	base := errors.New("boom")

	wrapped := delivery.Permanent(base)

	assert.True(t, delivery.IsPermanent(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.False(t, delivery.IsPermanent(base))
	assert.Nil(t, delivery.Permanent(nil))
}
