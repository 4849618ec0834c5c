package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmailEscapesInput(t *testing.T) {
	html, err := RenderEmail("order", map[string]any{
		"Name":      "<b>Ana</b>",
		"Message":   "Your order is ready",
		"Link":      "https://app.example.com/orders/1",
		"Reference": "TF-20240101-ABCDEF",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;b&gt;Ana&lt;/b&gt;")
	assert.Contains(t, html, "TF-20240101-ABCDEF")
}

func TestRenderEmailVerify(t *testing.T) {
	html, err := RenderEmail("verify", map[string]any{
		"Name":      "Ana",
		"Link":      "https://app.example.com/verify?token=t",
		"ExpiresAt": time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Contains(t, html, "01 Mar 2024 10:00 UTC")
}

func TestRenderEmailUnknownTemplate(t *testing.T) {
	_, err := RenderEmail("missing", nil)
	assert.Error(t, err)
}
