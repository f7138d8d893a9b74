package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifier_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), "+91 8707535798", "New Order DK-ORD-10001 received. Total: ₹49.50"))

	entries := logs.FilterMessage("sms notification").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "+91 8707535798", fields["to"])
	assert.Equal(t, "New Order DK-ORD-10001 received. Total: ₹49.50", fields["message"])
}
