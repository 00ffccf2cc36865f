package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taap-agent-system/models"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	signer := NewSigner()
	msg := models.NewAgentMessage(models.MessageNewOrder, "ADS_1", "state=RECEIVED")

	signed, err := signer.Sign(AgentOPA, msg)
	require.NoError(t, err)
	require.NotEmpty(t, signed.Signature)

	assert.True(t, signer.Verify(AgentOPA, signed))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	signer := NewSigner()
	msg := models.NewAgentMessage(models.MessageStatusUpdate, "ADS_1", "state=PAYMENT_VERIFIED")

	_, err := signer.Sign(AgentOPA, msg)
	require.NoError(t, err)

	msg.OrderID = "ADS_2"
	assert.False(t, signer.Verify(AgentOPA, msg))
}

func TestVerifyRejectsWrongIdentity(t *testing.T) {
	signer := NewSigner()
	msg := models.NewAgentMessage(models.MessageCompletion, "ADS_1", "")

	_, err := signer.Sign(AgentCPA, msg)
	require.NoError(t, err)

	assert.True(t, signer.Verify(AgentCPA, msg))
	assert.False(t, signer.Verify(AgentOPA, msg))
}

func TestVerifyRejectsUnsignedAndNil(t *testing.T) {
	signer := NewSigner()
	assert.False(t, signer.Verify(AgentOPA, nil))

	msg := models.NewAgentMessage(models.MessageError, "ADS_1", "")
	assert.False(t, signer.Verify(AgentOPA, msg))
}

func TestSignUnknownAgent(t *testing.T) {
	signer := &Signer{keys: map[Agent][]byte{}}
	msg := models.NewAgentMessage(models.MessageNewOrder, "ADS_1", "")

	_, err := signer.Sign(AgentOPA, msg)
	assert.Error(t, err)
	assert.False(t, signer.Verify(AgentOPA, msg))
}

func TestRegisterReplacesCredential(t *testing.T) {
	signer := NewSigner()
	msg := models.NewAgentMessage(models.MessageNewOrder, "ADS_1", "")

	_, err := signer.Sign(AgentOPA, msg)
	require.NoError(t, err)

	signer.Register(AgentOPA, []byte("rotated-key"))
	assert.False(t, signer.Verify(AgentOPA, msg))

	_, err = signer.Sign(AgentOPA, msg)
	require.NoError(t, err)
	assert.True(t, signer.Verify(AgentOPA, msg))
}

func TestRateLimiterQuota(t *testing.T) {
	limiter := NewRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("0xabc"), "request %d inside quota", i+1)
	}
	assert.False(t, limiter.Allow("0xabc"))

	// Quotas are per address.
	assert.True(t, limiter.Allow("0xdef"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(2, time.Hour)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })

	assert.True(t, limiter.Allow("0xabc"))
	assert.True(t, limiter.Allow("0xabc"))
	assert.False(t, limiter.Allow("0xabc"))

	// After the window passes the early requests no longer count.
	now = now.Add(time.Hour + time.Minute)
	assert.True(t, limiter.Allow("0xabc"))
}
