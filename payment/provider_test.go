package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taap-agent-system/models"
)

const (
	ethAddress    = "0x1234567890abcdef1234567890abcdef12345678"
	solanaAddress = "11111111111111111111111111111111"
)

func TestEthereumAddressValidation(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())

	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"Canonical address", ethAddress, true},
		{"Mixed case hex", "0xABCDef1234567890abcdef1234567890ABCDEF12", true},
		{"Missing prefix", "1234567890abcdef1234567890abcdef12345678", false},
		{"Too short", "0x1234", false},
		{"Too long", ethAddress + "ab", false},
		{"Non-hex characters", "0x1234567890abcdef1234567890abcdef1234567g", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, p.ValidateAddress(tt.address))
		})
	}
}

func TestSolanaAddressValidation(t *testing.T) {
	p := NewSolanaProvider(zap.NewNop())

	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"System program address", solanaAddress, true},
		{"Typical length address", "4Nd1mYvNpS4x6aJqF7vG8hW2kL9cR3dT5bU1eX7zQ9sM", true},
		{"Too short", "abc", false},
		{"Too long", "4Nd1mYvNpS4x6aJqF7vG8hW2kL9cR3dT5bU1eX7zQ9sM4Nd1m", false},
		{"Invalid base58 characters", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, p.ValidateAddress(tt.address))
		})
	}
}

func TestQuotePrice(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())

	price, err := p.QuotePrice(models.ServiceSinglePost)
	require.NoError(t, err)
	assert.Equal(t, 0.1, price)

	price, err = p.QuotePrice(models.ServiceSeries)
	require.NoError(t, err)
	assert.Equal(t, 0.25, price)

	price, err = p.QuotePrice(models.ServiceCampaign)
	require.NoError(t, err)
	assert.Equal(t, 0.5, price)

	_, err = p.QuotePrice("S9")
	assert.True(t, models.IsFormatError(err))
}

func TestVerifyPaymentDebitsBalance(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())
	require.NoError(t, p.Deposit(ethAddress, 1.0))

	ok, err := p.VerifyPayment(context.Background(), ethAddress, models.ServiceCampaign)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, p.Balance(ethAddress), 1e-9)
}

func TestVerifyPaymentInsufficientBalance(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())
	require.NoError(t, p.Deposit(ethAddress, 0.05))

	// A definitive negative, not an error.
	ok, err := p.VerifyPayment(context.Background(), ethAddress, models.ServiceSinglePost)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 0.05, p.Balance(ethAddress), 1e-9)
}

func TestVerifyPaymentInvalidInputs(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())

	_, err := p.VerifyPayment(context.Background(), "not-an-address", models.ServiceSinglePost)
	assert.True(t, models.IsFormatError(err))

	_, err = p.VerifyPayment(context.Background(), ethAddress, "S9")
	assert.True(t, models.IsFormatError(err))
}

func TestVerifyPaymentHonorsContext(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())
	require.NoError(t, p.Deposit(ethAddress, 1.0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.VerifyPayment(ctx, ethAddress, models.ServiceSinglePost)
	assert.ErrorIs(t, err, context.Canceled)
	// Cancelled before confirmation, so nothing was debited.
	assert.InDelta(t, 1.0, p.Balance(ethAddress), 1e-9)
}

func TestRefundRestoresBalance(t *testing.T) {
	p := NewSolanaProvider(zap.NewNop())
	require.NoError(t, p.Deposit(solanaAddress, 0.5))

	ok, err := p.VerifyPayment(context.Background(), solanaAddress, models.ServiceSeries)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.25, p.Balance(solanaAddress), 1e-9)

	require.NoError(t, p.Refund(context.Background(), solanaAddress, "ADS_1"))
	assert.InDelta(t, 0.5, p.Balance(solanaAddress), 1e-9)
}

func TestRefundWithoutPayment(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())

	err := p.Refund(context.Background(), ethAddress, "ADS_1")
	assert.ErrorContains(t, err, "payment not found")
}

func TestRefundReversesMostRecentLock(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())
	require.NoError(t, p.Deposit(ethAddress, 1.0))

	ok, err := p.VerifyPayment(context.Background(), ethAddress, models.ServiceSinglePost)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = p.VerifyPayment(context.Background(), ethAddress, models.ServiceCampaign)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.4, p.Balance(ethAddress), 1e-9)

	// The most recent lock (S3 at 0.5) is the one reversed.
	require.NoError(t, p.Refund(context.Background(), ethAddress, "ADS_2"))
	assert.InDelta(t, 0.9, p.Balance(ethAddress), 1e-9)
}

func TestConcurrentVerifyCannotDoubleSpend(t *testing.T) {
	p := NewEthereumProvider(zap.NewNop())
	require.NoError(t, p.Deposit(ethAddress, 0.1))

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := p.VerifyPayment(context.Background(), ethAddress, models.ServiceSinglePost)
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one verification may debit the balance")
	assert.InDelta(t, 0.0, p.Balance(ethAddress), 1e-9)
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewEthereumProvider(zap.NewNop()))
	reg.Register(NewSolanaProvider(zap.NewNop()))

	p, err := reg.Lookup("ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", p.ChainID())

	_, err = reg.Lookup("bitcoin")
	assert.Error(t, err)

	assert.ElementsMatch(t, []string{"ethereum", "solana"}, reg.Chains())
}
