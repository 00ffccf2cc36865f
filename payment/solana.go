package payment

import (
	"context"
	"time"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"taap-agent-system/models"
)

// SolanaProvider simulates payment verification against a Solana-style
// chain. Confirmations are much faster than Ethereum's.
type SolanaProvider struct {
	ledger       *ledger
	confirmDelay time.Duration
	log          *zap.Logger
}

// NewSolanaProvider returns a provider with an empty ledger.
func NewSolanaProvider(log *zap.Logger) *SolanaProvider {
	return &SolanaProvider{
		ledger:       newLedger(),
		confirmDelay: 20 * time.Millisecond,
		log:          log,
	}
}

// ChainID implements Provider.
func (p *SolanaProvider) ChainID() string {
	return "solana"
}

// ValidateAddress implements Provider. Solana addresses are base58 strings
// of 32 to 44 characters.
func (p *SolanaProvider) ValidateAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	_, err := base58.Decode(address)
	return err == nil
}

// QuotePrice implements Provider. The price model matches Ethereum's; a
// production system would convert through a price oracle.
func (p *SolanaProvider) QuotePrice(code models.ServiceCode) (float64, error) {
	if !models.ValidServiceCode(code) {
		return 0, models.NewFormatError("invalid service code: %s", code)
	}
	return models.ServicePrice(code), nil
}

// VerifyPayment implements Provider.
func (p *SolanaProvider) VerifyPayment(ctx context.Context, address string, code models.ServiceCode) (bool, error) {
	if !p.ValidateAddress(address) {
		return false, models.NewFormatError("invalid solana address: %s", address)
	}
	price, err := p.QuotePrice(code)
	if err != nil {
		return false, err
	}
	if !p.ledger.covers(address, price) {
		p.log.Info("insufficient balance",
			zap.String("chain", p.ChainID()),
			zap.String("address", address),
			zap.Float64("price", price))
		return false, nil
	}

	select {
	case <-time.After(p.confirmDelay):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	if !p.ledger.debitAndLock(address, string(code), price) {
		return false, nil
	}
	p.log.Info("payment locked",
		zap.String("chain", p.ChainID()),
		zap.String("address", address),
		zap.String("service_code", string(code)),
		zap.Float64("amount", price))
	return true, nil
}

// Refund implements Provider.
func (p *SolanaProvider) Refund(ctx context.Context, address, orderID string) error {
	if !p.ValidateAddress(address) {
		return models.NewFormatError("invalid solana address: %s", address)
	}
	if err := p.ledger.refund(address); err != nil {
		return err
	}
	p.log.Info("payment refunded",
		zap.String("chain", p.ChainID()),
		zap.String("address", address),
		zap.String("order_id", orderID))
	return nil
}

// Deposit credits address, funding it for simulated payments.
func (p *SolanaProvider) Deposit(address string, amount float64) error {
	if !p.ValidateAddress(address) {
		return models.NewFormatError("invalid solana address: %s", address)
	}
	p.ledger.deposit(address, amount)
	return nil
}

// Balance returns the current balance of address.
func (p *SolanaProvider) Balance(address string) float64 {
	return p.ledger.balance(address)
}
