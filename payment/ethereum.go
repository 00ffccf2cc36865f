package payment

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"taap-agent-system/models"
)

// ethereumAddressPattern matches a 0x-prefixed 40-digit hex address.
var ethereumAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// EthereumProvider simulates payment verification against an
// Ethereum-style chain. Confirmation latency models waiting for block
// confirmations.
type EthereumProvider struct {
	ledger       *ledger
	confirmDelay time.Duration
	log          *zap.Logger
}

// NewEthereumProvider returns a provider with an empty ledger.
func NewEthereumProvider(log *zap.Logger) *EthereumProvider {
	return &EthereumProvider{
		ledger:       newLedger(),
		confirmDelay: 100 * time.Millisecond,
		log:          log,
	}
}

// ChainID implements Provider.
func (p *EthereumProvider) ChainID() string {
	return "ethereum"
}

// ValidateAddress implements Provider.
func (p *EthereumProvider) ValidateAddress(address string) bool {
	return ethereumAddressPattern.MatchString(address)
}

// QuotePrice implements Provider.
func (p *EthereumProvider) QuotePrice(code models.ServiceCode) (float64, error) {
	if !models.ValidServiceCode(code) {
		return 0, models.NewFormatError("invalid service code: %s", code)
	}
	return models.ServicePrice(code), nil
}

// VerifyPayment implements Provider. Insufficient funds is a definitive
// negative, not an error.
func (p *EthereumProvider) VerifyPayment(ctx context.Context, address string, code models.ServiceCode) (bool, error) {
	if !p.ValidateAddress(address) {
		return false, models.NewFormatError("invalid ethereum address: %s", address)
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

	// Simulate waiting for block confirmations.
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
func (p *EthereumProvider) Refund(ctx context.Context, address, orderID string) error {
	if !p.ValidateAddress(address) {
		return models.NewFormatError("invalid ethereum address: %s", address)
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
func (p *EthereumProvider) Deposit(address string, amount float64) error {
	if !p.ValidateAddress(address) {
		return models.NewFormatError("invalid ethereum address: %s", address)
	}
	p.ledger.deposit(address, amount)
	return nil
}

// Balance returns the current balance of address.
func (p *EthereumProvider) Balance(address string) float64 {
	return p.ledger.balance(address)
}
