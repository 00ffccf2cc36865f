// Package agents implements the Order Processing Agent and the Content
// Processing Agent that together drive an order from command text to a
// published post.
package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"taap-agent-system/models"
	"taap-agent-system/orderstore"
	"taap-agent-system/payment"
	"taap-agent-system/retry"
	"taap-agent-system/security"
)

// MaxRequirementLength bounds the free-text requirement of a command.
const MaxRequirementLength = 200

// DefaultChain is selected when a command carries no chain tag.
const DefaultChain = "ethereum"

// commandPattern matches the coarse shape of an order command; address,
// service code, chain tag, and requirement are validated separately so each
// failure reports its own condition.
var commandPattern = regexp.MustCompile(`^#aiads\s+(\S+)\s+(\S+)\s+(.+)$`)

// paymentRef remembers where a verified payment was locked so a later
// failure can be refunded.
type paymentRef struct {
	chain   string
	address string
}

// OPA is the Order Processing Agent. It parses commands, owns order
// identity and lifecycle state, and verifies payment through the
// chain-specific provider.
type OPA struct {
	store     *orderstore.Store
	providers *payment.Registry
	signer    *security.Signer
	limiter   *security.RateLimiter
	log       *zap.Logger
	retryOpts []retry.Option

	mu    sync.Mutex
	locks map[string]paymentRef
}

// NewOPA wires an order processing agent from its collaborators.
func NewOPA(store *orderstore.Store, providers *payment.Registry, signer *security.Signer, limiter *security.RateLimiter, log *zap.Logger, retryOpts ...retry.Option) *OPA {
	return &OPA{
		store:     store,
		providers: providers,
		signer:    signer,
		limiter:   limiter,
		log:       log,
		retryOpts: retryOpts,
		locks:     make(map[string]paymentRef),
	}
}

// ParseOrderCommand validates an order command and creates the order.
// Validation order matters for error precision: rate limit on the extracted
// address, then grammar, then chain-specific address format, then service
// code membership, then requirement length. Any failure short-circuits
// before the order is stored. On success it returns the new order together
// with the signed NEW_ORDER acknowledgement.
func (a *OPA) ParseOrderCommand(text string) (*models.Order, *models.AgentMessage, error) {
	text = strings.TrimSpace(text)

	if address, ok := extractAddress(text); ok {
		if !a.limiter.Allow(address) {
			a.log.Warn("order command rate limited", zap.String("address", address))
			return nil, nil, models.NewRateLimitError(address)
		}
	}

	match := commandPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, nil, models.NewFormatError("command does not match required pattern")
	}
	address, code := match[1], models.ServiceCode(match[2])
	requirement, chain := a.splitRequirement(match[3])

	provider, err := a.providers.Lookup(chain)
	if err != nil {
		return nil, nil, models.NewFormatError("unsupported chain: %s", chain)
	}
	if !provider.ValidateAddress(address) {
		return nil, nil, models.NewFormatError("invalid %s address: %s", chain, address)
	}
	if !models.ValidServiceCode(code) {
		return nil, nil, models.NewFormatError("invalid service code: %s", code)
	}
	if utf8.RuneCountInString(requirement) > MaxRequirementLength {
		return nil, nil, models.NewFormatError("requirement text exceeds %d characters", MaxRequirementLength)
	}

	order, err := a.store.Create(orderstore.CreateRequest{
		PayerAddress: address,
		ServiceCode:  code,
		Requirement:  requirement,
		Chain:        chain,
	})
	if err != nil {
		return nil, nil, err
	}

	ack := models.NewAgentMessage(models.MessageNewOrder, order.ID, string(order.ServiceCode))
	if _, err := a.signer.Sign(security.AgentOPA, ack); err != nil {
		return nil, nil, fmt.Errorf("failed to sign order acknowledgement: %w", err)
	}

	a.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("chain", order.Chain),
		zap.String("service_code", string(order.ServiceCode)))
	return order, ack, nil
}

// VerifyPayment runs the order's provider under the payment-verification
// stage policy and transitions the order to PAYMENT_VERIFIED on success.
// Insufficient funds is a definitive negative: it fails without retrying.
func (a *OPA) VerifyPayment(ctx context.Context, orderID string) error {
	order, err := a.store.Get(orderID)
	if err != nil {
		return err
	}
	provider, err := a.providers.Lookup(order.Chain)
	if err != nil {
		return err
	}

	exec := retry.New(retry.StagePaymentVerification, a.retryOpts...)
	err = exec.Execute(ctx, func(ctx context.Context) error {
		verified, err := provider.VerifyPayment(ctx, order.PayerAddress, order.ServiceCode)
		if err != nil {
			return err
		}
		if !verified {
			return models.NewPaymentError("insufficient balance for service %s on %s", order.ServiceCode, order.Chain)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.locks[orderID] = paymentRef{chain: order.Chain, address: order.PayerAddress}
	a.mu.Unlock()

	if _, _, err := a.UpdateStatus(orderID, models.StatePaymentVerified); err != nil {
		return err
	}
	a.log.Info("payment verified", zap.String("order_id", orderID))
	return nil
}

// UpdateStatus applies a lifecycle transition and signs a STATUS_UPDATE
// message announcing the new state.
func (a *OPA) UpdateStatus(orderID string, state models.OrderState) (*models.Order, *models.AgentMessage, error) {
	order, err := a.store.Transition(orderID, state)
	if err != nil {
		return nil, nil, err
	}

	update := models.NewAgentMessage(models.MessageStatusUpdate, orderID, string(state))
	if _, err := a.signer.Sign(security.AgentOPA, update); err != nil {
		return nil, nil, fmt.Errorf("failed to sign status update: %w", err)
	}
	return order, update, nil
}

// FailOrder forces an order to ERROR and attempts a best-effort refund when
// a payment was locked. An order resting in PARTIAL_COMPLETION is left
// alone: that state preserves resumability. Refund failures are logged, not
// returned, since the primary failure already dominates the outcome.
func (a *OPA) FailOrder(ctx context.Context, orderID string) {
	order, err := a.store.Get(orderID)
	if err != nil {
		a.log.Error("cannot fail unknown order", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	if order.State == models.StatePartialCompletion {
		a.log.Info("order kept in PARTIAL_COMPLETION for resume", zap.String("order_id", orderID))
		return
	}
	if order.State != models.StateError {
		if _, _, err := a.UpdateStatus(orderID, models.StateError); err != nil {
			a.log.Error("failed to mark order as errored", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	a.refund(ctx, orderID)
}

// refund reverses the order's payment lock if one was recorded.
func (a *OPA) refund(ctx context.Context, orderID string) {
	a.mu.Lock()
	ref, locked := a.locks[orderID]
	delete(a.locks, orderID)
	a.mu.Unlock()
	if !locked {
		return
	}

	provider, err := a.providers.Lookup(ref.chain)
	if err != nil {
		a.log.Error("refund failed", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	if err := provider.Refund(ctx, ref.address, orderID); err != nil {
		a.log.Error("refund failed", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	a.log.Info("payment refunded", zap.String("order_id", orderID))
}

// PaymentLocked reports whether a verified payment is recorded for orderID.
func (a *OPA) PaymentLocked(orderID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.locks[orderID]
	return ok
}

// GetOrder returns a snapshot of the order.
func (a *OPA) GetOrder(orderID string) (*models.Order, error) {
	return a.store.Get(orderID)
}

// StatusReport renders the order's full history in chronological order.
func (a *OPA) StatusReport(orderID string) (string, error) {
	return a.store.StatusReport(orderID)
}

// splitRequirement strips the optional trailing chain tag and the optional
// "#adtech #promotion" suffix from the requirement tail. A trailing hashtag
// selects a chain only when it names a registered provider; absent that,
// the default chain applies.
func (a *OPA) splitRequirement(tail string) (requirement, chain string) {
	tokens := strings.Fields(tail)
	chain = DefaultChain

	if len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		if tag, ok := strings.CutPrefix(last, "#"); ok {
			if _, err := a.providers.Lookup(tag); err == nil {
				chain = tag
				tokens = tokens[:len(tokens)-1]
			}
		}
	}
	if n := len(tokens); n >= 2 && tokens[n-2] == "#adtech" && tokens[n-1] == "#promotion" {
		tokens = tokens[:n-2]
	}
	return strings.Join(tokens, " "), chain
}

// extractAddress pulls the address token out of a command without requiring
// the full grammar to match, so rate limiting runs first.
func extractAddress(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) >= 2 && fields[0] == "#aiads" {
		return fields[1], true
	}
	return "", false
}
