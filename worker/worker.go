package main

import (
	"os"
	"strconv"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"taap-agent-system/activities"
	"taap-agent-system/agents"
	"taap-agent-system/analytics"
	"taap-agent-system/orderstore"
	"taap-agent-system/payment"
	"taap-agent-system/security"
	"taap-agent-system/social"
	"taap-agent-system/storage"
	"taap-agent-system/workflows"
)

const (
	TaskQueueName = "taap-order-queue"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Get Temporal server address from environment or use default
	temporalAddress := os.Getenv("TEMPORAL_ADDRESS")
	if temporalAddress == "" {
		temporalAddress = "localhost:7233"
	}

	c, err := client.Dial(client.Options{HostPort: temporalAddress})
	if err != nil {
		logger.Fatal("Unable to create Temporal client", zap.Error(err))
	}
	defer c.Close()

	// Wire the pipeline: providers, store, agents, collaborators
	ethereum := payment.NewEthereumProvider(logger)
	solana := payment.NewSolanaProvider(logger)
	registry := payment.NewRegistry()
	registry.Register(ethereum)
	registry.Register(solana)

	seedBalances(logger, ethereum, solana)

	store := orderstore.NewStore()
	signer := security.NewSigner()
	limiter := security.NewRateLimiter(security.DefaultMaxRequests, security.DefaultWindow)

	opa := agents.NewOPA(store, registry, signer, limiter, logger)
	cpa := agents.NewCPA(opa, storage.NewIPFS(), social.NewTwitterAPI(), analytics.NewTracker(), signer, logger)

	w := worker.New(c, TaskQueueName, worker.Options{
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.OrderWorkflow)
	w.RegisterWorkflow(workflows.PaymentWorkflow)

	// Register activities
	orderAct := activities.NewOrderActivities(opa)
	w.RegisterActivity(orderAct.ParseOrderCommand)
	w.RegisterActivity(orderAct.OrderState)
	w.RegisterActivity(orderAct.StatusReport)
	w.RegisterActivity(orderAct.FailOrder)

	paymentAct := activities.NewPaymentActivities(opa)
	w.RegisterActivity(paymentAct.VerifyPayment)

	contentAct := activities.NewContentActivities(cpa)
	w.RegisterActivity(contentAct.GenerateContent)
	w.RegisterActivity(contentAct.ReviewContent)
	w.RegisterActivity(contentAct.PublishContent)

	logger.Info("Starting TAAP worker",
		zap.String("temporal_address", temporalAddress),
		zap.String("task_queue", TaskQueueName),
		zap.Strings("chains", registry.Chains()))

	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("Unable to start worker", zap.Error(err))
	}
}

// seedBalances funds a demo address from the environment so simulated
// payments can verify. SEED_ADDRESS selects the address, SEED_BALANCE the
// amount, SEED_CHAIN the chain (default ethereum).
func seedBalances(logger *zap.Logger, ethereum *payment.EthereumProvider, solana *payment.SolanaProvider) {
	address := os.Getenv("SEED_ADDRESS")
	if address == "" {
		return
	}
	amount := 1.0
	if raw := os.Getenv("SEED_BALANCE"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			logger.Fatal("Invalid SEED_BALANCE", zap.String("value", raw), zap.Error(err))
		}
		amount = parsed
	}

	var funder payment.Funder = ethereum
	if os.Getenv("SEED_CHAIN") == "solana" {
		funder = solana
	}
	if err := funder.Deposit(address, amount); err != nil {
		logger.Fatal("Failed to seed balance", zap.String("address", address), zap.Error(err))
	}
	logger.Info("Seeded balance",
		zap.String("address", address),
		zap.Float64("amount", amount))
}
