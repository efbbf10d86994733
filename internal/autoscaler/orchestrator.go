package autoscaler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/provisioner"
	"github.com/dominik-hvln/hv-hosting-platform/internal/wallet"
	"gorm.io/gorm"
)

var (
	// ErrNoScalingNeeded means both deltas clamped to zero against the
	// current plan ceilings; nothing was changed anywhere.
	ErrNoScalingNeeded = errors.New("no further scaling possible")
	// ErrProvisioningFailed means the panel call failed; nothing was
	// persisted and nothing was charged.
	ErrProvisioningFailed = errors.New("provisioning call failed")
	// ErrPersistFailed means the panel applied the new limits but the local
	// record could not be updated. External and internal state now disagree;
	// this must be surfaced loudly, automated logic cannot self-heal it.
	ErrPersistFailed = errors.New("failed to persist scaling result")
	// ErrAccountBusy means another scaling operation holds the account lock.
	ErrAccountBusy = errors.New("another scaling operation is in progress for this account")
	// ErrAccountNotScalable means the account has no external id or is not
	// active.
	ErrAccountNotScalable = errors.New("account cannot be scaled")
)

// UsageProvider reads a usage snapshot for an account from the resource
// manager panel.
type UsageProvider interface {
	GetUsage(ctx context.Context, externalID string) (provisioner.Usage, error)
}

// ProvisioningGateway applies resource ceilings on the resource manager
// panel.
type ProvisioningGateway interface {
	SetLimits(ctx context.Context, externalID string, ramMB, cpuPercent int) error
}

// SecondaryBilling is the fallback charge path and the allocation mirror on
// the upstream billing panel.
type SecondaryBilling interface {
	AddCharge(ctx context.Context, externalAccountID string, amount float64, description string) (string, error)
	SyncResources(ctx context.Context, externalServiceID string, ramMB, cpuPercent int) error
}

// AccountLocker serializes scaling operations per account across instances.
type AccountLocker interface {
	TryLock(ctx context.Context, accountID uint, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, accountID uint) error
}

// Event is emitted after every applied scaling operation
type Event struct {
	Account models.HostingAccount
	Log     models.ScalingLog
}

// Notifier receives scaling events, fire-and-forget
type Notifier func(Event)

// SweepDetail describes what happened to one account during a sweep
type SweepDetail struct {
	AccountID       uint    `json:"account_id"`
	RAMUsagePercent float64 `json:"ram_usage_percent"`
	CPUUsagePercent float64 `json:"cpu_usage_percent"`
	DeltaRAM        int     `json:"delta_ram"`
	DeltaCPU        int     `json:"delta_cpu"`
	Scaled          bool    `json:"scaled"`
	Skipped         bool    `json:"skipped"`
	Cost            float64 `json:"cost"`
	LogID           uint    `json:"log_id,omitempty"`
	Message         string  `json:"message,omitempty"`
}

// SweepResult summarizes one sweep invocation. In a dry run AccountsScaled
// counts accounts that would have been scaled.
type SweepResult struct {
	AccountsChecked int           `json:"accounts_checked"`
	AccountsScaled  int           `json:"accounts_scaled"`
	DryRun          bool          `json:"dry_run"`
	Details         []SweepDetail `json:"details"`
}

// ScalingOutcome is the structured result of a single ScaleOne call
type ScalingOutcome struct {
	Success       bool                 `json:"success"`
	LogID         uint                 `json:"log_id,omitempty"`
	Cost          float64              `json:"cost"`
	NewRAM        int                  `json:"new_ram"`
	NewCPU        int                  `json:"new_cpu"`
	PaymentStatus models.PaymentStatus `json:"payment_status,omitempty"`
	Message       string               `json:"message"`
}

// Orchestrator drives the apply-charge-record sequence for hosting accounts.
// It is stateless between invocations; all state lives in the database and
// on the external panels.
type Orchestrator struct {
	db      *gorm.DB
	ledger  *wallet.Ledger
	usage   UsageProvider
	gateway ProvisioningGateway
	billing SecondaryBilling // nil when no upstream billing panel is configured
	locker  AccountLocker

	notifiers []Notifier

	callTimeout time.Duration
	lockTTL     time.Duration
}

// NewOrchestrator wires the orchestrator. billing may be nil; the wallet is
// then the only payment path.
func NewOrchestrator(db *gorm.DB, ledger *wallet.Ledger, usage UsageProvider, gateway ProvisioningGateway, billing SecondaryBilling, locker AccountLocker) *Orchestrator {
	return &Orchestrator{
		db:          db,
		ledger:      ledger,
		usage:       usage,
		gateway:     gateway,
		billing:     billing,
		locker:      locker,
		callTimeout: 30 * time.Second,
		lockTTL:     2 * time.Minute,
	}
}

// Subscribe registers a notifier for scaling events
func (o *Orchestrator) Subscribe(n Notifier) {
	o.notifiers = append(o.notifiers, n)
}

// SweepAll processes every eligible account once: active, not suspended,
// autoscaling enabled at both account and purchase level, provisioned, with
// a plan attached. One account's failure never aborts the sweep. The sweep
// honors ctx between accounts but an in-progress ScaleOne always runs to
// completion.
func (o *Orchestrator) SweepAll(ctx context.Context, policy Policy, dryRun bool) (*SweepResult, error) {
	result := &SweepResult{DryRun: dryRun}

	if !policy.Enabled {
		log.Println("Autoscaler: disabled by policy, skipping sweep")
		return result, nil
	}

	var accounts []models.HostingAccount
	err := o.db.
		Joins("JOIN purchases ON purchases.id = hosting_accounts.purchase_id").
		// Soft-delete scoping only covers the primary model, not joins
		Where("purchases.deleted_at IS NULL").
		Where("hosting_accounts.status = ?", models.AccountStatusActive).
		Where("hosting_accounts.autoscaling_enabled = ?", true).
		Where("hosting_accounts.external_id <> ''").
		Where("purchases.autoscaling_enabled = ?", true).
		Where("purchases.status = ?", models.PurchaseStatusActive).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("select eligible accounts: %w", err)
	}

	for i := range accounts {
		if ctx.Err() != nil {
			log.Printf("Autoscaler: sweep cancelled after %d accounts", result.AccountsChecked)
			return result, ctx.Err()
		}

		account := &accounts[i]
		result.AccountsChecked++

		detail := o.sweepOne(ctx, account, policy, dryRun)
		if detail.Scaled {
			result.AccountsScaled++
		}
		result.Details = append(result.Details, detail)
	}

	log.Printf("Autoscaler: sweep complete - checked %d, scaled %d (dry_run=%v)",
		result.AccountsChecked, result.AccountsScaled, dryRun)
	return result, nil
}

func (o *Orchestrator) sweepOne(ctx context.Context, account *models.HostingAccount, policy Policy, dryRun bool) SweepDetail {
	detail := SweepDetail{AccountID: account.ID}

	var plan models.HostingPlan
	if err := o.db.First(&plan, account.PlanID).Error; err != nil {
		log.Printf("Autoscaler: account %d has no plan %d, skipping", account.ID, account.PlanID)
		detail.Skipped = true
		detail.Message = "plan not found"
		return detail
	}

	usageCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	usage, err := o.usage.GetUsage(usageCtx, account.ExternalID)
	cancel()
	if err != nil {
		// Usage being unavailable for one account is not fatal to the sweep
		log.Printf("Autoscaler: usage unavailable for account %d: %v", account.ID, err)
		detail.Skipped = true
		detail.Message = "usage unavailable"
		return detail
	}

	rec, err := Evaluate(account, usage, &plan, policy)
	if err != nil {
		log.Printf("Autoscaler: evaluation failed for account %d: %v", account.ID, err)
		detail.Skipped = true
		detail.Message = err.Error()
		return detail
	}

	detail.RAMUsagePercent = rec.RAMUsagePercent
	detail.CPUUsagePercent = rec.CPUUsagePercent
	detail.DeltaRAM = rec.DeltaRAM
	detail.DeltaCPU = rec.DeltaCPU

	if !rec.NeedsScaling {
		return detail
	}

	if dryRun {
		detail.Scaled = true
		detail.Cost = Cost(rec.DeltaRAM, rec.DeltaCPU, policy)
		detail.Message = "dry run - not applied"
		return detail
	}

	outcome, err := o.ScaleOne(account.ID, rec.DeltaRAM, rec.DeltaCPU, models.ScalingReasonAutoscaling, policy)
	if err != nil {
		log.Printf("Autoscaler: scaling account %d failed: %v", account.ID, err)
		detail.Message = err.Error()
		return detail
	}

	detail.Scaled = outcome.Success
	detail.Cost = outcome.Cost
	detail.LogID = outcome.LogID
	detail.Message = outcome.Message
	return detail
}

// ScaleOne executes the apply-charge-record sequence for one account as a
// logical unit under the per-account lock. External calls run on their own
// timeout contexts derived from Background: once provisioning starts the
// operation runs to completion or clean failure even if the surrounding
// sweep is cancelled.
func (o *Orchestrator) ScaleOne(accountID uint, deltaRAM, deltaCPU int, reason models.ScalingReason, policy Policy) (*ScalingOutcome, error) {
	lockCtx, cancel := context.WithTimeout(context.Background(), o.callTimeout)
	defer cancel()

	ok, err := o.locker.TryLock(lockCtx, accountID, o.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccountBusy
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), o.callTimeout)
		defer cancel()
		if err := o.locker.Unlock(unlockCtx, accountID); err != nil {
			log.Printf("Autoscaler: failed to release lock for account %d: %v", accountID, err)
		}
	}()

	// Reload under the lock; the recommendation may be stale
	var account models.HostingAccount
	if err := o.db.First(&account, accountID).Error; err != nil {
		return nil, fmt.Errorf("load account %d: %w", accountID, err)
	}
	if account.ExternalID == "" || account.Status != models.AccountStatusActive {
		return nil, fmt.Errorf("%w: account %d", ErrAccountNotScalable, accountID)
	}

	var plan models.HostingPlan
	if err := o.db.First(&plan, account.PlanID).Error; err != nil {
		return nil, fmt.Errorf("load plan %d: %w", account.PlanID, err)
	}

	// Step 1: re-clamp against current ceilings
	deltaRAM = clampDelta(account.CurrentRAM, deltaRAM, plan.MaxRAM)
	deltaCPU = clampDelta(account.CurrentCPU, deltaCPU, plan.MaxCPU)
	if deltaRAM <= 0 && deltaCPU <= 0 {
		return &ScalingOutcome{
			Success: false,
			NewRAM:  account.CurrentRAM,
			NewCPU:  account.CurrentCPU,
			Message: "no further scaling possible",
		}, ErrNoScalingNeeded
	}

	newRAM := account.CurrentRAM + deltaRAM
	newCPU := account.CurrentCPU + deltaCPU

	// Step 2: price the delta
	cost := Cost(deltaRAM, deltaCPU, policy)

	// Step 3: apply the new ceiling on the panel. Failure means full abort:
	// nothing persisted, nothing charged.
	provCtx, cancelProv := context.WithTimeout(context.Background(), o.callTimeout)
	err = o.gateway.SetLimits(provCtx, account.ExternalID, newRAM, newCPU)
	cancelProv()
	if err != nil {
		return nil, fmt.Errorf("%w: account %d: %v", ErrProvisioningFailed, account.ID, err)
	}

	// Step 4: persist the new allocation together with the audit row
	scalingLog := models.ScalingLog{
		AccountID:     account.ID,
		PurchaseID:    account.PurchaseID,
		PreviousRAM:   account.CurrentRAM,
		NewRAM:        newRAM,
		DeltaRAM:      deltaRAM,
		PreviousCPU:   account.CurrentCPU,
		NewCPU:        newCPU,
		DeltaCPU:      deltaCPU,
		Reason:        reason,
		Cost:          cost,
		PaymentStatus: models.PaymentStatusPending,
	}

	err = o.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.HostingAccount{}).Where("id = ?", account.ID).
			Updates(map[string]interface{}{
				"current_ram": newRAM,
				"current_cpu": newCPU,
			}).Error; err != nil {
			return err
		}
		return tx.Create(&scalingLog).Error
	})
	if err != nil {
		// The panel already applied the new limits. External and internal
		// state now disagree; operators must reconcile by hand.
		log.Printf("CRITICAL: account %d scaled on panel to ram=%d cpu=%d but persistence failed: %v",
			account.ID, newRAM, newCPU, err)
		return nil, fmt.Errorf("%w: account %d: %v", ErrPersistFailed, account.ID, err)
	}

	account.CurrentRAM = newRAM
	account.CurrentCPU = newCPU

	// Steps 5-6: charge and sync. Resources are never rolled back on payment
	// failure; a pending log is the reconciliation queue.
	o.settlePayment(&account, &scalingLog, cost, deltaRAM, deltaCPU)
	o.syncResources(&account)

	// Step 7: notify observers
	for _, n := range o.notifiers {
		n(Event{Account: account, Log: scalingLog})
	}

	return &ScalingOutcome{
		Success:       true,
		LogID:         scalingLog.ID,
		Cost:          cost,
		NewRAM:        newRAM,
		NewCPU:        newCPU,
		PaymentStatus: scalingLog.PaymentStatus,
		Message:       fmt.Sprintf("scaled to ram=%dMB cpu=%d%%", newRAM, newCPU),
	}, nil
}

// settlePayment tries the wallet first, then the upstream billing panel.
// When both fail the log stays pending for out-of-band reconciliation.
func (o *Orchestrator) settlePayment(account *models.HostingAccount, scalingLog *models.ScalingLog, cost float64, deltaRAM, deltaCPU int) {
	if cost <= 0 {
		scalingLog.MarkPaid("zero-cost")
		o.persistPayment(scalingLog)
		return
	}

	description := fmt.Sprintf("Autoscaling account %d: +%dMB RAM, +%d%% CPU", account.ID, deltaRAM, deltaCPU)

	entry, err := o.ledger.Debit(account.UserID, cost, models.WalletSourceScaling,
		fmt.Sprintf("scaling-%d", scalingLog.ID), description)
	if err == nil {
		scalingLog.MarkPaid(entry.Reference)
		o.persistPayment(scalingLog)
		return
	}
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		log.Printf("Autoscaler: wallet debit failed for account %d: %v", account.ID, err)
	}

	if o.billing != nil && account.ExternalBillingID != "" {
		chargeCtx, cancel := context.WithTimeout(context.Background(), o.callTimeout)
		invoiceRef, err := o.billing.AddCharge(chargeCtx, account.ExternalBillingID, cost, description)
		cancel()
		if err == nil {
			scalingLog.MarkPaid(invoiceRef)
			o.persistPayment(scalingLog)
			return
		}
		log.Printf("Autoscaler: billing panel charge failed for account %d: %v", account.ID, err)
	}

	log.Printf("Autoscaler: no payment path succeeded for account %d, log %d left pending",
		account.ID, scalingLog.ID)
}

func (o *Orchestrator) persistPayment(scalingLog *models.ScalingLog) {
	err := o.db.Model(&models.ScalingLog{}).Where("id = ?", scalingLog.ID).
		Updates(map[string]interface{}{
			"payment_status":    scalingLog.PaymentStatus,
			"payment_reference": scalingLog.PaymentReference,
		}).Error
	if err != nil {
		log.Printf("Autoscaler: failed to persist payment status for log %d: %v", scalingLog.ID, err)
	}
}

// syncResources mirrors the new allocation onto the upstream billing panel.
// Best-effort only.
func (o *Orchestrator) syncResources(account *models.HostingAccount) {
	if o.billing == nil || account.ExternalBillingID == "" {
		return
	}
	syncCtx, cancel := context.WithTimeout(context.Background(), o.callTimeout)
	defer cancel()
	if err := o.billing.SyncResources(syncCtx, account.ExternalBillingID, account.CurrentRAM, account.CurrentCPU); err != nil {
		log.Printf("Autoscaler: resource sync to billing panel failed for account %d: %v", account.ID, err)
	}
}
