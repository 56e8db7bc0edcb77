package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

const processedKeyPrefix = "processed:"

// DedupUsecase drops redelivered events and double clicks
type DedupUsecase struct {
	ledger repo.LedgerRepo
	window time.Duration
	now    func() time.Time
}

// NewDedupUsecase creates a new dedup usecase
func NewDedupUsecase(ledger repo.LedgerRepo, window time.Duration) *DedupUsecase {
	if window <= 0 {
		window = domain.DedupWindow
	}
	return &DedupUsecase{
		ledger: ledger,
		window: window,
		now:    time.Now,
	}
}

// CheckEvent reports whether an inbound message should be processed
func (uc *DedupUsecase) CheckEvent(ctx context.Context, env *domain.Envelope) bool {
	return uc.check(ctx, domain.EventSignature(env.EventID, env.MessageTS, env.Text))
}

// CheckAction reports whether a button click should be applied
func (uc *DedupUsecase) CheckAction(ctx context.Context, act *domain.ActionEnvelope) bool {
	return uc.check(ctx, domain.ActionSignature(act.MessageTS, act.Value))
}

// check is read-then-write without compare-and-set; two deliveries racing
// inside the same instant may both pass.
func (uc *DedupUsecase) check(ctx context.Context, signature string) bool {
	key := processedKeyPrefix + signature

	_, found, err := uc.ledger.Get(ctx, key)
	if err != nil {
		// Fail open: a broken ledger must not drop user requests
		fmt.Printf("[Guard] Ledger read failed, processing anyway: %v\n", err)
		return true
	}
	if found {
		fmt.Printf("[Guard] Duplicate ignored: %s\n", truncate(signature, 60))
		return false
	}

	record := domain.ProcessedEventRecord{
		ID:              uuid.NewString(),
		Signature:       signature,
		TimestampMillis: uc.now().UnixMilli(),
	}
	value, err := json.Marshal(record)
	if err == nil {
		err = uc.ledger.Set(ctx, key, value, uc.window)
	}
	if err != nil {
		fmt.Printf("[Guard] Ledger write failed: %v\n", err)
	}
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
