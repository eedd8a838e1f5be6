package workers

import (
	"log"
	"time"

	"event-reward-system/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// ClaimReconciler sweeps claims stuck in PROCESSING. A claim gets stuck when
// the process dies between the PROCESSING checkpoint and the submitter's
// answer, so the submission outcome is genuinely unknown. The sweep marks
// such claims FAILED after a grace period; they stay queryable for manual
// retry. No hash lookup is possible because a hash only exists once the
// submitter returns.
type ClaimReconciler struct {
	DB         *gorm.DB
	StaleAfter time.Duration
}

func NewClaimReconciler(db *gorm.DB, staleAfter time.Duration) *ClaimReconciler {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &ClaimReconciler{DB: db, StaleAfter: staleAfter}
}

// SweepOnce fails every PROCESSING claim older than the threshold and returns
// how many rows it touched.
func (r *ClaimReconciler) SweepOnce() (int64, error) {
	cutoff := time.Now().Add(-r.StaleAfter)
	result := r.DB.Model(&models.Claim{}).
		Where("status = ? AND updated_at < ?", models.ClaimStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        models.ClaimStatusFailed,
			"error_message": "submission outcome unknown: claim was stuck in PROCESSING",
		})
	return result.RowsAffected, result.Error
}

// Start runs the sweep every minute until the scheduler is shut down.
func (r *ClaimReconciler) Start() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			swept, err := r.SweepOnce()
			if err != nil {
				log.Printf("[Reconciler] DB error: %v", err)
				return
			}
			if swept > 0 {
				log.Printf("⚠️ [Reconciler] Failed %d stale PROCESSING claim(s)", swept)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
