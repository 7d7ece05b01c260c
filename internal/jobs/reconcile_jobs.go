package jobs

import (
	"context"
	"time"

	"carthago-travel-backend/internal/domain"
	"carthago-travel-backend/internal/logger"
)

// ExpireStaleReservations cancels PENDING reservations whose dropoff date
// has passed without the deposit ever arriving, and releases their holds
func (jr *JobRunner) ExpireStaleReservations() {
	jr.runWithRecovery("ExpireStaleReservations", func() {
		ctx := context.Background()

		// Find reservations that were never paid and are past their dropoff date
		query := `
			SELECT id, matriculation_id
			FROM reservations
			WHERE status = 'PENDING'
			  AND dropoff_date < $1
		`

		rows, err := jr.db.QueryContext(ctx, query, domain.Today())
		if err != nil {
			logger.Error("Failed to find stale reservations", "error", err)
			return
		}
		defer rows.Close()

		var stale []struct {
			ID              int32
			MatriculationID int32
		}
		for rows.Next() {
			var r struct {
				ID              int32
				MatriculationID int32
			}
			if err := rows.Scan(&r.ID, &r.MatriculationID); err != nil {
				logger.Error("Failed to scan stale reservation", "error", err)
				continue
			}
			stale = append(stale, r)
		}
		if err := rows.Err(); err != nil {
			logger.Error("Error iterating stale reservations", "error", err)
			return
		}

		count := 0
		for _, r := range stale {
			done, err := jr.expireReservation(ctx, r.ID)
			if err != nil {
				logger.Error("Failed to cancel stale reservation",
					"reservation_id", r.ID, "error", err)
				continue
			}
			if !done {
				// Raced by a payment confirmation between the listing
				// and the conditional update.
				continue
			}
			logger.Debug("Cancelled stale reservation",
				"reservation_id", r.ID,
				"matriculation_id", r.MatriculationID)
			count++
		}

		logger.Info("Expired stale reservations", "count", count)
	})
}

// expireReservation flips one PENDING reservation to CANCELLED and drops
// its hold in the same transaction. On any failure the whole transition
// rolls back, so the row stays PENDING and the next sweep retries it
// instead of leaving a terminal reservation with a live hold.
func (jr *JobRunner) expireReservation(ctx context.Context, id int32) (bool, error) {
	tx, err := jr.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'CANCELLED',
		    updated_on = NOW()
		WHERE id = $1
		  AND status = 'PENDING'
	`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	// A cancelled reservation must not keep blocking its matriculation
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM unavailable_periods WHERE reservation_id = $1
	`, id); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// ActivateOngoingRentals marks matriculations as RENTED while a paid
// reservation covers today
func (jr *JobRunner) ActivateOngoingRentals() {
	jr.runWithRecovery("ActivateOngoingRentals", func() {
		ctx := context.Background()

		query := `
			UPDATE matriculations
			SET status = 'RENTED'
			WHERE status = 'AVAILABLE'
			  AND id IN (
				SELECT matriculation_id
				FROM reservations
				WHERE status IN ('PAID', 'CONFIRMED')
				  AND pickup_date <= $1
				  AND dropoff_date >= $1
			  )
			RETURNING id
		`

		rows, err := jr.db.QueryContext(ctx, query, domain.Today())
		if err != nil {
			logger.Error("Failed to activate ongoing rentals", "error", err)
			return
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			var id int32
			if err := rows.Scan(&id); err != nil {
				logger.Error("Failed to scan activated matriculation", "error", err)
				continue
			}
			logger.Debug("Marked matriculation as rented", "matriculation_id", id)
			count++
		}
		if err := rows.Err(); err != nil {
			logger.Error("Error iterating activated matriculations", "error", err)
			return
		}

		logger.Info("Activated ongoing rentals", "count", count)
	})
}

// CompleteFinishedRentals closes paid reservations past their dropoff date,
// releases their holds and returns idle matriculations to the fleet
func (jr *JobRunner) CompleteFinishedRentals() {
	jr.runWithRecovery("CompleteFinishedRentals", func() {
		ctx := context.Background()

		query := `
			SELECT id, matriculation_id
			FROM reservations
			WHERE status IN ('PAID', 'CONFIRMED')
			  AND dropoff_date < $1
		`

		today := domain.Today()
		rows, err := jr.db.QueryContext(ctx, query, today)
		if err != nil {
			logger.Error("Failed to find finished rentals", "error", err)
			return
		}
		defer rows.Close()

		var finished []struct {
			ID              int32
			MatriculationID int32
		}
		for rows.Next() {
			var r struct {
				ID              int32
				MatriculationID int32
			}
			if err := rows.Scan(&r.ID, &r.MatriculationID); err != nil {
				logger.Error("Failed to scan finished rental", "error", err)
				continue
			}
			finished = append(finished, r)
		}
		if err := rows.Err(); err != nil {
			logger.Error("Error iterating finished rentals", "error", err)
			return
		}

		count := 0
		for _, r := range finished {
			done, err := jr.completeReservation(ctx, r.ID, r.MatriculationID, today)
			if err != nil {
				logger.Error("Failed to complete finished rental",
					"reservation_id", r.ID, "error", err)
				continue
			}
			if !done {
				continue
			}
			logger.Debug("Completed rental",
				"reservation_id", r.ID,
				"matriculation_id", r.MatriculationID)
			count++
		}

		logger.Info("Completed finished rentals", "count", count)
	})
}

// completeReservation closes one paid reservation, drops its hold and
// conditionally returns the matriculation, all in one transaction. A
// failure rolls the whole transition back and the next sweep retries.
func (jr *JobRunner) completeReservation(ctx context.Context, id, matriculationID int32, today time.Time) (bool, error) {
	tx, err := jr.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'COMPLETED',
		    updated_on = NOW()
		WHERE id = $1
		  AND status IN ('PAID', 'CONFIRMED')
	`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM unavailable_periods WHERE reservation_id = $1
	`, id); err != nil {
		return false, err
	}

	// Return the unit only when no other paid reservation covers today.
	// Units in MAINTENANCE stay put.
	if _, err := tx.ExecContext(ctx, `
		UPDATE matriculations
		SET status = 'AVAILABLE'
		WHERE id = $1
		  AND status = 'RENTED'
		  AND NOT EXISTS (
			SELECT 1 FROM reservations
			WHERE matriculation_id = $1
			  AND status IN ('PAID', 'CONFIRMED')
			  AND pickup_date <= $2
			  AND dropoff_date >= $2
		  )
	`, matriculationID, today); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// RejectExpiredProlongations rejects extension requests whose requested
// dropoff date has passed while still awaiting approval, and tells the
// renter by email on a best-effort basis
func (jr *JobRunner) RejectExpiredProlongations() {
	jr.runWithRecovery("RejectExpiredProlongations", func() {
		ctx := context.Background()

		query := `
			UPDATE prolongation_requests
			SET status = 'REJECTED',
			    updated_on = NOW()
			WHERE status = 'PENDING'
			  AND new_dropoff_date < $1
			RETURNING id, reservation_id
		`

		rows, err := jr.db.QueryContext(ctx, query, domain.Today())
		if err != nil {
			logger.Error("Failed to reject expired prolongations", "error", err)
			return
		}
		defer rows.Close()

		var rejected []struct {
			ID            int32
			ReservationID int32
		}
		for rows.Next() {
			var r struct {
				ID            int32
				ReservationID int32
			}
			if err := rows.Scan(&r.ID, &r.ReservationID); err != nil {
				logger.Error("Failed to scan rejected prolongation", "error", err)
				continue
			}
			rejected = append(rejected, r)
		}
		if err := rows.Err(); err != nil {
			logger.Error("Error iterating rejected prolongations", "error", err)
			return
		}

		for _, r := range rejected {
			res, err := jr.store.ReservationRepository.GetByID(ctx, r.ReservationID)
			if err != nil {
				logger.Error("Failed to load reservation for rejection notice",
					"reservation_id", r.ReservationID, "error", err)
				continue
			}
			renter, err := jr.store.RenterRepository.GetByID(ctx, res.RenterID)
			if err != nil {
				logger.Error("Failed to load renter for rejection notice",
					"renter_id", res.RenterID, "error", err)
				continue
			}
			if err := jr.services.Email.SendProlongationRejection(ctx, renter.Email, renter.FirstName, res.ID); err != nil {
				logger.Warn("Failed to send prolongation rejection notice",
					"prolongation_id", r.ID, "error", err)
			}
		}

		logger.Info("Rejected expired prolongations", "count", len(rejected))
	})
}
