// Package report builds display-ready views over the purchase ledger.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/eanyanwu/whotookmy.money/internal/core"
)

// PurchaseSource is the slice of the store the aggregator reads. Purchases
// come back through the amendment overlay, ascending by timestamp, with
// [from, to) bounds in unix seconds.
type PurchaseSource interface {
	PurchasesInRange(ctx context.Context, userID, from, to int64) ([]core.Purchase, error)
}

// DailySpend is one local-calendar-day bucket of the timeseries.
type DailySpend struct {
	Date         time.Time
	SpendInCents int64
	Purchases    []core.Purchase
}

// Aggregator turns a user's purchase history into a dense per-day spend
// timeseries in the user's own calendar.
type Aggregator struct {
	src PurchaseSource

	// now is the aggregator's clock; tests pin it to exercise bucket
	// boundaries.
	now func() time.Time
}

func NewAggregator(src PurchaseSource) *Aggregator {
	return &Aggregator{src: src, now: time.Now}
}

// DailySpend returns one bucket per local calendar day from the start of
// the day periodDays ago up to now, chronological and contiguous. Days with
// no purchases appear with zero spend. Today is included as a partial
// bucket, so the series has periodDays+1 entries.
//
// Bucket boundaries are computed in the user's fixed UTC offset; purchase
// membership is decided on raw unix timestamps, which are the same in every
// zone.
func (a *Aggregator) DailySpend(ctx context.Context, user core.User, periodDays int) ([]DailySpend, error) {
	if periodDays < 0 {
		return nil, fmt.Errorf("invalid period %d: must be >= 0", periodDays)
	}

	zone := time.FixedZone("user", user.TzOffset)
	now := a.now().In(zone)
	periodStart := startOfDay(now.AddDate(0, 0, -periodDays))

	var series []DailySpend
	for t := periodStart.Unix(); t < now.Unix(); t += 86400 {
		series = append(series, DailySpend{
			Date:      time.Unix(t, 0).In(zone),
			Purchases: []core.Purchase{},
		})
	}

	purchases, err := a.src.PurchasesInRange(ctx, user.UserID, periodStart.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("fetch purchases: %w", err)
	}

	// Both lists are chronological: walk them once, consuming purchases
	// into the current bucket until one no longer fits.
	bi, pi := 0, 0
	for bi < len(series) && pi < len(purchases) {
		bucketStart := series[bi].Date.Unix()
		bucketEnd := bucketStart + 86400
		p := purchases[pi]

		if p.Timestamp >= bucketStart && p.Timestamp < bucketEnd {
			series[bi].Purchases = append(series[bi].Purchases, p)
			series[bi].SpendInCents += p.AmountInCents
			pi++
		} else {
			bi++
		}
	}

	return series, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
