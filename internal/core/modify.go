package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// ModifyPurchase applies a dashboard form submission to the ledger. A "save"
// action records (or overwrites) the purchase's amendment; an "undo" action
// removes it, restoring the original values. The base purchase row is never
// touched.
//
// The form must contain exactly the keys id, merchant, amount and action.
// Any validation failure returns ErrMalformedForm; a missing purchase
// surfaces the store's not-found error unchanged so callers can map it to a
// 404.
func ModifyPurchase(ctx context.Context, ledger Ledger, logger *slog.Logger, form map[string]string) error {
	for k := range form {
		switch k {
		case "id", "merchant", "amount", "action":
		default:
			logger.ErrorContext(ctx, "unrecognized property in submitted form", "property", k)
			return fmt.Errorf("%w: unknown field %q", ErrMalformedForm, k)
		}
	}

	action := form["action"]
	if action != "save" && action != "undo" {
		logger.ErrorContext(ctx, "invalid form action", "action", action)
		return fmt.Errorf("%w: action %q", ErrMalformedForm, action)
	}

	id, err := strconv.ParseInt(form["id"], 10, 64)
	if err != nil {
		logger.ErrorContext(ctx, "could not parse form id", "id", form["id"])
		return fmt.Errorf("%w: id %q", ErrMalformedForm, form["id"])
	}

	// An empty merchant is allowed; some alerts carry none.
	merchant := form["merchant"]

	amountInCents, err := DollarStringToCents("$" + form["amount"])
	if err != nil {
		logger.ErrorContext(ctx, "could not parse form amount", "amount", form["amount"])
		return fmt.Errorf("%w: amount %q", ErrMalformedForm, form["amount"])
	}

	// Both actions require the purchase to exist; neither silently no-ops
	// on an unknown id.
	if _, err := ledger.LookupPurchase(ctx, id); err != nil {
		return err
	}

	if action == "undo" {
		return ledger.UndoAmendment(ctx, id)
	}
	return ledger.AmendPurchase(ctx, id, amountInCents, merchant)
}
