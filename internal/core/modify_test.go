package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errFakeNotFound = errors.New("not found")

// fakeLedger records the calls the core operations make against it.
type fakeLedger struct {
	users     map[string]User
	purchases map[int64]Purchase
	emails    []OutboundEmail

	amended       map[int64]Purchase
	undone        []int64
	tzOffsets     map[int64]int
	queueEmailErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		users:     map[string]User{},
		purchases: map[int64]Purchase{},
		amended:   map[int64]Purchase{},
		tzOffsets: map[int64]int{},
	}
}

func (f *fakeLedger) GetOrCreateUser(_ context.Context, email string) (User, bool, error) {
	if u, ok := f.users[email]; ok {
		return u, false, nil
	}
	u := User{UserID: int64(len(f.users) + 1), UserEmail: email}
	f.users[email] = u
	return u, true, nil
}

func (f *fakeLedger) SetTzOffset(_ context.Context, userID int64, tzOffset int) error {
	f.tzOffsets[userID] = tzOffset
	return nil
}

func (f *fakeLedger) SavePurchase(_ context.Context, user User, amountInCents int64, merchant string, timestamp int64) (Purchase, error) {
	p := Purchase{
		PurchaseID:    int64(len(f.purchases) + 1),
		UserID:        user.UserID,
		AmountInCents: amountInCents,
		Merchant:      merchant,
		Timestamp:     timestamp,
	}
	f.purchases[p.PurchaseID] = p
	return p, nil
}

func (f *fakeLedger) LookupPurchase(_ context.Context, id int64) (Purchase, error) {
	if p, ok := f.amended[id]; ok {
		return p, nil
	}
	if p, ok := f.purchases[id]; ok {
		return p, nil
	}
	return Purchase{}, errFakeNotFound
}

func (f *fakeLedger) AmendPurchase(_ context.Context, purchaseID, newAmountInCents int64, newMerchant string) error {
	p, ok := f.purchases[purchaseID]
	if !ok {
		return errFakeNotFound
	}
	p.AmountInCents = newAmountInCents
	p.Merchant = newMerchant
	p.IsAmended = true
	f.amended[purchaseID] = p
	return nil
}

func (f *fakeLedger) UndoAmendment(_ context.Context, purchaseID int64) error {
	if _, ok := f.purchases[purchaseID]; !ok {
		return errFakeNotFound
	}
	delete(f.amended, purchaseID)
	f.undone = append(f.undone, purchaseID)
	return nil
}

func (f *fakeLedger) QueueEmail(_ context.Context, sender, to, subject, body, bodyHTML string) (OutboundEmail, error) {
	if f.queueEmailErr != nil {
		return OutboundEmail{}, f.queueEmailErr
	}
	e := OutboundEmail{
		OutboundEmailID: int64(len(f.emails) + 1),
		Sender:          sender,
		Subject:         subject,
		Body:            body,
		BodyHTML:        bodyHTML,
	}
	f.emails = append(f.emails, e)
	return e, nil
}

func TestModifyPurchaseSave(t *testing.T) {
	ledger := newFakeLedger()
	ctx := context.Background()

	u, _, _ := ledger.GetOrCreateUser(ctx, "person@example.com")
	p, _ := ledger.SavePurchase(ctx, u, 1250, "CORNER STORE", 1700000000)

	err := ModifyPurchase(ctx, ledger, testLogger(), map[string]string{
		"id":       "1",
		"merchant": "CORNER MARKET",
		"amount":   "13.00",
		"action":   "save",
	})
	if err != nil {
		t.Fatalf("ModifyPurchase: %v", err)
	}

	got := ledger.amended[p.PurchaseID]
	if got.AmountInCents != 1300 || got.Merchant != "CORNER MARKET" {
		t.Errorf("amended purchase = %+v", got)
	}
}

func TestModifyPurchaseUndo(t *testing.T) {
	ledger := newFakeLedger()
	ctx := context.Background()

	u, _, _ := ledger.GetOrCreateUser(ctx, "person@example.com")
	p, _ := ledger.SavePurchase(ctx, u, 1250, "CORNER STORE", 1700000000)
	if err := ledger.AmendPurchase(ctx, p.PurchaseID, 1300, "CORNER MARKET"); err != nil {
		t.Fatal(err)
	}

	err := ModifyPurchase(ctx, ledger, testLogger(), map[string]string{
		"id":       "1",
		"merchant": "CORNER MARKET",
		"amount":   "13.00",
		"action":   "undo",
	})
	if err != nil {
		t.Fatalf("ModifyPurchase: %v", err)
	}
	if len(ledger.undone) != 1 || ledger.undone[0] != p.PurchaseID {
		t.Errorf("undone = %v, want [%d]", ledger.undone, p.PurchaseID)
	}
}

func TestModifyPurchaseMalformed(t *testing.T) {
	ledger := newFakeLedger()
	ctx := context.Background()

	u, _, _ := ledger.GetOrCreateUser(ctx, "person@example.com")
	if _, err := ledger.SavePurchase(ctx, u, 1250, "CORNER STORE", 1700000000); err != nil {
		t.Fatal(err)
	}

	valid := map[string]string{
		"id":       "1",
		"merchant": "SHOP",
		"amount":   "13.00",
		"action":   "save",
	}

	tests := []struct {
		name   string
		mutate func(form map[string]string)
	}{
		{"unknown field", func(f map[string]string) { f["extra"] = "x" }},
		{"bad action", func(f map[string]string) { f["action"] = "delete" }},
		{"missing action", func(f map[string]string) { delete(f, "action") }},
		{"non-numeric id", func(f map[string]string) { f["id"] = "abc" }},
		{"bad amount", func(f map[string]string) { f["amount"] = "13.0" }},
		{"dollar sign in amount", func(f map[string]string) { f["amount"] = "$13.00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := map[string]string{}
			for k, v := range valid {
				form[k] = v
			}
			tt.mutate(form)

			err := ModifyPurchase(ctx, ledger, testLogger(), form)
			if !errors.Is(err, ErrMalformedForm) {
				t.Errorf("error = %v, want ErrMalformedForm", err)
			}
		})
	}

	if len(ledger.amended) != 0 {
		t.Error("malformed forms must not reach the ledger")
	}
}

func TestModifyPurchaseUnknownID(t *testing.T) {
	ledger := newFakeLedger()

	err := ModifyPurchase(context.Background(), ledger, testLogger(), map[string]string{
		"id":       "99",
		"merchant": "SHOP",
		"amount":   "13.00",
		"action":   "save",
	})
	if !errors.Is(err, errFakeNotFound) {
		t.Errorf("error = %v, want the store's not-found error unwrapped", err)
	}
}

func TestModifyPurchaseEmptyMerchant(t *testing.T) {
	ledger := newFakeLedger()
	ctx := context.Background()

	u, _, _ := ledger.GetOrCreateUser(ctx, "person@example.com")
	p, _ := ledger.SavePurchase(ctx, u, 1250, "CORNER STORE", 1700000000)

	err := ModifyPurchase(ctx, ledger, testLogger(), map[string]string{
		"id":       "1",
		"merchant": "",
		"amount":   "12.50",
		"action":   "save",
	})
	if err != nil {
		t.Fatalf("ModifyPurchase: %v", err)
	}
	if got := ledger.amended[p.PurchaseID]; got.Merchant != "" {
		t.Errorf("Merchant = %q, want empty", got.Merchant)
	}
}
