// Package banks extracts purchase facts from the transaction-alert emails
// of known banks. The heuristics are deliberately dumb label-line matching;
// the core only ever sees the parsed result.
package banks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eanyanwu/whotookmy.money/internal/core"
)

const (
	SchwabAlertEmail = "donotreply-comm@schwab.com"
	ChaseAlertEmail  = "no.reply.alerts@chase.com"
)

var ErrUnrecognizedBank = errors.New("unrecognized bank")

// Parser implements core.AlertParser for the banks we know how to read.
type Parser struct{}

func (Parser) ParseAlert(email core.InboundEmail) (core.PurchaseAlert, error) {
	if email.Body == "" {
		return core.PurchaseAlert{}, core.ErrInboundEmail
	}

	lines := strings.Split(strings.ReplaceAll(email.Body, "\r\n", "\n"), "\n")

	var merchant, amountStr string
	switch email.From {
	case ChaseAlertEmail:
		// Chase credit alerts label the counterparty "Merchant"; debit
		// alerts use "Description". The value sits on the next line.
		merchantIdx := indexOf(lines, "Merchant")
		if merchantIdx == -1 {
			merchantIdx = indexOf(lines, "Description")
		}
		amountIdx := indexOf(lines, "Amount")
		if merchantIdx == -1 || amountIdx == -1 ||
			merchantIdx+1 >= len(lines) || amountIdx+1 >= len(lines) {
			return core.PurchaseAlert{}, core.ErrInboundEmail
		}
		merchant = lines[merchantIdx+1]
		amountStr = lines[amountIdx+1]
	case SchwabAlertEmail:
		// Schwab puts the merchant right below its "Amount" label, and
		// the amount below that.
		amountIdx := indexOf(lines, "Amount")
		if amountIdx == -1 || amountIdx+2 >= len(lines) {
			return core.PurchaseAlert{}, core.ErrInboundEmail
		}
		merchant = lines[amountIdx+1]
		amountStr = lines[amountIdx+2]
	default:
		return core.PurchaseAlert{}, fmt.Errorf("%w: %s", ErrUnrecognizedBank, email.From)
	}

	amountInCents, err := core.DollarStringToCents(strings.TrimSpace(amountStr))
	if err != nil {
		return core.PurchaseAlert{}, err
	}

	return core.PurchaseAlert{
		// Alerts are forwarded by the user, so To is the user's address.
		UserEmail:     email.To,
		AmountInCents: amountInCents,
		Merchant:      strings.TrimSpace(merchant),
		Timestamp:     email.Timestamp,
		TzOffset:      email.TzOffset,
	}, nil
}

func indexOf(lines []string, label string) int {
	for i, l := range lines {
		if strings.TrimSpace(l) == label {
			return i
		}
	}
	return -1
}
