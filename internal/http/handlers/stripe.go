package handlers

import (
	"errors"
	"io"
	"net/http"

	"oracle/internal/domain"
)

// maxWebhookBody caps webhook payload reads, per Stripe's recommendation.
const maxWebhookBody = int64(65536)

type webhookAck struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// StripeWebhook verifies and applies a payment event. Signature failures
// return 400 so the processor retries; any other failure is acknowledged
// with 200 and the error embedded, because retrying cannot fix it.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		msg := "failed to read payload"
		a.json(w, http.StatusBadRequest, webhookAck{Success: false, Error: &msg})
		return
	}

	err = a.Billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, domain.ErrSignature) {
			msg := err.Error()
			a.json(w, http.StatusBadRequest, webhookAck{Success: false, Error: &msg})
			return
		}
		a.Logger.Error().Err(err).Msg("webhook processing failed")
		msg := "error processing webhook event: " + err.Error()
		a.json(w, http.StatusOK, webhookAck{Success: true, Error: &msg})
		return
	}

	a.json(w, http.StatusOK, webhookAck{Success: true})
}
