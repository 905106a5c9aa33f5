// Package billing reconciles payment processor webhooks against the user
// credit ledger.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"oracle/internal/domain"
	"oracle/internal/infra"
)

// CreditsPerCheckout is the fixed grant per completed checkout session.
const CreditsPerCheckout = 100

// referenceSeparator splits the checkout client reference into app id and
// user id. The webhook endpoint may be shared by several deployments, so
// the app id prefix namespaces the reference.
const referenceSeparator = ":::"

// Reconciler verifies inbound payment events and credits the ledger
// exactly once per event id.
type Reconciler struct {
	users          domain.UserRepository
	appID          string
	endpointSecret string
	logger         infra.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(users domain.UserRepository, appID, endpointSecret string, logger infra.Logger) *Reconciler {
	return &Reconciler{
		users:          users,
		appID:          appID,
		endpointSecret: endpointSecret,
		logger:         logger,
	}
}

// HandleWebhook verifies the signature header against the raw payload and
// applies the event. A domain.ErrSignature return is the only case that
// must produce a non-2xx response; any other error is reported in the
// acknowledgement body so the processor does not retry.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, r.endpointSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return r.onSessionCompleted(ctx, event.ID, string(event.Type), &session)
	default:
		r.logger.Info().Str("event_type", string(event.Type)).Msg("unhandled event type")
		return nil
	}
}

func (r *Reconciler) onSessionCompleted(ctx context.Context, eventID, eventType string, session *stripe.CheckoutSession) error {
	appID, userID, _ := strings.Cut(session.ClientReferenceID, referenceSeparator)
	if appID != r.appID {
		r.logger.Warn().Str("app_id", appID).Msg("app id mismatch, ignoring event")
		return nil
	}
	if userID == "" {
		// Retrying cannot repair a reference with no user id, so the
		// event is still acknowledged.
		r.logger.Error().Str("event_id", eventID).Msg("no user id found for checkout session")
		return nil
	}

	email := ""
	if session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}

	err := r.users.RecordPurchase(ctx, eventID, eventType, userID, CreditsPerCheckout, email)
	if errors.Is(err, domain.ErrDuplicateEvent) {
		r.logger.Info().Str("event_id", eventID).Msg("event already reconciled, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("credit purchase for user %s: %w", userID, err)
	}

	r.logger.Info().
		Str("event_id", eventID).
		Str("user_id", userID).
		Int("credits", CreditsPerCheckout).
		Msg("checkout session reconciled")
	return nil
}
