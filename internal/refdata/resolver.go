// Package refdata resolves upstream currency and merchant-category codes to
// local reference rows, auto-creating placeholders for codes never seen
// before. Resolution never fails because a code is unknown; it only fails
// when the store itself is unreachable.
package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/notify"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// syntheticCodeBase keeps synthesized codes clear of the real MCC range when
// an event arrives without one.
const syntheticCodeBase = 999000

// createAttempts bounds the read/create/re-read loop under racing writers.
// Two writers racing on the same code settle in one extra round; anything
// beyond a handful of rounds means the store is misbehaving.
const createAttempts = 3

// FallbackCategorySymbol marks the auto-created generic category.
const FallbackCategorySymbol = "🤝"

// Resolver implements reference-data resolution over the store.
type Resolver struct {
	refs     storage.ReferenceRepository
	notifier notify.Notifier
	log      zerolog.Logger
}

// NewResolver builds a Resolver. The notifier is invoked whenever a
// placeholder row is created, since a sentinel currency or category is a
// data-quality smell a human should reconcile.
func NewResolver(refs storage.ReferenceRepository, notifier notify.Notifier, log zerolog.Logger) *Resolver {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Resolver{refs: refs, notifier: notifier, log: log}
}

// ResolveCurrency returns the currency row for the upstream numeric code,
// creating a placeholder named "XXX" on first sight. Colliding creates are
// resolved by re-reading, not by locking.
func (r *Resolver) ResolveCurrency(ctx context.Context, code int) (*domain.Currency, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		currency, err := r.refs.GetCurrency(ctx, code)
		if err == nil {
			return currency, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolve currency %d: %w", code, err)
		}

		placeholder := &domain.Currency{Code: code, Name: domain.UnknownCurrencyName}
		err = r.refs.CreateCurrency(ctx, placeholder)
		if errors.Is(err, storage.ErrDuplicate) {
			continue // another writer got there first; re-read
		}
		if err != nil {
			return nil, fmt.Errorf("create placeholder currency %d: %w", code, err)
		}

		r.log.Warn().Int("currency_code", code).Msg("Created placeholder currency")
		r.notifyGap(ctx, fmt.Sprintf("Unknown currency code %d stored as %q, needs reconciliation", code, domain.UnknownCurrencyName))
		return placeholder, nil
	}
	return nil, fmt.Errorf("resolve currency %d: create/read loop did not settle", code)
}

// ResolveCategory returns the category-code mapping for the merchant-category
// code. Unknown codes are mapped to the generic fallback category, which is
// itself created on first use. A non-positive code means the event carried no
// MCC at all; a synthetic code is derived from the mapping count so the row
// still gets a unique key, bumping on collision.
func (r *Resolver) ResolveCategory(ctx context.Context, mccCode int) (*domain.CategoryCode, error) {
	synthesized := mccCode <= 0
	if synthesized {
		count, err := r.refs.CountCategoryCodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve category: counting codes: %w", err)
		}
		mccCode = syntheticCodeBase + count
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		cc, err := r.refs.GetCategoryCode(ctx, mccCode)
		if err == nil {
			return cc, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolve category %d: %w", mccCode, err)
		}

		fallback, err := r.refs.GetOrCreateCategory(ctx, domain.FallbackCategoryName, FallbackCategorySymbol)
		if err != nil {
			return nil, fmt.Errorf("resolve category %d: fallback category: %w", mccCode, err)
		}

		placeholder := &domain.CategoryCode{Code: mccCode, CategoryID: fallback.ID}
		err = r.refs.CreateCategoryCode(ctx, placeholder)
		if errors.Is(err, storage.ErrDuplicate) {
			if synthesized {
				mccCode++ // synthetic key collided, take the next one
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create placeholder category code %d: %w", mccCode, err)
		}

		r.log.Warn().Int("mcc", mccCode).Msg("Created placeholder category code")
		r.notifyGap(ctx, fmt.Sprintf("Unknown MCC %d mapped to %q, needs reconciliation", mccCode, domain.FallbackCategoryName))
		return placeholder, nil
	}
	return nil, fmt.Errorf("resolve category %d: create/read loop did not settle", mccCode)
}

// notifyGap reports a placeholder creation. Delivery failures are logged and
// swallowed; a dead notifier must not block ingestion.
func (r *Resolver) notifyGap(ctx context.Context, text string) {
	if err := r.notifier.Notify(ctx, text); err != nil {
		r.log.Error().Err(err).Msg("Reference-data gap notification failed")
	}
}
