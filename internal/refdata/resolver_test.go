package refdata

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Iron-Cow/MonoProject/internal/domain"
	"github.com/Iron-Cow/MonoProject/internal/storage"
)

// fakeRefRepo is an in-memory ReferenceRepository. Setting raceOnce makes the
// next create report a duplicate while still materializing the row, imitating
// a concurrent writer winning the insert.
type fakeRefRepo struct {
	currencies    map[int]*domain.Currency
	categories    map[string]*domain.Category
	categoryCodes map[int]*domain.CategoryCode

	raceOnce bool
	nextID   int64

	currencyCreates int
	codeCreates     int
}

func newFakeRefRepo() *fakeRefRepo {
	return &fakeRefRepo{
		currencies:    make(map[int]*domain.Currency),
		categories:    make(map[string]*domain.Category),
		categoryCodes: make(map[int]*domain.CategoryCode),
	}
}

func (f *fakeRefRepo) GetCurrency(ctx context.Context, code int) (*domain.Currency, error) {
	if c, ok := f.currencies[code]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRefRepo) CreateCurrency(ctx context.Context, currency *domain.Currency) error {
	f.currencyCreates++
	if _, ok := f.currencies[currency.Code]; ok {
		return storage.ErrDuplicate
	}
	if f.raceOnce {
		f.raceOnce = false
		f.currencies[currency.Code] = &domain.Currency{Code: currency.Code, Name: "RACE"}
		return storage.ErrDuplicate
	}
	f.currencies[currency.Code] = currency
	return nil
}

func (f *fakeRefRepo) GetCategoryCode(ctx context.Context, code int) (*domain.CategoryCode, error) {
	if cc, ok := f.categoryCodes[code]; ok {
		return cc, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRefRepo) CreateCategoryCode(ctx context.Context, cc *domain.CategoryCode) error {
	f.codeCreates++
	if _, ok := f.categoryCodes[cc.Code]; ok {
		return storage.ErrDuplicate
	}
	if f.raceOnce {
		f.raceOnce = false
		f.categoryCodes[cc.Code] = &domain.CategoryCode{ID: f.id(), Code: cc.Code, CategoryID: cc.CategoryID}
		return storage.ErrDuplicate
	}
	cc.ID = f.id()
	f.categoryCodes[cc.Code] = cc
	return nil
}

func (f *fakeRefRepo) GetOrCreateCategory(ctx context.Context, name, symbol string) (*domain.Category, error) {
	if c, ok := f.categories[name]; ok {
		return c, nil
	}
	c := &domain.Category{ID: f.id(), Name: name, Symbol: symbol}
	f.categories[name] = c
	return c, nil
}

func (f *fakeRefRepo) CountCategoryCodes(ctx context.Context) (int, error) {
	return len(f.categoryCodes), nil
}

func (f *fakeRefRepo) id() int64 {
	f.nextID++
	return f.nextID
}

// recordingNotifier captures reconciliation messages.
type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) error {
	n.messages = append(n.messages, text)
	return nil
}

func TestResolveCurrencyCreatesPlaceholderOnce(t *testing.T) {
	repo := newFakeRefRepo()
	notifier := &recordingNotifier{}
	resolver := NewResolver(repo, notifier, zerolog.Nop())
	ctx := context.Background()

	first, err := resolver.ResolveCurrency(ctx, 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Name != domain.UnknownCurrencyName {
		t.Errorf("placeholder name = %q, want %q", first.Name, domain.UnknownCurrencyName)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], "999") {
		t.Errorf("notification should mention the code: %q", notifier.messages[0])
	}

	// Second resolution reuses the stored row, no new create, no new noise.
	second, err := resolver.ResolveCurrency(ctx, 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Code != first.Code {
		t.Errorf("expected the same row back")
	}
	if repo.currencyCreates != 1 {
		t.Errorf("expected 1 create, got %d", repo.currencyCreates)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("expected no second notification, got %d", len(notifier.messages))
	}
}

func TestResolveCurrencyReturnsKnownRow(t *testing.T) {
	repo := newFakeRefRepo()
	repo.currencies[980] = &domain.Currency{Code: 980, Name: "UAH", Symbol: "₴"}
	resolver := NewResolver(repo, nil, zerolog.Nop())

	got, err := resolver.ResolveCurrency(context.Background(), 980)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "UAH" {
		t.Errorf("got %q, want UAH", got.Name)
	}
	if repo.currencyCreates != 0 {
		t.Errorf("known currency must not trigger a create")
	}
}

func TestResolveCurrencySettlesDuplicateRace(t *testing.T) {
	repo := newFakeRefRepo()
	repo.raceOnce = true
	resolver := NewResolver(repo, nil, zerolog.Nop())

	got, err := resolver.ResolveCurrency(context.Background(), 840)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The row written by the racing writer wins.
	if got.Name != "RACE" {
		t.Errorf("expected re-read row after duplicate, got %q", got.Name)
	}
}

func TestResolveCategoryMapsUnknownMCCToFallback(t *testing.T) {
	repo := newFakeRefRepo()
	notifier := &recordingNotifier{}
	resolver := NewResolver(repo, notifier, zerolog.Nop())
	ctx := context.Background()

	cc, err := resolver.ResolveCategory(ctx, 5411)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cc.Code != 5411 {
		t.Errorf("code = %d, want 5411", cc.Code)
	}

	fallback, ok := repo.categories[domain.FallbackCategoryName]
	if !ok {
		t.Fatal("fallback category was not created")
	}
	if cc.CategoryID != fallback.ID {
		t.Errorf("mapping points at category %d, want fallback %d", cc.CategoryID, fallback.ID)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.messages))
	}
}

func TestResolveCategoryReusesExistingMapping(t *testing.T) {
	repo := newFakeRefRepo()
	repo.categoryCodes[5411] = &domain.CategoryCode{ID: 7, Code: 5411, CategoryID: 3}
	resolver := NewResolver(repo, nil, zerolog.Nop())

	cc, err := resolver.ResolveCategory(context.Background(), 5411)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cc.ID != 7 || cc.CategoryID != 3 {
		t.Errorf("expected the stored mapping, got %+v", cc)
	}
	if repo.codeCreates != 0 {
		t.Errorf("existing mapping must not trigger a create")
	}
}

func TestResolveCategorySynthesizesCodeWhenMissing(t *testing.T) {
	repo := newFakeRefRepo()
	repo.categoryCodes[100] = &domain.CategoryCode{ID: 1, Code: 100, CategoryID: 1}
	resolver := NewResolver(repo, nil, zerolog.Nop())

	cc, err := resolver.ResolveCategory(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One mapping already stored, so the synthetic code lands on base+1.
	if cc.Code != syntheticCodeBase+1 {
		t.Errorf("synthetic code = %d, want %d", cc.Code, syntheticCodeBase+1)
	}
}

func TestResolveCategorySyntheticCollisionBumps(t *testing.T) {
	repo := newFakeRefRepo()
	// Pre-store the code the count-derived key would land on.
	repo.categoryCodes[syntheticCodeBase+1] = &domain.CategoryCode{ID: 1, Code: syntheticCodeBase + 1, CategoryID: 1}
	resolver := NewResolver(repo, nil, zerolog.Nop())

	cc, err := resolver.ResolveCategory(context.Background(), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Count is 1 so the first candidate is base+1, which is taken and
	// returned as-is by the read side of the loop.
	if cc.Code != syntheticCodeBase+1 {
		t.Errorf("expected the existing synthetic row, got code %d", cc.Code)
	}
}
