package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/infra/kafka"
	"github.com/ivankudzin/recipemarket/internal/infra/telegram"
	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
	"github.com/ivankudzin/recipemarket/internal/services/media"
	"github.com/ivankudzin/recipemarket/internal/services/rate"
)

type txStub struct{}

func (txStub) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

// world is an in-memory stand-in for the cart, transaction, purchase and
// recipe tables.
type world struct {
	mu           sync.Mutex
	carts        map[int64][]model.LineItem
	transactions map[int64]*model.Transaction
	lines        map[int64][]model.LineItem
	owned        map[[2]int64]int64
	purchaseCnt  map[int64]int64
	nextTx       int64
	nextPurchase int64
}

func newWorld() *world {
	return &world{
		carts:        map[int64][]model.LineItem{},
		transactions: map[int64]*model.Transaction{},
		lines:        map[int64][]model.LineItem{},
		owned:        map[[2]int64]int64{},
		purchaseCnt:  map[int64]int64{},
	}
}

func (w *world) LockEligible(_ context.Context, _ pgx.Tx, userID int64) ([]model.LineItem, error) {
	return append([]model.LineItem(nil), w.carts[userID]...), nil
}

func (w *world) DeleteRecipes(_ context.Context, _ pgx.Tx, userID int64, recipeIDs []int64) (int64, error) {
	drop := map[int64]bool{}
	for _, id := range recipeIDs {
		drop[id] = true
	}
	var kept []model.LineItem
	var removed int64
	for _, line := range w.carts[userID] {
		if drop[line.RecipeID] {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	w.carts[userID] = kept
	return removed, nil
}

func (w *world) Create(_ context.Context, _ pgx.Tx, userID, totalCents int64) (int64, error) {
	w.nextTx++
	w.transactions[w.nextTx] = &model.Transaction{
		ID:         w.nextTx,
		UserID:     userID,
		Username:   "buyer",
		TotalCents: totalCents,
		Status:     enums.TransactionStatusPending,
		CreatedAt:  time.Now(),
	}
	return w.nextTx, nil
}

func (w *world) InsertLines(_ context.Context, _ pgx.Tx, transactionID int64, lines []model.LineItem) error {
	w.lines[transactionID] = append([]model.LineItem(nil), lines...)
	w.transactions[transactionID].RecipeCount = len(lines)
	return nil
}

func (w *world) LockForPayment(_ context.Context, _ pgx.Tx, transactionID int64) (pgrepo.PaymentTarget, error) {
	t, ok := w.transactions[transactionID]
	if !ok {
		return pgrepo.PaymentTarget{}, pgrepo.ErrTransactionNotFound
	}
	return pgrepo.PaymentTarget{UserID: t.UserID, Status: t.Status, PaymentProofKey: t.PaymentProofKey}, nil
}

func (w *world) UpdatePayment(_ context.Context, _ pgx.Tx, transactionID int64, method, proofURL string, proofKey *string) error {
	t := w.transactions[transactionID]
	if t.Status != enums.TransactionStatusPending {
		return pgrepo.ErrTransactionNotPending
	}
	t.PaymentMethod = &method
	t.PaymentProofURL = &proofURL
	t.PaymentProofKey = proofKey
	return nil
}

func (w *world) Transition(_ context.Context, _ pgx.Tx, transactionID int64, to enums.TransactionStatus, adminID int64, notes *string, now time.Time) (int64, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.transactions[transactionID]
	if !ok || t.Status != enums.TransactionStatusPending {
		return 0, false, nil
	}
	t.Status = to
	t.VerifiedAt = &now
	t.VerifiedBy = &adminID
	if notes != nil {
		t.AdminNotes = notes
	}
	return t.UserID, true, nil
}

func (w *world) Status(_ context.Context, _ pgrepo.Querier, transactionID int64) (enums.TransactionStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.transactions[transactionID]
	if !ok {
		return "", pgrepo.ErrTransactionNotFound
	}
	return t.Status, nil
}

func (w *world) Lines(_ context.Context, _ pgrepo.Querier, transactionID int64) ([]model.LineItem, error) {
	return w.lines[transactionID], nil
}

func (w *world) FindByID(_ context.Context, _ pgrepo.Querier, transactionID int64) (model.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.transactions[transactionID]
	if !ok {
		return model.Transaction{}, pgrepo.ErrTransactionNotFound
	}
	return *t, nil
}

func (w *world) ListForUser(_ context.Context, userID int64, status enums.TransactionStatus) ([]model.Transaction, error) {
	var out []model.Transaction
	for id := int64(1); id <= w.nextTx; id++ {
		t, ok := w.transactions[id]
		if !ok || t.UserID != userID || (status != "" && t.Status != status) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (w *world) ListAll(_ context.Context, filter pgrepo.TransactionFilter) ([]model.Transaction, int64, error) {
	var all []model.Transaction
	for id := int64(1); id <= w.nextTx; id++ {
		t, ok := w.transactions[id]
		if !ok || (filter.Status != "" && t.Status != filter.Status) {
			continue
		}
		all = append(all, *t)
	}
	total := int64(len(all))
	if filter.Offset >= len(all) {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], total, nil
}

func (w *world) GrantMany(_ context.Context, _ pgx.Tx, userID int64, lines []model.LineItem) ([]pgrepo.GrantedPurchase, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var granted []pgrepo.GrantedPurchase
	for _, line := range lines {
		key := [2]int64{userID, line.RecipeID}
		if _, ok := w.owned[key]; ok {
			continue
		}
		w.nextPurchase++
		w.owned[key] = w.nextPurchase
		granted = append(granted, pgrepo.GrantedPurchase{ID: w.nextPurchase, RecipeID: line.RecipeID})
	}
	return granted, nil
}

func (w *world) IncrementPurchaseCounts(_ context.Context, _ pgx.Tx, recipeIDs []int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range recipeIDs {
		w.purchaseCnt[id]++
	}
	return nil
}

type publisherStub struct {
	mu   sync.Mutex
	err  error
	sent []kafka.Message
}

func (p *publisherStub) Publish(_ context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return p.err
}

func (p *publisherStub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sent))
	for _, msg := range p.sent {
		out = append(out, msg.Headers["event_type"])
	}
	return out
}

type notifierStub struct {
	err     error
	reviews []telegram.PaymentReview
}

func (n *notifierStub) NotifyPaymentSubmitted(_ context.Context, review telegram.PaymentReview) error {
	n.reviews = append(n.reviews, review)
	return n.err
}

type proofStub struct {
	uploads   int
	discarded []string
}

func (p *proofStub) UploadPaymentProof(_ context.Context, userID int64, _ media.Upload) (media.StoredObject, error) {
	p.uploads++
	key := media.PrefixPaymentProofs + "proof-" + strconv.Itoa(p.uploads) + ".png"
	return media.StoredObject{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (p *proofStub) DiscardSuperseded(_ context.Context, previous *string, current string) {
	if previous == nil || *previous == current {
		return
	}
	p.discarded = append(p.discarded, *previous)
}

type limiterStub struct {
	err error
}

func (l limiterStub) Allow(context.Context, rate.Action, int64) error {
	return l.err
}

type fixture struct {
	world    *world
	events   *publisherStub
	notifier *notifierStub
	proofs   *proofStub
	svc      *Service
}

func newFixture(limiter RateLimiter) fixture {
	w := newWorld()
	f := fixture{
		world:    w,
		events:   &publisherStub{},
		notifier: &notifierStub{},
		proofs:   &proofStub{},
	}
	f.svc = NewService(Dependencies{
		Tx:        txStub{},
		Store:     w,
		Cart:      w,
		Purchases: w,
		Counters:  w,
		Proofs:    f.proofs,
		Limiter:   limiter,
		Events:    f.events,
		Notifier:  f.notifier,
	}, Config{})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestCreateConsumesCartAndSnapshotsPrices(t *testing.T) {
	f := newFixture(nil)
	f.world.carts[7] = []model.LineItem{
		{RecipeID: 1, Title: "Pho", PriceCents: 1000},
		{RecipeID: 2, Title: "Laksa", PriceCents: 500},
	}

	created, err := f.svc.Create(context.Background(), 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TotalCents != 1500 || created.Status != enums.TransactionStatusPending {
		t.Fatalf("unexpected transaction: %+v", created)
	}
	if len(created.Lines) != 2 || created.RecipeCount != 2 {
		t.Fatalf("unexpected lines: %+v", created.Lines)
	}
	if len(f.world.carts[7]) != 0 {
		t.Fatalf("cart must be consumed, got %+v", f.world.carts[7])
	}
	if got := f.events.types(); len(got) != 1 || got[0] != EventCreated {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.Create(context.Background(), 7)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart, got %v", err)
	}
	if f.world.nextTx != 0 {
		t.Fatalf("no transaction must be written")
	}
}

func TestSubmitPaymentOwnershipErrorsShareCode(t *testing.T) {
	f := newFixture(nil)
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}
	created, err := f.svc.Create(context.Background(), 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, missingErr := f.svc.SubmitPayment(context.Background(), 999, 7, "bank", "https://proof")
	_, foreignErr := f.svc.SubmitPayment(context.Background(), created.ID, 8, "bank", "https://proof")

	if !errors.Is(missingErr, ErrNotAccessibleMissing) || errors.Is(missingErr, ErrNotAccessibleForeign) {
		t.Fatalf("missing transaction must map to the missing sentinel: %v", missingErr)
	}
	if !errors.Is(foreignErr, ErrNotAccessibleForeign) || errors.Is(foreignErr, ErrNotAccessibleMissing) {
		t.Fatalf("foreign transaction must map to the foreign sentinel: %v", foreignErr)
	}

	a, _ := apperr.As(missingErr)
	b, _ := apperr.As(foreignErr)
	if a.Kind != apperr.KindForbidden || a.Code != b.Code || a.Message != b.Message {
		t.Fatalf("caller must not be able to tell them apart: %+v vs %+v", a, b)
	}
}

func TestSubmitPaymentValidatesFields(t *testing.T) {
	f := newFixture(nil)

	if _, err := f.svc.SubmitPayment(context.Background(), 1, 7, " ", "https://proof"); !errors.Is(err, ErrMethodRequired) {
		t.Fatalf("expected method required, got %v", err)
	}
	if _, err := f.svc.SubmitPayment(context.Background(), 1, 7, "bank", ""); !errors.Is(err, ErrProofRequired) {
		t.Fatalf("expected proof required, got %v", err)
	}
}

func TestSubmitPaymentIsRateLimited(t *testing.T) {
	limited := &rate.LimitError{Action: rate.ActionSubmitPayment, RetryAfterSec: 30}
	f := newFixture(limiterStub{err: limited})

	_, err := f.svc.SubmitPayment(context.Background(), 1, 7, "bank", "https://proof")
	if !errors.Is(err, rate.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestPurchaseScenarioEndToEnd(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{
		{RecipeID: 1, Title: "Pho", PriceCents: 1000},
		{RecipeID: 2, Title: "Laksa", PriceCents: 500},
	}

	created, err := f.svc.Create(ctx, 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.SubmitPayment(ctx, created.ID, 7, "bank", "https://proof/1"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	resubmitted, err := f.svc.SubmitPayment(ctx, created.ID, 7, "wallet", "https://proof/2")
	if err != nil {
		t.Fatalf("resubmit while pending: %v", err)
	}
	if *resubmitted.PaymentMethod != "wallet" || *resubmitted.PaymentProofURL != "https://proof/2" {
		t.Fatalf("resubmission must overwrite payment details: %+v", resubmitted)
	}

	verification, err := f.svc.Verify(ctx, created.ID, 1, nil)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verification.PurchaseCount() != 2 || verification.UserID != 7 {
		t.Fatalf("unexpected verification: %+v", verification)
	}
	if f.world.purchaseCnt[1] != 1 || f.world.purchaseCnt[2] != 1 {
		t.Fatalf("unexpected purchase counts: %v", f.world.purchaseCnt)
	}

	_, err = f.svc.SubmitPayment(ctx, created.ID, 7, "bank", "https://proof/3")
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected already processed, got %v", err)
	}
	if e, _ := apperr.As(err); e.Message != "Cannot submit payment for transaction with status: verified" {
		t.Fatalf("unexpected message: %q", e.Message)
	}

	got := f.events.types()
	want := []string{EventCreated, EventPaymentSubmitted, EventPaymentSubmitted, EventVerified}
	if len(got) != len(want) {
		t.Fatalf("unexpected events: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %s want %s", i, got[i], want[i])
		}
	}
	if len(f.notifier.reviews) != 2 || f.notifier.reviews[0].TotalAmount != "15.00" {
		t.Fatalf("unexpected reviews: %+v", f.notifier.reviews)
	}

	var verified lifecycleEvent
	if err := json.Unmarshal(f.events.sent[3].Payload, &verified); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if verified.Total != "15.00" || len(verified.PurchaseIDs) != 2 {
		t.Fatalf("unexpected verified event: %+v", verified)
	}
}

func TestVerifyTwiceGrantsOnce(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}
	created, _ := f.svc.Create(ctx, 7)

	if _, err := f.svc.Verify(ctx, created.ID, 1, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
	_, err := f.svc.Verify(ctx, created.ID, 1, nil)
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected already verified, got %v", err)
	}
	if f.world.purchaseCnt[1] != 1 || len(f.world.owned) != 1 {
		t.Fatalf("second verify must not grant: counts=%v owned=%v", f.world.purchaseCnt, f.world.owned)
	}
}

func TestConcurrentVerifyHasSingleWinner(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}, {RecipeID: 2, PriceCents: 200}}
	created, _ := f.svc.Create(ctx, 7)

	const reviewers = 8
	errs := make(chan error, reviewers)
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(admin int64) {
			defer wg.Done()
			_, err := f.svc.Verify(ctx, created.ID, admin, nil)
			errs <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyVerified):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected one winner, got %d", wins)
	}
	if f.world.purchaseCnt[1] != 1 || f.world.purchaseCnt[2] != 1 {
		t.Fatalf("counts incremented more than once: %v", f.world.purchaseCnt)
	}
}

func TestVerifySkipsAlreadyOwnedRecipes(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}, {RecipeID: 2, PriceCents: 500}}
	created, _ := f.svc.Create(ctx, 7)
	f.world.owned[[2]int64{7, 1}] = 99

	verification, err := f.svc.Verify(ctx, created.ID, 1, nil)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verification.PurchaseCount() != 1 {
		t.Fatalf("expected one new purchase, got %+v", verification)
	}
	if f.world.purchaseCnt[1] != 0 || f.world.purchaseCnt[2] != 1 {
		t.Fatalf("only newly granted recipes are counted: %v", f.world.purchaseCnt)
	}
}

func TestVerifyStatusConflicts(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	if _, err := f.svc.Verify(ctx, 404, 1, nil); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}
	created, _ := f.svc.Create(ctx, 7)
	if _, err := f.svc.Reject(ctx, created.ID, 1, "no payment received"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Verify(ctx, created.ID, 1, nil); !errors.Is(err, ErrCannotVerifyRejected) {
		t.Fatalf("expected cannot verify rejected, got %v", err)
	}
}

func TestVerifyWithoutLinesFails(t *testing.T) {
	f := newFixture(nil)
	id, _ := f.world.Create(context.Background(), nil, 7, 0)

	if _, err := f.svc.Verify(context.Background(), id, 1, nil); !errors.Is(err, ErrNoRecipes) {
		t.Fatalf("expected no recipes, got %v", err)
	}
}

func TestRejectRequiresNotesAndGrantsNothing(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}
	created, _ := f.svc.Create(ctx, 7)

	if _, err := f.svc.Reject(ctx, created.ID, 1, "   "); !errors.Is(err, ErrNotesRequired) {
		t.Fatalf("expected notes required, got %v", err)
	}
	if _, err := f.svc.Reject(ctx, 404, 1, ""); !errors.Is(err, ErrNotesRequired) {
		t.Fatalf("notes are checked before lookup, got %v", err)
	}

	rejected, err := f.svc.Reject(ctx, created.ID, 1, "  proof unreadable ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.TransactionStatusRejected || *rejected.AdminNotes != "proof unreadable" {
		t.Fatalf("unexpected rejected transaction: %+v", rejected)
	}
	if len(f.world.owned) != 0 || len(f.world.carts[7]) != 0 {
		t.Fatalf("reject must not grant or restore the cart")
	}

	if _, err := f.svc.Reject(ctx, created.ID, 1, "again"); !errors.Is(err, ErrAlreadyRejected) {
		t.Fatalf("expected already rejected, got %v", err)
	}
}

func TestRejectVerifiedFails(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}
	created, _ := f.svc.Create(ctx, 7)
	if _, err := f.svc.Verify(ctx, created.ID, 1, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if _, err := f.svc.Reject(ctx, created.ID, 1, "late"); !errors.Is(err, ErrCannotRejectVerified) {
		t.Fatalf("expected cannot reject verified, got %v", err)
	}
}

func TestSideEffectFailuresDoNotFailCalls(t *testing.T) {
	f := newFixture(nil)
	f.events.err = errors.New("broker down")
	f.notifier.err = errors.New("telegram down")
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}

	created, err := f.svc.Create(ctx, 7)
	if err != nil {
		t.Fatalf("create must succeed: %v", err)
	}
	if _, err := f.svc.SubmitPayment(ctx, created.ID, 7, "bank", "https://proof"); err != nil {
		t.Fatalf("submit must succeed: %v", err)
	}
	if _, err := f.svc.Verify(ctx, created.ID, 1, nil); err != nil {
		t.Fatalf("verify must succeed: %v", err)
	}
}

func TestSubmitPaymentUploadDiscardsSupersededProof(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}
	created, _ := f.svc.Create(ctx, 7)
	proof := media.Upload{Content: []byte("png-bytes")}

	first, err := f.svc.SubmitPaymentUpload(ctx, created.ID, 7, "bank", proof)
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := f.svc.SubmitPaymentUpload(ctx, created.ID, 7, "bank", proof); err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if len(f.proofs.discarded) != 1 || f.proofs.discarded[0] != *first.PaymentProofKey {
		t.Fatalf("first proof must be discarded, got %v", f.proofs.discarded)
	}
}

func TestSubmitPaymentUploadChecksAccessBeforeUpload(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}
	created, _ := f.svc.Create(ctx, 7)
	proof := media.Upload{Content: []byte("png-bytes")}

	if _, err := f.svc.SubmitPaymentUpload(ctx, created.ID, 8, "bank", proof); !errors.Is(err, ErrNotAccessibleForeign) {
		t.Fatalf("expected foreign, got %v", err)
	}
	if _, err := f.svc.SubmitPaymentUpload(ctx, 404, 7, "bank", proof); !errors.Is(err, ErrNotAccessibleMissing) {
		t.Fatalf("expected missing, got %v", err)
	}
	if _, err := f.svc.SubmitPaymentUpload(ctx, created.ID, 7, "bank", media.Upload{}); !errors.Is(err, ErrProofRequired) {
		t.Fatalf("expected proof required, got %v", err)
	}
	if f.proofs.uploads != 0 {
		t.Fatalf("nothing may be uploaded for rejected submissions, got %d", f.proofs.uploads)
	}
}

func TestGetHonoursOwnership(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 1000}}
	created, _ := f.svc.Create(ctx, 7)

	got, err := f.svc.Get(ctx, created.ID, Viewer{UserID: 7})
	if err != nil || len(got.Lines) != 1 {
		t.Fatalf("owner read: %+v %v", got, err)
	}
	if _, err := f.svc.Get(ctx, created.ID, Viewer{UserID: 8}); !errors.Is(err, ErrNotAccessibleForeign) {
		t.Fatalf("expected foreign, got %v", err)
	}
	if _, err := f.svc.Get(ctx, created.ID, Viewer{UserID: 1, Admin: true}); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := f.svc.Get(ctx, 404, Viewer{UserID: 1, Admin: true}); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected not found for admin, got %v", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.world.carts[7] = []model.LineItem{{RecipeID: int64(i + 1), PriceCents: 100}}
		if _, err := f.svc.Create(ctx, 7); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := f.svc.Verify(ctx, 1, 1, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}

	pending, err := f.svc.ListForUser(ctx, 7, "pending")
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending list: %d %v", len(pending), err)
	}
	if _, err := f.svc.ListForUser(ctx, 7, "paid"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}

	page, err := f.svc.ListAll(ctx, ListQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestListAllClampsHugePage(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 100}}
	if _, err := f.svc.Create(ctx, 7); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := f.svc.ListAll(ctx, ListQuery{Page: 1 << 62, Limit: 50})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(page.Items) != 0 || page.Pagination.Total != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestEveryEventCarriesRecipeIDs(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.world.carts[7] = []model.LineItem{
		{RecipeID: 1, Title: "Pho", PriceCents: 1000},
		{RecipeID: 2, Title: "Laksa", PriceCents: 500},
	}

	created, err := f.svc.Create(ctx, 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	submitted, err := f.svc.SubmitPayment(ctx, created.ID, 7, "bank", "https://proof/1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(submitted.Lines) != 2 {
		t.Fatalf("submitted transaction must carry its lines: %+v", submitted.Lines)
	}
	if _, err := f.svc.Reject(ctx, created.ID, 1, "proof unreadable"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	if len(f.events.sent) != 3 {
		t.Fatalf("unexpected event count: %d", len(f.events.sent))
	}
	for _, msg := range f.events.sent {
		var event lifecycleEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			t.Fatalf("decode %s: %v", msg.Headers["event_type"], err)
		}
		if len(event.RecipeIDs) != 2 || event.RecipeIDs[0] != 1 || event.RecipeIDs[1] != 2 {
			t.Fatalf("%s: unexpected recipe ids %v", event.Type, event.RecipeIDs)
		}
	}
}

type stalledPublisher struct {
	sawDeadline chan bool
}

func (p stalledPublisher) Publish(ctx context.Context, _ kafka.Message) error {
	_, ok := ctx.Deadline()
	p.sawDeadline <- ok
	<-ctx.Done()
	return ctx.Err()
}

type stalledNotifier struct {
	sawDeadline chan bool
}

func (n stalledNotifier) NotifyPaymentSubmitted(ctx context.Context, _ telegram.PaymentReview) error {
	_, ok := ctx.Deadline()
	n.sawDeadline <- ok
	<-ctx.Done()
	return ctx.Err()
}

func TestSlowSideEffectsAreBounded(t *testing.T) {
	w := newWorld()
	w.carts[7] = []model.LineItem{{RecipeID: 1, PriceCents: 100}}
	deadlines := make(chan bool, 4)

	svc := NewService(Dependencies{
		Tx:        txStub{},
		Store:     w,
		Cart:      w,
		Purchases: w,
		Counters:  w,
		Events:    stalledPublisher{sawDeadline: deadlines},
		Notifier:  stalledNotifier{sawDeadline: deadlines},
	}, Config{})
	svc.sideEffectTimeout = 20 * time.Millisecond

	created, err := svc.Create(context.Background(), 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The request context is already gone when the side effects run.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if _, err := svc.SubmitPayment(ctx, created.ID, 7, "bank", "https://proof/1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("submit blocked on side effects for %v", elapsed)
	}

	for i := 0; i < 3; i++ {
		if !<-deadlines {
			t.Fatalf("side effect #%d ran without a deadline", i+1)
		}
	}
}
