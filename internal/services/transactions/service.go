package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
	"github.com/ivankudzin/recipemarket/internal/services/media"
	"github.com/ivankudzin/recipemarket/internal/services/rate"
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type Store interface {
	Create(ctx context.Context, tx pgx.Tx, userID, totalCents int64) (int64, error)
	InsertLines(ctx context.Context, tx pgx.Tx, transactionID int64, lines []model.LineItem) error
	LockForPayment(ctx context.Context, tx pgx.Tx, transactionID int64) (pgrepo.PaymentTarget, error)
	UpdatePayment(ctx context.Context, tx pgx.Tx, transactionID int64, method, proofURL string, proofKey *string) error
	Transition(ctx context.Context, tx pgx.Tx, transactionID int64, to enums.TransactionStatus, adminID int64, notes *string, now time.Time) (int64, bool, error)
	Status(ctx context.Context, q pgrepo.Querier, transactionID int64) (enums.TransactionStatus, error)
	Lines(ctx context.Context, q pgrepo.Querier, transactionID int64) ([]model.LineItem, error)
	FindByID(ctx context.Context, q pgrepo.Querier, transactionID int64) (model.Transaction, error)
	ListForUser(ctx context.Context, userID int64, status enums.TransactionStatus) ([]model.Transaction, error)
	ListAll(ctx context.Context, filter pgrepo.TransactionFilter) ([]model.Transaction, int64, error)
}

type CartStore interface {
	LockEligible(ctx context.Context, tx pgx.Tx, userID int64) ([]model.LineItem, error)
	DeleteRecipes(ctx context.Context, tx pgx.Tx, userID int64, recipeIDs []int64) (int64, error)
}

type PurchaseGranter interface {
	GrantMany(ctx context.Context, tx pgx.Tx, userID int64, lines []model.LineItem) ([]pgrepo.GrantedPurchase, error)
}

type PurchaseCounter interface {
	IncrementPurchaseCounts(ctx context.Context, tx pgx.Tx, recipeIDs []int64) error
}

type ProofStorage interface {
	UploadPaymentProof(ctx context.Context, userID int64, file media.Upload) (media.StoredObject, error)
	DiscardSuperseded(ctx context.Context, previous *string, current string)
}

type RateLimiter interface {
	Allow(ctx context.Context, action rate.Action, userID int64) error
}

// Viewer is the caller of a read. Admins may read any transaction.
type Viewer struct {
	UserID int64
	Admin  bool
}

type ListQuery struct {
	Status string
	UserID int64
	Page   int
	Limit  int
}

type Page struct {
	Items      []model.Transaction
	Pagination model.Pagination
}

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

type Dependencies struct {
	Tx        TxRunner
	Store     Store
	Cart      CartStore
	Purchases PurchaseGranter
	Counters  PurchaseCounter
	Proofs    ProofStorage
	Limiter   RateLimiter
	Events    EventPublisher
	Notifier  ReviewNotifier
	Logger    *zap.Logger
}

type Service struct {
	tx        TxRunner
	store     Store
	cart      CartStore
	purchases PurchaseGranter
	counters  PurchaseCounter
	proofs    ProofStorage
	limiter   RateLimiter
	events    EventPublisher
	notifier  ReviewNotifier
	log       *zap.Logger
	cfg       Config
	now       func() time.Time

	sideEffectTimeout time.Duration
}

func NewService(deps Dependencies, cfg Config) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = rules.DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = rules.MaxPageSize
	}

	return &Service{
		tx:        deps.Tx,
		store:     deps.Store,
		cart:      deps.Cart,
		purchases: deps.Purchases,
		counters:  deps.Counters,
		proofs:    deps.Proofs,
		limiter:   deps.Limiter,
		events:    deps.Events,
		notifier:  deps.Notifier,
		log:       log,
		cfg:       cfg,
		now:       time.Now,

		sideEffectTimeout: defaultSideEffectTimeout,
	}
}

// Create converts the user's sale-eligible cart into a pending transaction.
// Reading the cart, writing the transaction with price snapshots and
// consuming the cart rows happen in one unit of work.
func (s *Service) Create(ctx context.Context, userID int64) (model.Transaction, error) {
	var created model.Transaction

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		lines, err := s.cart.LockEligible(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		prices := make([]int64, len(lines))
		recipeIDs := make([]int64, len(lines))
		for i, line := range lines {
			prices[i] = line.PriceCents
			recipeIDs[i] = line.RecipeID
		}

		id, err := s.store.Create(ctx, tx, userID, rules.SumCents(prices...))
		if err != nil {
			return err
		}
		if err := s.store.InsertLines(ctx, tx, id, lines); err != nil {
			return err
		}
		if _, err := s.cart.DeleteRecipes(ctx, tx, userID, recipeIDs); err != nil {
			return err
		}

		created, err = s.store.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		created.Lines = lines
		return nil
	})
	if err != nil {
		if isServiceError(err) {
			return model.Transaction{}, err
		}
		return model.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publish(ctx, EventCreated, created, nil)
	return created, nil
}

// SubmitPayment records payment details given as a plain proof URL.
func (s *Service) SubmitPayment(ctx context.Context, transactionID, userID int64, method, proofURL string) (model.Transaction, error) {
	method = strings.TrimSpace(method)
	proofURL = strings.TrimSpace(proofURL)
	if method == "" {
		return model.Transaction{}, ErrMethodRequired
	}
	if proofURL == "" {
		return model.Transaction{}, ErrProofRequired
	}
	if err := s.allow(ctx, userID); err != nil {
		return model.Transaction{}, err
	}
	return s.submitPayment(ctx, transactionID, userID, method, proofURL, nil)
}

// SubmitPaymentUpload stores the proof image and then records it. A blob
// uploaded for a write that later fails is left for the orphan sweep.
func (s *Service) SubmitPaymentUpload(ctx context.Context, transactionID, userID int64, method string, proof media.Upload) (model.Transaction, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return model.Transaction{}, ErrMethodRequired
	}
	if len(proof.Content) == 0 {
		return model.Transaction{}, ErrProofRequired
	}
	if s.proofs == nil {
		return model.Transaction{}, fmt.Errorf("proof storage is not configured")
	}
	if err := s.allow(ctx, userID); err != nil {
		return model.Transaction{}, err
	}

	// Reject obviously doomed submissions before producing a blob.
	current, err := s.store.FindByID(ctx, nil, transactionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTransactionNotFound) {
			return model.Transaction{}, ErrNotAccessibleMissing
		}
		return model.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	if err := checkPayable(current.UserID, current.Status, userID); err != nil {
		return model.Transaction{}, err
	}

	obj, err := s.proofs.UploadPaymentProof(ctx, userID, proof)
	if err != nil {
		return model.Transaction{}, err
	}
	key := obj.Key
	return s.submitPayment(ctx, transactionID, userID, method, obj.URL, &key)
}

func (s *Service) submitPayment(ctx context.Context, transactionID, userID int64, method, proofURL string, proofKey *string) (model.Transaction, error) {
	var (
		updated     model.Transaction
		previousKey *string
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		target, err := s.store.LockForPayment(ctx, tx, transactionID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrTransactionNotFound) {
				return ErrNotAccessibleMissing
			}
			return err
		}
		if err := checkPayable(target.UserID, target.Status, userID); err != nil {
			return err
		}

		if err := s.store.UpdatePayment(ctx, tx, transactionID, method, proofURL, proofKey); err != nil {
			if errors.Is(err, pgrepo.ErrTransactionNotPending) {
				return ErrAlreadyProcessed
			}
			return err
		}
		previousKey = target.PaymentProofKey

		updated, err = s.findWithLines(ctx, tx, transactionID)
		return err
	})
	if err != nil {
		if isServiceError(err) {
			return model.Transaction{}, err
		}
		return model.Transaction{}, fmt.Errorf("submit payment: %w", err)
	}

	current := ""
	if proofKey != nil {
		current = *proofKey
	}
	if s.proofs != nil {
		s.proofs.DiscardSuperseded(ctx, previousKey, current)
	}

	s.publish(ctx, EventPaymentSubmitted, updated, nil)
	s.notifyReview(ctx, updated)
	return updated, nil
}

// Verify grants every line item the buyer does not already own. The
// conditional pending->verified update is the linearization point: of two
// concurrent reviewers only one changes the row, the other sees the status.
func (s *Service) Verify(ctx context.Context, transactionID, adminID int64, notes *string) (model.Verification, error) {
	notes = trimmedOrNil(notes)

	var (
		result   model.Verification
		verified model.Transaction
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		userID, changed, err := s.store.Transition(ctx, tx, transactionID, enums.TransactionStatusVerified, adminID, notes, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return s.verifyConflict(ctx, tx, transactionID)
		}

		lines, err := s.store.Lines(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoRecipes
		}

		granted, err := s.purchases.GrantMany(ctx, tx, userID, lines)
		if err != nil {
			return err
		}

		purchaseIDs := make([]int64, len(granted))
		recipeIDs := make([]int64, len(granted))
		for i, g := range granted {
			purchaseIDs[i] = g.ID
			recipeIDs[i] = g.RecipeID
		}
		if err := s.counters.IncrementPurchaseCounts(ctx, tx, recipeIDs); err != nil {
			return err
		}

		result = model.Verification{
			TransactionID: transactionID,
			UserID:        userID,
			Status:        enums.TransactionStatusVerified,
			PurchaseIDs:   purchaseIDs,
		}

		verified, err = s.store.FindByID(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		verified.Lines = lines
		return nil
	})
	if err != nil {
		if isServiceError(err) {
			return model.Verification{}, err
		}
		return model.Verification{}, fmt.Errorf("verify transaction: %w", err)
	}

	s.publish(ctx, EventVerified, verified, result.PurchaseIDs)
	return result, nil
}

// Reject closes a pending transaction without granting anything. The cart
// consumed at creation stays consumed.
func (s *Service) Reject(ctx context.Context, transactionID, adminID int64, notes string) (model.Transaction, error) {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return model.Transaction{}, ErrNotesRequired
	}

	var rejected model.Transaction
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, changed, err := s.store.Transition(ctx, tx, transactionID, enums.TransactionStatusRejected, adminID, &trimmed, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return s.rejectConflict(ctx, tx, transactionID)
		}

		rejected, err = s.findWithLines(ctx, tx, transactionID)
		return err
	})
	if err != nil {
		if isServiceError(err) {
			return model.Transaction{}, err
		}
		return model.Transaction{}, fmt.Errorf("reject transaction: %w", err)
	}

	s.publish(ctx, EventRejected, rejected, nil)
	return rejected, nil
}

// Get returns a transaction with its line items to its owner or an admin.
func (s *Service) Get(ctx context.Context, transactionID int64, viewer Viewer) (model.Transaction, error) {
	t, err := s.store.FindByID(ctx, nil, transactionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTransactionNotFound) {
			if viewer.Admin {
				return model.Transaction{}, ErrTransactionNotFound
			}
			return model.Transaction{}, ErrNotAccessibleMissing
		}
		return model.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	if !viewer.Admin && t.UserID != viewer.UserID {
		return model.Transaction{}, ErrNotAccessibleForeign
	}

	lines, err := s.store.Lines(ctx, nil, transactionID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("load transaction lines: %w", err)
	}
	t.Lines = lines
	return t, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64, status string) ([]model.Transaction, error) {
	parsed, err := parseStatus(status)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListForUser(ctx, userID, parsed)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if items == nil {
		items = []model.Transaction{}
	}
	return items, nil
}

func (s *Service) ListAll(ctx context.Context, q ListQuery) (Page, error) {
	parsed, err := parseStatus(q.Status)
	if err != nil {
		return Page{}, err
	}

	page, limit := rules.NormalizePage(q.Page, q.Limit, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	items, total, err := s.store.ListAll(ctx, pgrepo.TransactionFilter{
		Status: parsed,
		UserID: q.UserID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return Page{}, fmt.Errorf("list all transactions: %w", err)
	}
	if items == nil {
		items = []model.Transaction{}
	}

	return Page{Items: items, Pagination: model.NewPagination(page, limit, total)}, nil
}

func (s *Service) findWithLines(ctx context.Context, tx pgx.Tx, transactionID int64) (model.Transaction, error) {
	t, err := s.store.FindByID(ctx, tx, transactionID)
	if err != nil {
		return model.Transaction{}, err
	}
	lines, err := s.store.Lines(ctx, tx, transactionID)
	if err != nil {
		return model.Transaction{}, err
	}
	t.Lines = lines
	return t, nil
}

func (s *Service) verifyConflict(ctx context.Context, tx pgx.Tx, transactionID int64) error {
	status, err := s.store.Status(ctx, tx, transactionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTransactionNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}
	switch status {
	case enums.TransactionStatusVerified:
		return ErrAlreadyVerified
	case enums.TransactionStatusRejected:
		return ErrCannotVerifyRejected
	default:
		return fmt.Errorf("transaction %d stayed %s after transition", transactionID, status)
	}
}

func (s *Service) rejectConflict(ctx context.Context, tx pgx.Tx, transactionID int64) error {
	status, err := s.store.Status(ctx, tx, transactionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTransactionNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}
	switch status {
	case enums.TransactionStatusVerified:
		return ErrCannotRejectVerified
	case enums.TransactionStatusRejected:
		return ErrAlreadyRejected
	default:
		return fmt.Errorf("transaction %d stayed %s after transition", transactionID, status)
	}
}

func (s *Service) allow(ctx context.Context, userID int64) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Allow(ctx, rate.ActionSubmitPayment, userID)
}

func checkPayable(ownerID int64, status enums.TransactionStatus, userID int64) error {
	if ownerID != userID {
		return ErrNotAccessibleForeign
	}
	if !rules.AcceptsPayment(status) {
		return ErrAlreadyProcessed.WithMessage(fmt.Sprintf("Cannot submit payment for transaction with status: %s", status))
	}
	return nil
}

func parseStatus(raw string) (enums.TransactionStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	status, ok := enums.ParseTransactionStatus(raw)
	if !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// isServiceError reports whether err is already classified for the caller.
func isServiceError(err error) bool {
	_, ok := apperr.As(err)
	return ok
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
