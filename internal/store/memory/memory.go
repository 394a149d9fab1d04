package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/logger"
	"kasirharian/backend/internal/store"
	"kasirharian/backend/internal/xid"
)

// Store keeps everything in process memory behind one RWMutex. Every
// check-then-write runs under the write lock, which gives day transitions
// the same atomicity the postgres store gets from its constraints.
type Store struct {
	mu                 sync.RWMutex
	daysByID           map[string]domain.DayOperation
	transactions       []domain.Transaction
	creditTransactions []domain.CreditTransaction
	supplierPayments   []domain.SupplierPayment
	cashMovements      []domain.CashMovement
	vatConfigsByID     map[string]domain.VATConfiguration
	settingsByStore    map[string]domain.StoreSettings
	promotionsByID     map[string]domain.Promotion
	auditLogs          []domain.AuditLog
	usersByUsername    map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD;
// dev defaults are used with a warning when they are unset.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		logger.Default().WithComponent("memory-store").Warn("using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Default().Fatalw("failed to hash seed password", "username", u.username, "error", err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with the seed users only.
func New() *Store {
	return &Store{
		daysByID:        make(map[string]domain.DayOperation),
		vatConfigsByID:  make(map[string]domain.VATConfiguration),
		settingsByStore: make(map[string]domain.StoreSettings),
		promotionsByID:  make(map[string]domain.Promotion),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store with demo tax settings for main-store.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	defaultRate := decimal.NewFromInt(11)
	s.settingsByStore["main-store"] = domain.StoreSettings{
		StoreID:        "main-store",
		DefaultVATRate: &defaultRate,
		UpdatedAt:      now,
	}
	for _, cfg := range []domain.VATConfiguration{
		{Category: "grocery", Rate: decimal.Zero},
		{Category: "beverage", Rate: decimal.NewFromInt(11)},
		{Category: "tobacco", Rate: decimal.RequireFromString("9.9")},
	} {
		cfg.ID = xid.New("vat")
		cfg.StoreID = "main-store"
		cfg.Active = true
		cfg.UpdatedAt = now
		s.vatConfigsByID[cfg.ID] = cfg
	}
	return s
}

func (s *Store) CreateDay(_ context.Context, day domain.DayOperation) (*domain.DayOperation, error) {
	if strings.TrimSpace(day.StoreID) == "" || strings.TrimSpace(day.BusinessDate) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.daysByID {
		if existing.StoreID != day.StoreID {
			continue
		}
		if existing.IsActive() || existing.BusinessDate == day.BusinessDate {
			return nil, store.ErrConflict
		}
	}

	if day.ID == "" {
		day.ID = xid.New("day")
	}
	if day.OpenedAt.IsZero() {
		day.OpenedAt = time.Now().UTC()
	}
	day.Status = domain.DayStatusOpen
	s.daysByID[day.ID] = day
	return cloneDay(day), nil
}

func (s *Store) GetDay(_ context.Context, id string) (*domain.DayOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day, exists := s.daysByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneDay(day), nil
}

func (s *Store) GetDayByDate(_ context.Context, storeID string, businessDate string) (*domain.DayOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, day := range s.daysByID {
		if day.StoreID == storeID && day.BusinessDate == businessDate {
			return cloneDay(day), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetActiveDay(_ context.Context, storeID string) (*domain.DayOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, day := range s.daysByID {
		if day.StoreID == storeID && day.IsActive() {
			return cloneDay(day), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetLastClosedDay(_ context.Context, storeID string, before string) (*domain.DayOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.DayOperation
	for _, day := range s.daysByID {
		if day.StoreID != storeID || day.Status != domain.DayStatusClosed {
			continue
		}
		if before != "" && day.BusinessDate >= before {
			continue
		}
		if found == nil || day.BusinessDate > found.BusinessDate {
			found = cloneDay(day)
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (s *Store) ListDays(_ context.Context, storeID string, limit int) ([]domain.DayOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DayOperation, 0, 16)
	for _, day := range s.daysByID {
		if storeID != "" && day.StoreID != storeID {
			continue
		}
		result = append(result, *cloneDay(day))
	}
	slices.SortFunc(result, func(a, b domain.DayOperation) int {
		return strings.Compare(b.BusinessDate, a.BusinessDate)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CloseDay(_ context.Context, id string, closing domain.DayClosing) (*domain.DayOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, exists := s.daysByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if !day.IsActive() {
		return nil, store.ErrConflict
	}

	closedAt := closing.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}
	day.Status = domain.DayStatusClosed
	day.ClosingCash = decPtr(closing.ClosingCash)
	day.ActualBank = decPtr(closing.ActualBank)
	day.ExpectedCash = decPtr(closing.ExpectedCash)
	day.ExpectedBank = decPtr(closing.ExpectedBank)
	day.CashVariance = decPtr(closing.CashVariance)
	day.BankVariance = decPtr(closing.BankVariance)
	day.CloseNotes = closing.Notes
	day.ClosedAt = &closedAt
	day.ClosedBy = closing.ClosedBy

	s.daysByID[id] = day
	return cloneDay(day), nil
}

func (s *Store) ReopenDay(_ context.Context, id string, reopening domain.DayReopening) (*domain.DayOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, exists := s.daysByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if day.Status != domain.DayStatusClosed {
		return nil, store.ErrConflict
	}
	for otherID, other := range s.daysByID {
		if otherID != id && other.StoreID == day.StoreID && other.IsActive() {
			return nil, store.ErrConflict
		}
	}

	reopenedAt := reopening.ReopenedAt
	if reopenedAt.IsZero() {
		reopenedAt = time.Now().UTC()
	}
	day.Status = domain.DayStatusReopened
	day.ReopenedAt = &reopenedAt
	day.ReopenedBy = reopening.ReopenedBy
	day.ReopenNotes = appendNote(day.ReopenNotes, reopening.Note)
	day.ReopenCount++

	s.daysByID[id] = day
	return cloneDay(day), nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if strings.TrimSpace(tx.StoreID) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = xid.New("trx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.transactions = append(s.transactions, tx)
	copyTx := tx
	return &copyTx, nil
}

func (s *Store) ListTransactions(_ context.Context, storeID string, from time.Time, to time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 64)
	for _, tx := range s.transactions {
		if tx.StoreID == storeID && inWindow(tx.CreatedAt, from, to) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (s *Store) CreateCreditTransaction(_ context.Context, tx domain.CreditTransaction) (*domain.CreditTransaction, error) {
	if strings.TrimSpace(tx.StoreID) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = xid.New("ctx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.creditTransactions = append(s.creditTransactions, tx)
	copyTx := tx
	return &copyTx, nil
}

func (s *Store) ListCreditTransactions(_ context.Context, storeID string, from time.Time, to time.Time) ([]domain.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CreditTransaction, 0, 16)
	for _, tx := range s.creditTransactions {
		if tx.StoreID == storeID && inWindow(tx.CreatedAt, from, to) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (s *Store) CreateSupplierPayment(_ context.Context, payment domain.SupplierPayment) (*domain.SupplierPayment, error) {
	if strings.TrimSpace(payment.StoreID) == "" || strings.TrimSpace(payment.PaymentDate) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.ID == "" {
		payment.ID = xid.New("spay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	s.supplierPayments = append(s.supplierPayments, payment)
	copyPayment := payment
	return &copyPayment, nil
}

func (s *Store) ListSupplierPayments(_ context.Context, storeID string, paymentDate string) ([]domain.SupplierPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SupplierPayment, 0, 8)
	for _, payment := range s.supplierPayments {
		if payment.StoreID == storeID && payment.PaymentDate == paymentDate {
			result = append(result, payment)
		}
	}
	return result, nil
}

func (s *Store) CreateCashMovement(_ context.Context, movement domain.CashMovement) (*domain.CashMovement, error) {
	if strings.TrimSpace(movement.StoreID) == "" || strings.TrimSpace(movement.DayID) == "" || strings.TrimSpace(movement.Kind) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.daysByID[movement.DayID]
	if !ok || !day.IsActive() || day.StoreID != movement.StoreID {
		return nil, store.ErrConflict
	}
	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.OccurredAt.IsZero() {
		movement.OccurredAt = time.Now().UTC()
	}
	s.cashMovements = append(s.cashMovements, movement)
	copyMovement := movement
	return &copyMovement, nil
}

func (s *Store) ListCashMovements(_ context.Context, dayID string) ([]domain.CashMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CashMovement, 0, 8)
	for _, movement := range s.cashMovements {
		if movement.DayID == dayID {
			result = append(result, movement)
		}
	}
	return result, nil
}

func (s *Store) ListVATConfigs(_ context.Context, storeID string) ([]domain.VATConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.VATConfiguration, 0, len(s.vatConfigsByID))
	for _, cfg := range s.vatConfigsByID {
		if cfg.StoreID == storeID {
			result = append(result, cfg)
		}
	}
	slices.SortFunc(result, func(a, b domain.VATConfiguration) int {
		return strings.Compare(a.Category, b.Category)
	})
	return result, nil
}

// UpsertVATConfig keys configurations by store and case-folded category.
func (s *Store) UpsertVATConfig(_ context.Context, cfg domain.VATConfiguration) (*domain.VATConfiguration, error) {
	cfg.Category = strings.TrimSpace(cfg.Category)
	if strings.TrimSpace(cfg.StoreID) == "" || cfg.Category == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.vatConfigsByID {
		if existing.StoreID == cfg.StoreID && strings.EqualFold(existing.Category, cfg.Category) {
			cfg.ID = id
			break
		}
	}
	if cfg.ID == "" {
		cfg.ID = xid.New("vat")
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}
	s.vatConfigsByID[cfg.ID] = cfg
	copyCfg := cfg
	return &copyCfg, nil
}

func (s *Store) GetStoreSettings(_ context.Context, storeID string) (*domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, exists := s.settingsByStore[storeID]
	if !exists {
		return nil, store.ErrNotFound
	}
	settings.DefaultVATRate = clonePtr(settings.DefaultVATRate)
	return &settings, nil
}

func (s *Store) UpsertStoreSettings(_ context.Context, settings domain.StoreSettings) (*domain.StoreSettings, error) {
	if strings.TrimSpace(settings.StoreID) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}
	settings.DefaultVATRate = clonePtr(settings.DefaultVATRate)
	s.settingsByStore[settings.StoreID] = settings
	copySettings := settings
	copySettings.DefaultVATRate = clonePtr(settings.DefaultVATRate)
	return &copySettings, nil
}

func (s *Store) CreatePromotion(_ context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if strings.TrimSpace(promo.Name) == "" || strings.TrimSpace(promo.StoreID) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if promo.ID == "" {
		promo.ID = xid.New("promo")
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}
	s.promotionsByID[promo.ID] = promo
	copyPromo := promo
	return &copyPromo, nil
}

func (s *Store) GetPromotion(_ context.Context, id string) (*domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	promo, exists := s.promotionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &promo, nil
}

func (s *Store) ListPromotions(_ context.Context, storeID string, activeOnly bool) ([]domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Promotion, 0, len(s.promotionsByID))
	for _, promo := range s.promotionsByID {
		if storeID != "" && promo.StoreID != storeID {
			continue
		}
		if activeOnly && !promo.Active {
			continue
		}
		result = append(result, promo)
	}
	slices.SortFunc(result, func(a, b domain.Promotion) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		if !inWindow(entry.CreatedAt, from, to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalid
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalid
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// inWindow treats a zero bound as open.
func inWindow(t time.Time, from time.Time, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func appendNote(history string, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return history
	}
	if history == "" {
		return note
	}
	return history + "\n" + note
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func clonePtr(p *decimal.Decimal) *decimal.Decimal {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneDay(src domain.DayOperation) *domain.DayOperation {
	out := src
	out.ClosingCash = clonePtr(src.ClosingCash)
	out.ActualBank = clonePtr(src.ActualBank)
	out.ExpectedCash = clonePtr(src.ExpectedCash)
	out.ExpectedBank = clonePtr(src.ExpectedBank)
	out.CashVariance = clonePtr(src.CashVariance)
	out.BankVariance = clonePtr(src.BankVariance)
	if src.ClosedAt != nil {
		t := *src.ClosedAt
		out.ClosedAt = &t
	}
	if src.ReopenedAt != nil {
		t := *src.ReopenedAt
		out.ReopenedAt = &t
	}
	return &out
}
