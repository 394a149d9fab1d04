package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"kasirharian/backend/internal/apperror"
	"kasirharian/backend/internal/cache"
	"kasirharian/backend/internal/domain"
	"kasirharian/backend/internal/lock"
	"kasirharian/backend/internal/logger"
	"kasirharian/backend/internal/reconcile"
	"kasirharian/backend/internal/store"
	"kasirharian/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	DefaultStoreID   string
	Location         *time.Location
	Locker           lock.Locker
	VATCache         cache.VATContextCache
	VATCacheTTL      time.Duration
	OpeningThreshold reconcile.OpeningThreshold
	Logger           *logger.Logger
	Now              func() time.Time
}

type Service struct {
	repo           store.Repository
	locker         lock.Locker
	vatCache       cache.VATContextCache
	vatCacheTTL    time.Duration
	threshold      reconcile.OpeningThreshold
	location       *time.Location
	defaultStoreID string
	log            *logger.Logger
	now            func() time.Time

	vatMu  sync.Mutex
	vatGen map[string]uint64
}

func New(repo store.Repository, opts Options) *Service {
	if opts.DefaultStoreID == "" {
		opts.DefaultStoreID = "main-store"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	if opts.VATCache == nil {
		opts.VATCache = cache.NoopVATContextCache{}
	}
	if opts.VATCacheTTL <= 0 {
		opts.VATCacheTTL = 5 * time.Minute
	}
	if opts.OpeningThreshold.Absolute.IsZero() && opts.OpeningThreshold.Percent.IsZero() {
		opts.OpeningThreshold = reconcile.DefaultOpeningThreshold()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:           repo,
		locker:         opts.Locker,
		vatCache:       opts.VATCache,
		vatCacheTTL:    opts.VATCacheTTL,
		threshold:      opts.OpeningThreshold,
		location:       opts.Location,
		defaultStoreID: opts.DefaultStoreID,
		log:            opts.Logger.WithComponent("service"),
		now:            opts.Now,
		vatGen:         make(map[string]uint64),
	}
}

func (s *Service) DefaultStoreID() string {
	return s.defaultStoreID
}

// logFor prefers the request-scoped logger so actor fields follow the call.
func (s *Service) logFor(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, s.log)
}

func (s *Service) requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || strings.TrimSpace(actor.Username) == "" {
		return domain.Actor{}, apperror.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func (s *Service) requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleAdmin {
		return domain.Actor{}, apperror.NewForbidden("admin role required")
	}
	return actor, nil
}

func (s *Service) storeOrDefault(storeID string) string {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return s.defaultStoreID
	}
	return storeID
}

// today is the business date in the store's timezone.
func (s *Service) today() string {
	return s.now().In(s.location).Format(domain.DateLayout)
}

// businessDate validates raw, defaulting to today.
func (s *Service) businessDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.today(), nil
	}
	parsed, err := time.ParseInLocation(domain.DateLayout, raw, s.location)
	if err != nil {
		return "", apperror.NewValidation("business date must be YYYY-MM-DD").WithDetail("business_date", raw)
	}
	return parsed.Format(domain.DateLayout), nil
}

// dayWindow returns the [from, to) instants that make up a business date.
func (s *Service) dayWindow(businessDate string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(domain.DateLayout, businessDate, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.NewValidation("business date must be YYYY-MM-DD")
	}
	return start.UTC(), start.AddDate(0, 0, 1).UTC(), nil
}

func (s *Service) withStoreLock(ctx context.Context, storeID string, fn func() error) error {
	release, err := s.locker.Acquire(ctx, "day:"+storeID)
	if err != nil {
		return apperror.NewConflict("another day transition is in progress for this store").WithCause(err)
	}
	defer release()
	return fn()
}

// mapStoreError converts repository sentinels into the service taxonomy.
func mapStoreError(err error, entity string, id string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperror.NewNotFound(entity, id)
	case errors.Is(err, store.ErrConflict):
		return apperror.NewConflict(fmt.Sprintf("%s state conflict", entity)).WithCause(err)
	case errors.Is(err, store.ErrInvalid):
		return apperror.NewValidation(fmt.Sprintf("invalid %s", entity)).WithCause(err)
	default:
		return apperror.NewInternal(fmt.Errorf("%s: %w", entity, err))
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, storeID string, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	storeID = s.storeOrDefault(storeID)
	if limit < 1 {
		limit = 100
	}

	businessDate, err := s.businessDate(date)
	if err != nil {
		return nil, err
	}
	from, to, err := s.dayWindow(businessDate)
	if err != nil {
		return nil, err
	}

	logs, err := s.repo.ListAuditLogs(ctx, storeID, from, to, limit)
	if err != nil {
		return nil, mapStoreError(err, "audit_log", storeID)
	}
	return logs, nil
}

// logAudit never fails the caller; a lost audit entry is logged instead.
func (s *Service) logAudit(ctx context.Context, storeID string, action string, entityType string, entityID string, detail string) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		StoreID:       storeID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		s.logFor(ctx).Warnw("failed to write audit log", "action", action, "entity_type", entityType, "entity_id", entityID, "error", err)
	}
}
