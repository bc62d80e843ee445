// Package service registers candidate and user wallets over the ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pollbook/internal/audit"
	"pollbook/internal/ledger"
	"pollbook/internal/registry/models"
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
	"pollbook/pkg/platform/sentinel"
	"pollbook/pkg/requestcontext"
)

// DefaultKeyTTL matches the survey engine's lifetime extension.
const DefaultKeyTTL = 100 * 24 * time.Hour

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the candidate and user registries. A wallet registers at most
// once per registry; registration order is preserved in the wallet lists.
type Service struct {
	store          ledger.Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	registrations  *prometheus.CounterVec
	keyTTL         time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithMetrics registers the registration counter on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.registrations = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pollbook_registrations_total",
			Help: "Registration attempts by registry and outcome",
		}, []string{"kind", "outcome"})
	}
}

func WithKeyTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.keyTTL = ttl
		}
	}
}

func New(store ledger.Store, opts ...Option) *Service {
	s := &Service{store: store, keyTTL: DefaultKeyTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CandidateInput struct {
	Wallet id.Address
	Name   string
	RFC    string
}

type UserInput struct {
	Wallet           id.Address
	FirstName        string
	PaternalLastName string
	MaternalLastName string
	Phone            string
	Email            string
}

// registry describes where one kind of record lives in the ledger.
type registry struct {
	kind   models.Kind
	record func(id.Address) ledger.Key
	list   ledger.Key
	count  ledger.Key
	event  audit.EventType
}

var (
	candidates = registry{
		kind:   models.KindCandidate,
		record: ledger.CandidateKey,
		list:   ledger.CandidateListKey,
		count:  ledger.CandidateCountKey,
		event:  audit.EventCandidateRegistered,
	}
	users = registry{
		kind:   models.KindUser,
		record: ledger.UserKey,
		list:   ledger.UserListKey,
		count:  ledger.UserCountKey,
		event:  audit.EventUserRegistered,
	}
)

// RegisterCandidate stores the candidate unless the wallet is already
// registered, in which case it returns false and writes nothing.
func (s *Service) RegisterCandidate(ctx context.Context, in CandidateInput) (bool, error) {
	return register(ctx, s, candidates, in.Wallet, models.Candidate{
		Wallet:    in.Wallet,
		Name:      in.Name,
		RFC:       in.RFC,
		Timestamp: ledgerTime(ctx),
	})
}

func (s *Service) GetCandidate(ctx context.Context, wallet id.Address) (*models.Candidate, bool, error) {
	return get[models.Candidate](ctx, s, candidates, wallet)
}

func (s *Service) ListCandidates(ctx context.Context) ([]id.Address, error) {
	return s.list(ctx, candidates)
}

func (s *Service) CandidateCount(ctx context.Context) (uint64, error) {
	return s.count(ctx, candidates)
}

// RegisterUser stores the user unless the wallet is already registered.
func (s *Service) RegisterUser(ctx context.Context, in UserInput) (bool, error) {
	return register(ctx, s, users, in.Wallet, models.User{
		Wallet:           in.Wallet,
		FirstName:        in.FirstName,
		PaternalLastName: in.PaternalLastName,
		MaternalLastName: in.MaternalLastName,
		Phone:            in.Phone,
		Email:            in.Email,
		Timestamp:        ledgerTime(ctx),
	})
}

func (s *Service) GetUser(ctx context.Context, wallet id.Address) (*models.User, bool, error) {
	return get[models.User](ctx, s, users, wallet)
}

func (s *Service) ListUsers(ctx context.Context) ([]id.Address, error) {
	return s.list(ctx, users)
}

func (s *Service) UserCount(ctx context.Context) (uint64, error) {
	return s.count(ctx, users)
}

func register[T any](ctx context.Context, s *Service, reg registry, wallet id.Address, record T) (bool, error) {
	if wallet.IsNil() || requestcontext.Identity(ctx) != wallet {
		s.countRegistration(reg.kind, "unauthorized")
		return false, models.ErrUnauthorized
	}

	var created bool
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		created = false
		key := reg.record(wallet)
		exists, err := tx.Has(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := ledger.CreateJSON(ctx, tx, key, record); err != nil {
			return err
		}

		wallets, _, err := ledger.GetJSON[[]id.Address](ctx, tx, reg.list)
		if err != nil {
			return err
		}
		if err := ledger.PutJSON(ctx, tx, reg.list, append(wallets, wallet)); err != nil {
			return err
		}
		n, err := ledger.Uint64Or(ctx, tx, reg.count, 0)
		if err != nil {
			return err
		}
		if err := ledger.PutUint64(ctx, tx, reg.count, n+1); err != nil {
			return err
		}

		for _, k := range []ledger.Key{key, reg.list, reg.count} {
			if err := tx.Extend(ctx, k, s.keyTTL); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		// lost a race with a concurrent registration of the same wallet
		created, err = false, nil
	}
	if err != nil {
		s.countRegistration(reg.kind, "error")
		return false, translateStoreErr(err, "failed to register "+string(reg.kind))
	}
	if !created {
		s.countRegistration(reg.kind, "duplicate")
		return false, nil
	}

	s.countRegistration(reg.kind, "created")
	s.logAudit(ctx, audit.Event{Action: reg.event, Actor: wallet, Subject: wallet.String()},
		"kind", string(reg.kind), "wallet", wallet)
	return true, nil
}

func get[T any](ctx context.Context, s *Service, reg registry, wallet id.Address) (*T, bool, error) {
	record, found, err := ledger.GetJSON[T](ctx, s.store, reg.record(wallet))
	if err != nil {
		return nil, false, translateStoreErr(err, "failed to load "+string(reg.kind))
	}
	if !found {
		return nil, false, nil
	}
	return &record, true, nil
}

func (s *Service) list(ctx context.Context, reg registry) ([]id.Address, error) {
	wallets, _, err := ledger.GetJSON[[]id.Address](ctx, s.store, reg.list)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list "+string(reg.kind)+"s")
	}
	if wallets == nil {
		wallets = []id.Address{}
	}
	return wallets, nil
}

func (s *Service) count(ctx context.Context, reg registry) (uint64, error) {
	n, err := ledger.Uint64Or(ctx, s.store, reg.count, 0)
	if err != nil {
		return 0, translateStoreErr(err, "failed to count "+string(reg.kind)+"s")
	}
	return n, nil
}

func (s *Service) countRegistration(kind models.Kind, outcome string) {
	if s.registrations != nil {
		s.registrations.WithLabelValues(string(kind), outcome).Inc()
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.Event, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event.Action), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event.Action), "error", err)
	}
}

func ledgerTime(ctx context.Context) uint64 {
	sec := requestcontext.Now(ctx).Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec)
}

func translateStoreErr(err error, msg string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
