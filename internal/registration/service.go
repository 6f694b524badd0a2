package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"registration/internal/metrics"
	"registration/internal/queue"
)

// Lifecycle event types published on the queue.
const (
	EventCreated       = "registration.created"
	EventStatusChanged = "registration.status_changed"
)

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service turns validated submissions into stored registrations and
// manages their status afterwards.
type Service struct {
	store  Store
	files  FileStore
	ids    IDGenerator
	events Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a service. ids defaults to random UUIDs; events may be nil.
func NewService(store Store, files FileStore, ids IDGenerator, events Publisher, logger *slog.Logger) *Service {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		files:  files,
		ids:    ids,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Register stores the payment screenshot and persists a new pending
// registration. If the insert fails the stored file is removed best-effort.
func (s *Service) Register(ctx context.Context, in NewRegistration) (Registration, error) {
	if in.Attachment == nil {
		return Registration{}, Invalid(ErrAttachmentMissing, MsgAttachmentMissing)
	}
	if in.TeamSize < MinTeamSize || in.TeamSize > MaxTeamSize {
		return Registration{}, Invalid(ErrTeamSizeRange, MsgTeamSizeRange)
	}
	if len(in.Participants) < in.TeamSize {
		return Registration{}, Invalid(ErrParticipantCount, MsgParticipantCount)
	}
	participants := make([]Participant, in.TeamSize)
	copy(participants, in.Participants[:in.TeamSize])

	id, err := s.ids.NextID(ctx)
	if err != nil {
		return Registration{}, fmt.Errorf("assign registration id: %w", err)
	}

	proof, err := s.files.Save(ctx, in.Attachment)
	if err != nil {
		return Registration{}, fmt.Errorf("store payment screenshot: %w", err)
	}

	now := s.now().UTC()
	reg := Registration{
		ID:                id,
		TeamName:          in.TeamName,
		TeamSize:          in.TeamSize,
		Participants:      participants,
		PortfolioURL:      in.PortfolioURL,
		PaymentScreenshot: proof,
		EntryFee:          EntryFeeFor(in.TeamSize),
		RegistrationDate:  now,
		Status:            StatusPending,
		EmailSent:         false,
		UpdatedAt:         now,
	}

	if err := s.store.Insert(ctx, &reg); err != nil {
		if derr := s.files.Delete(ctx, proof); derr != nil {
			s.logger.Warn("orphaned payment screenshot",
				slog.String("filename", proof.Filename), slog.Any("error", derr))
		}
		return Registration{}, fmt.Errorf("insert registration: %w", err)
	}

	metrics.RegistrationsCreated.Inc()
	s.logger.Info("registration created",
		slog.String("id", reg.ID), slog.String("team", reg.TeamName), slog.Int("entry_fee", reg.EntryFee))
	s.publish(ctx, EventCreated, reg.ID)
	return reg, nil
}

// List returns all registrations in store order.
func (s *Service) List(ctx context.Context) ([]Registration, error) {
	regs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if regs == nil {
		regs = []Registration{}
	}
	return regs, nil
}

// Get returns the registration with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Registration, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// UpdateStatus sets a new review status. Unknown statuses are rejected
// before the store is touched.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*Registration, error) {
	st, ok := ParseStatus(strings.TrimSpace(status))
	if !ok {
		return nil, Invalid(ErrInvalidStatus, MsgInvalidStatus)
	}
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}

	reg, err := s.store.UpdateStatus(ctx, id, st, s.now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.StatusUpdates.WithLabelValues(string(st)).Inc()
	s.logger.Info("registration status updated", slog.String("id", id), slog.String("status", string(st)))
	s.publish(ctx, EventStatusChanged, id)
	return reg, nil
}

// PaymentAttachment returns the payment proof of a registration whose
// bytes are stored inline.
func (s *Service) PaymentAttachment(ctx context.Context, id string) (PaymentProof, error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return PaymentProof{}, err
	}
	proof := reg.PaymentScreenshot
	if !proof.Inline || len(proof.Data) == 0 {
		return PaymentProof{}, ErrNoInlineAttachment
	}
	return proof, nil
}

// StoreInfo reports which backend is active.
func (s *Service) StoreInfo() StoreInfo {
	return s.store.Info()
}

// Ping checks the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, eventType, id string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, queue.Message{Type: eventType, Body: []byte(id)}); err != nil {
		s.logger.Warn("queue publish failed", slog.String("type", eventType), slog.String("id", id), slog.Any("error", err))
	}
}
