package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
)

// Submission outcomes reported to a SubmissionRecorder.
const (
	OutcomeCreated   = "created"
	OutcomeInvalid   = "invalid"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// SubmissionRecorder counts submissions by outcome.
type SubmissionRecorder interface {
	Submission(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Submission(string) {}

const tagAtLeastOne = "atleastone"

var validationReasons = map[string]string{
	"required":    "is required",
	"datetime":    "must be a calendar date (YYYY-MM-DD)",
	"oneof":       "must be one of: primary, secondary",
	tagAtLeastOne: "select at least one meal",
	"gte":         "must not be negative",
}

// Signup validates and writes new signups.
type Signup struct {
	store    model.SignupStore
	guard    *Guard
	profiles model.ProfileStore
	validate *validator.Validate
	recorder SubmissionRecorder
	logger   *logger.Logger
}

func NewSignup(
	store model.SignupStore,
	guard *Guard,
	profiles model.ProfileStore,
	recorder SubmissionRecorder,
	logger *logger.Logger,
) *Signup {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Signup{
		store:    store,
		guard:    guard,
		profiles: profiles,
		validate: newValidator(),
		recorder: recorder,
		logger:   logger,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		meals := sl.Current().Interface().(model.MealFlags)
		if !meals.Any() {
			sl.ReportError(meals, "meals", "Meals", tagAtLeastOne, "")
		}
	}, model.MealFlags{})
	return v
}

// Submit validates the candidate, rejects duplicates and creates the signup.
// On success exactly one store write has happened; on any rejection none.
func (s *Signup) Submit(ctx context.Context, identity model.Identity, candidate model.Candidate) (uuid.UUID, error) {
	if c, ok := model.ParseCategory(string(candidate.Category)); ok {
		candidate.Category = c
	}

	if err := s.check(candidate); err != nil {
		s.recorder.Submission(OutcomeInvalid)
		s.logger.Debug("Signup service: candidate rejected", "error", err.Error())
		return uuid.Nil, err
	}

	if s.guard.Exists(ctx, identity, candidate.Date, candidate.Category) {
		s.recorder.Submission(OutcomeDuplicate)
		s.logger.Info("Signup service: duplicate signup",
			"owner_id", identity.OwnerID,
			"date", candidate.Date,
			"category", candidate.Category)
		return uuid.Nil, model.ErrDuplicateSignup
	}

	signup := model.Signup{
		OwnerID:     identity.OwnerID,
		OwnerEmail:  identity.OwnerEmail,
		DisplayName: s.displayName(ctx, identity),
		Date:        candidate.Date,
		Categories:  model.NewCategorySet(candidate.Category),
		Meals:       candidate.Meals,
		Adults:      candidate.Adults,
		Children:    candidate.Children,
	}

	created, err := s.store.Create(context.WithoutCancel(ctx), signup)
	if err != nil {
		s.recorder.Submission(OutcomeFailed)
		s.logger.Error("Signup service: failed to create signup",
			"owner_id", identity.OwnerID,
			"error", err.Error())
		return uuid.Nil, fmt.Errorf("%w: create signup: %w", model.ErrStoreUnavailable, err)
	}

	s.recorder.Submission(OutcomeCreated)
	s.logger.Info("Signup service: signup created",
		"id", created.ID,
		"date", created.Date,
		"category", candidate.Category)

	return created.ID, nil
}

// check returns the first failing field as a *model.ValidationError.
func (s *Signup) check(candidate model.Candidate) error {
	err := s.validate.Struct(candidate)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", model.ErrValidation, err)
	}

	fe := fieldErrs[0]
	reason, ok := validationReasons[fe.Tag()]
	if !ok {
		reason = "is invalid"
	}
	return model.NewValidationError(fe.Field(), reason)
}

func (s *Signup) displayName(ctx context.Context, identity model.Identity) string {
	if identity.OwnerID == "" || s.profiles == nil {
		return ""
	}

	profile, err := s.profiles.GetByID(ctx, identity.OwnerID)
	if err != nil {
		s.logger.Warn("Signup service: writing signup without display name",
			"owner_id", identity.OwnerID,
			"error", fmt.Errorf("%w: %w", model.ErrProfileLookupFailed, err).Error())
		return ""
	}
	return displayName(profile)
}
