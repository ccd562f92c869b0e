package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

// AccessValidator holds the rules deciding whether a link may be used or changed
type AccessValidator struct {
	repo ports.LinkRepository
}

func NewAccessValidator(repo ports.LinkRepository) *AccessValidator {
	return &AccessValidator{repo: repo}
}

// ValidateAccess checks expiry before the use limit.
func (v *AccessValidator) ValidateAccess(link *domain.Link, now time.Time) error {
	if link.IsExpired(now) {
		return fmt.Errorf("%w: link '%s' lifetime of %d h is over", domain.ErrExpired, link.Code, link.TTLHours)
	}
	if link.LimitReached() {
		return fmt.Errorf("%w: link '%s' has used all %d redirects", domain.ErrLimitExceeded, link.Code, link.UseLimit)
	}
	return nil
}

func (v *AccessValidator) CheckOwnership(link *domain.Link, requesterID string) error {
	if link.OwnerID != requesterID {
		return fmt.Errorf("%w: user %s does not own link '%s'", domain.ErrForbidden, requesterID, link.Code)
	}
	return nil
}

// ValidateUpdate reports every proposed value that conflicts with the time
// already elapsed or the uses already consumed.
func (v *AccessValidator) ValidateUpdate(link *domain.Link, ttlHours, useLimit *int, now time.Time) error {
	var violations []domain.FieldViolation

	if ttlHours != nil {
		if elapsed := link.HoursElapsed(now); *ttlHours < elapsed {
			violations = append(violations, domain.FieldViolation{
				Field:   "ttl_hours",
				Message: fmt.Sprintf("ttl_hours cannot be less than the %d h already elapsed since creation", elapsed),
			})
		}
	}

	if useLimit != nil && *useLimit < link.UseCount {
		violations = append(violations, domain.FieldViolation{
			Field:   "use_limit",
			Message: fmt.Sprintf("use_limit cannot be less than the current use count (%d)", link.UseCount),
		})
	}

	return domain.NewValidationError(domain.ErrInvalidUpdate, violations)
}

func (v *AccessValidator) CheckUniqueTargetForOwner(ctx context.Context, ownerID, target string) error {
	exists, err := v.repo.ExistsActiveTargetForOwner(ctx, ownerID, target)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: user %s already has an active link to %s", domain.ErrConflict, ownerID, target)
	}
	return nil
}
