package eligibility

import (
	"context"
	"fmt"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/services"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Matrimonial allows a pairing once an interest between the two parties has
// been accepted, in either direction. contextRef optionally pins the
// interest id.
type Matrimonial struct {
	db *gorm.DB
}

func NewMatrimonial(db *gorm.DB) *Matrimonial {
	return &Matrimonial{db: db}
}

func (m *Matrimonial) Check(ctx context.Context, contextRef string, partyA, partyB uuid.UUID) (services.EligibilityDecision, error) {
	q := m.db.WithContext(ctx).
		Table("interests").
		Where("status = ?", "accepted").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", partyA, partyB, partyB, partyA)
	if contextRef != "" {
		q = q.Where("id = ?", contextRef)
	}
	ok, err := exists(q)
	if err != nil {
		return services.EligibilityDecision{}, err
	}
	if !ok {
		return services.Deny("no accepted interest between the parties"), nil
	}
	return services.Allow(), nil
}

// Job allows the employer and the applicant to talk once the referenced
// application is shortlisted.
type Job struct {
	db *gorm.DB
}

func NewJob(db *gorm.DB) *Job {
	return &Job{db: db}
}

func (j *Job) Check(ctx context.Context, contextRef string, partyA, partyB uuid.UUID) (services.EligibilityDecision, error) {
	if contextRef == "" {
		return services.Deny("a job application reference is required"), nil
	}
	q := j.db.WithContext(ctx).
		Table("job_applications AS a").
		Joins("JOIN jobs AS j ON j.id = a.job_id").
		Where("a.id = ? AND a.status = ?", contextRef, "shortlisted").
		Where("(a.applicant_id = ? AND j.employer_id = ?) OR (a.applicant_id = ? AND j.employer_id = ?)", partyA, partyB, partyB, partyA)
	ok, err := exists(q)
	if err != nil {
		return services.EligibilityDecision{}, err
	}
	if !ok {
		return services.Deny("job application is not shortlisted"), nil
	}
	return services.Allow(), nil
}

// Business allows the inquirer and the business owner to talk while the
// referenced inquiry is open.
type Business struct {
	db *gorm.DB
}

func NewBusiness(db *gorm.DB) *Business {
	return &Business{db: db}
}

func (b *Business) Check(ctx context.Context, contextRef string, partyA, partyB uuid.UUID) (services.EligibilityDecision, error) {
	if contextRef == "" {
		return services.Deny("a business inquiry reference is required"), nil
	}
	q := b.db.WithContext(ctx).
		Table("business_inquiries AS i").
		Joins("JOIN businesses AS b ON b.id = i.business_id").
		Where("i.id = ? AND i.status = ?", contextRef, "open").
		Where("(i.inquirer_id = ? AND b.owner_id = ?) OR (i.inquirer_id = ? AND b.owner_id = ?)", partyA, partyB, partyB, partyA)
	ok, err := exists(q)
	if err != nil {
		return services.EligibilityDecision{}, err
	}
	if !ok {
		return services.Deny("business inquiry is not open"), nil
	}
	return services.Allow(), nil
}

// NewGormRouter wires the three module checkers against db.
func NewGormRouter(db *gorm.DB) *Router {
	return NewRouter().
		Register(conversation.ContextMatrimonial, NewMatrimonial(db)).
		Register(conversation.ContextJob, NewJob(db)).
		Register(conversation.ContextBusiness, NewBusiness(db))
}

func exists(q *gorm.DB) (bool, error) {
	var count int64
	if err := q.Limit(1).Count(&count).Error; err != nil {
		return false, fmt.Errorf("eligibility lookup: %w: %v", sentinal_errors.ErrInternal, err)
	}
	return count > 0, nil
}
