package emailtest

import (
	"context"
	"sort"
	"sync"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/errs"
)

// Records is an in-memory MailRecordRepository.
type Records struct {
	mu      sync.Mutex
	records map[string]*emaildomain.MailRecord

	// UpdateErr fails UpdateClassification for the given message ids.
	UpdateErr map[string]error
}

func NewRecords(seed ...*emaildomain.MailRecord) *Records {
	r := &Records{records: make(map[string]*emaildomain.MailRecord)}
	for _, rec := range seed {
		_ = r.Upsert(context.Background(), rec)
	}
	return r
}

func key(ownerID, id string) string { return ownerID + "/" + id }

func (r *Records) Upsert(_ context.Context, rec *emaildomain.MailRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[key(rec.OwnerID, rec.ID)] = &cp
	return nil
}

// Get returns a copy of one record, or nil.
func (r *Records) Get(ownerID, id string) *emaildomain.MailRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key(ownerID, id)]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// ListByOwner orders by id so tests get a stable order.
func (r *Records) ListByOwner(_ context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*emaildomain.MailRecord
	for _, rec := range r.records {
		if rec.OwnerID == ownerID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Records) ListUnclassified(ctx context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error) {
	return r.filter(ctx, ownerID, limit, func(rec *emaildomain.MailRecord) bool {
		return rec.ClassifiedAt == nil
	})
}

func (r *Records) ListLinkCandidates(ctx context.Context, ownerID string, limit int) ([]*emaildomain.MailRecord, error) {
	return r.filter(ctx, ownerID, limit, func(rec *emaildomain.MailRecord) bool {
		return rec.ClassifiedAt != nil && rec.Company != "" && rec.ApplicationID == nil &&
			rec.Category != emaildomain.CategoryOther
	})
}

func (r *Records) filter(ctx context.Context, ownerID string, limit int, keep func(*emaildomain.MailRecord) bool) ([]*emaildomain.MailRecord, error) {
	all, _ := r.ListByOwner(ctx, ownerID, 0)
	var out []*emaildomain.MailRecord
	for _, rec := range all {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Records) UpdateClassification(_ context.Context, ownerID, id string, cls *emaildomain.Classification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.UpdateErr[id]; err != nil {
		return err
	}
	rec, ok := r.records[key(ownerID, id)]
	if !ok {
		return errs.ErrNotFound
	}
	now := time.Now()
	rec.Category = cls.Category
	rec.Company = cls.Company
	rec.Position = cls.Position
	rec.Confidence = cls.Confidence
	rec.ClassifiedAt = &now
	return nil
}

func (r *Records) SetApplication(_ context.Context, ownerID, id, applicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key(ownerID, id)]
	if !ok {
		return errs.ErrNotFound
	}
	rec.ApplicationID = &applicationID
	return nil
}
