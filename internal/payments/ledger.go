package payments

import (
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
	"github.com/wolfman30/clinic-scheduler/internal/store"
)

// Ledger owns payment records.
type Ledger struct {
	repo store.Repository[Payment]
}

// NewLedger wraps a repository. A nil repo gets an in-memory one.
func NewLedger(repo store.Repository[Payment]) *Ledger {
	if repo == nil {
		repo = store.NewMemory[Payment]()
	}
	return &Ledger{repo: repo}
}

// Create records a new pending payment.
func (l *Ledger) Create(p Payment) (Payment, error) {
	if p.ID == "" || p.ConsultationID == "" {
		return Payment{}, failure.New(failure.KindInvalidInput, "payment requires id and consultation")
	}
	if p.Method != "" && !p.Method.Valid() {
		return Payment{}, failure.New(failure.KindInvalidInput, "unknown payment method %q", p.Method)
	}
	if p.AmountCents < 0 {
		return Payment{}, failure.New(failure.KindInvalidInput, "payment amount must not be negative")
	}
	if _, exists := l.repo.Get(p.ID); exists {
		return Payment{}, failure.New(failure.KindIDCollision, "payment id %s already exists", p.ID)
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	l.repo.Put(p.ID, p)
	return p, nil
}

// Get looks a payment up by its own id.
func (l *Ledger) Get(id string) (Payment, bool) {
	return l.repo.Get(id)
}

// GetByConsultation returns the payment linked to consultationID.
func (l *Ledger) GetByConsultation(consultationID string) (Payment, bool) {
	for _, p := range l.repo.List() {
		if p.ConsultationID == consultationID {
			return p, true
		}
	}
	return Payment{}, false
}

// List returns every payment in insertion order.
func (l *Ledger) List() []Payment {
	return l.repo.List()
}

// MarkPaid settles a pending payment with method at the given instant.
func (l *Ledger) MarkPaid(id string, method Method, at time.Time) (Payment, error) {
	if !method.Valid() {
		return Payment{}, failure.New(failure.KindInvalidInput, "unknown payment method %q", method)
	}
	p, ok := l.repo.Get(id)
	if !ok {
		return Payment{}, failure.New(failure.KindNotFound, "payment %s not found", id)
	}
	if p.Status != StatusPending {
		return Payment{}, failure.New(failure.KindConflict, "payment %s is %s", id, p.Status)
	}
	p.Status = StatusPaid
	p.Method = method
	p.Date = at.Format("2006-01-02")
	p.Time = at.Format("15:04")
	l.repo.Put(id, p)
	return p, nil
}

// Cancel voids a pending payment.
func (l *Ledger) Cancel(id string) (Payment, error) {
	p, ok := l.repo.Get(id)
	if !ok {
		return Payment{}, failure.New(failure.KindNotFound, "payment %s not found", id)
	}
	if p.Status != StatusPending {
		return Payment{}, failure.New(failure.KindConflict, "payment %s is %s", id, p.Status)
	}
	p.Status = StatusCancelled
	l.repo.Put(id, p)
	return p, nil
}

// Restore writes back a previously read record. Used to undo a mutation.
func (l *Ledger) Restore(p Payment) {
	l.repo.Put(p.ID, p)
}

// Delete removes a payment. Only booking compensation calls this.
func (l *Ledger) Delete(id string) {
	l.repo.Delete(id)
}

// Len reports the number of stored payments.
func (l *Ledger) Len() int {
	return len(l.repo.List())
}
