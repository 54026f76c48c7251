//go:build unit

package commands_test

import (
	"context"
	"sort"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/domain/resource"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/infra/db"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/queries"
	"reservation-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the Postgres layer. It applies the
// same filter semantics as the SQL repositories (inclusive date overlap,
// soft-delete exclusion, earliest-start ordering) so command tests exercise
// real engine behavior without a database.
type memStore struct {
	requests      map[uuid.UUID]*request.ReservationRequest
	resources     map[uuid.UUID]*resource.Resource
	notifications []notificationJob
}

type notificationJob struct {
	Kind    string
	Topic   string
	Payload []byte
}

func newMemStore() *memStore {
	return &memStore{
		requests:  make(map[uuid.UUID]*request.ReservationRequest),
		resources: make(map[uuid.UUID]*resource.Resource),
	}
}

func (s *memStore) addResource(res *resource.Resource) {
	s.resources[res.ID()] = res
}

func (s *memStore) addRequest(req *request.ReservationRequest) {
	s.requests[req.ID()] = req
}

func (s *memStore) jobsByTopic(topic string) []notificationJob {
	var out []notificationJob
	for _, j := range s.notifications {
		if j.Topic == topic {
			out = append(out, j)
		}
	}
	return out
}

// memUoW runs the transactional closure directly against the store; there is
// no rollback, which is fine for tests that assert on the error path output
// rather than persisted state after failures.
type memUoW struct {
	store *memStore
}

func newMemUoW(store *memStore) shared.UnitOfWork {
	return &memUoW{store: store}
}

func (u *memUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, &memTx{store: u.store})
}

func (u *memUoW) WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error {
	return fn(ctx, nil)
}

type memTx struct {
	store *memStore
}

func (t *memTx) Requests() shared.RequestRepository          { return &memRequestRepo{store: t.store} }
func (t *memTx) Resources() shared.ResourceRepository        { return &memResourceRepo{store: t.store} }
func (t *memTx) Notifications() shared.NotificationRepository { return &memNotificationRepo{store: t.store} }
func (t *memTx) DB() db.DBTX                                  { return nil }

type memRequestRepo struct {
	store *memStore
}

func (r *memRequestRepo) Create(_ context.Context, _ db.DBTX, req *request.ReservationRequest) (uuid.UUID, error) {
	r.store.requests[req.ID()] = req
	return req.ID(), nil
}

func (r *memRequestRepo) Update(_ context.Context, _ db.DBTX, req *request.ReservationRequest) error {
	if _, ok := r.store.requests[req.ID()]; !ok {
		return notFoundErr()
	}
	r.store.requests[req.ID()] = req
	return nil
}

func (r *memRequestRepo) FindByID(_ context.Context, _ db.DBTX, id uuid.UUID) (*request.ReservationRequest, error) {
	req, ok := r.store.requests[id]
	if !ok || req.IsDeleted() {
		return nil, notFoundErr()
	}
	return req, nil
}

func (r *memRequestRepo) FindByIDForUpdate(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*request.ReservationRequest, error) {
	return r.FindByID(ctx, dbtx, id)
}

func (r *memRequestRepo) FirstOverlapping(
	_ context.Context, _ db.DBTX,
	resourceID uuid.UUID, start, end time.Time,
	excluding uuid.UUID, statuses []request.Status,
) (*shared.ConflictSnapshot, error) {
	window, err := request.NewSchedule(start, end)
	if err != nil {
		return nil, err
	}

	var candidates []*request.ReservationRequest
	for _, req := range r.store.requests {
		if req.ID() == excluding || req.IsDeleted() {
			continue
		}
		if req.ResourceID() == nil || *req.ResourceID() != resourceID || req.Schedule() == nil {
			continue
		}
		if !statusIn(req.Status(), statuses) {
			continue
		}
		if req.Schedule().Overlaps(window) {
			candidates = append(candidates, req)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Schedule().Start().Before(candidates[j].Schedule().Start())
	})

	first := candidates[0]
	return &shared.ConflictSnapshot{
		RequestID:   first.ID(),
		RequestedBy: first.RequestedBy(),
		Status:      first.Status(),
		StartDate:   first.Schedule().Start(),
		EndDate:     first.Schedule().End(),
	}, nil
}

func (r *memRequestRepo) CountEarlierPending(
	_ context.Context, _ db.DBTX,
	resourceID uuid.UUID, start, end time.Time,
	createdAt time.Time, excluding uuid.UUID,
) (int, error) {
	window, err := request.NewSchedule(start, end)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, req := range r.store.requests {
		if req.ID() == excluding || req.IsDeleted() {
			continue
		}
		if req.Status() != request.StatusPending {
			continue
		}
		if req.ResourceID() == nil || *req.ResourceID() != resourceID || req.Schedule() == nil {
			continue
		}
		if !req.Schedule().Overlaps(window) {
			continue
		}
		if req.CreatedAt().Before(createdAt) {
			count++
		}
	}
	return count, nil
}

func (r *memRequestRepo) FindExpiredHolding(_ context.Context, _ db.DBTX, today time.Time) ([]*request.ReservationRequest, error) {
	var out []*request.ReservationRequest
	for _, req := range r.store.requests {
		if req.IsDeleted() || !req.Status().IsHolding() {
			continue
		}
		if req.Schedule() != nil && req.Schedule().HasExpired(today) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *memRequestRepo) FindStartedAllocated(_ context.Context, _ db.DBTX, today time.Time) ([]*request.ReservationRequest, error) {
	var out []*request.ReservationRequest
	for _, req := range r.store.requests {
		if req.IsDeleted() || req.Status() != request.StatusAllocated {
			continue
		}
		if req.Schedule() != nil && req.Schedule().Covers(today) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *memRequestRepo) HasOtherHolding(_ context.Context, _ db.DBTX, resourceID uuid.UUID, excluding uuid.UUID) (bool, error) {
	for _, req := range r.store.requests {
		if req.ID() == excluding || req.IsDeleted() {
			continue
		}
		if req.ResourceID() == nil || *req.ResourceID() != resourceID {
			continue
		}
		if req.Status().IsHolding() {
			return true, nil
		}
	}
	return false, nil
}

type memResourceRepo struct {
	store *memStore
}

func (r *memResourceRepo) FindByID(_ context.Context, _ db.DBTX, id uuid.UUID) (*resource.Resource, error) {
	res, ok := r.store.resources[id]
	if !ok {
		return nil, notFoundErr()
	}
	return res, nil
}

func (r *memResourceRepo) FindByIDForUpdate(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*resource.Resource, error) {
	return r.FindByID(ctx, dbtx, id)
}

func (r *memResourceRepo) SetAvailability(_ context.Context, _ db.DBTX, res *resource.Resource) error {
	if _, ok := r.store.resources[res.ID()]; !ok {
		return notFoundErr()
	}
	r.store.resources[res.ID()] = res
	return nil
}

type memNotificationRepo struct {
	store *memStore
}

func (r *memNotificationRepo) CreateJob(_ context.Context, _ db.DBTX, kind, topic string, payload []byte, _ time.Time) error {
	r.store.notifications = append(r.store.notifications, notificationJob{
		Kind:    kind,
		Topic:   topic,
		Payload: payload,
	})
	return nil
}

// memQueries serves the read-after-write lookups commands finish with. Views
// carry just the fields command tests assert on.
type memQueries struct {
	store *memStore
}

func newMemQueries(store *memStore) queries.RequestQueries {
	return &memQueries{store: store}
}

func (q *memQueries) List(_ context.Context, _ queries.ListFilters) ([]*queries.RequestView, error) {
	var out []*queries.RequestView
	for id := range q.store.requests {
		v, err := q.GetByIDSystem(context.Background(), id)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (q *memQueries) GetByID(ctx context.Context, id uuid.UUID) (*queries.RequestView, error) {
	return q.GetByIDSystem(ctx, id)
}

func (q *memQueries) GetByIDSystem(_ context.Context, id uuid.UUID) (*queries.RequestView, error) {
	req, ok := q.store.requests[id]
	if !ok || req.IsDeleted() {
		return nil, notFoundErr()
	}

	view := &queries.RequestView{
		ID:          req.ID(),
		ResourceID:  req.ResourceID(),
		RequestType: req.RequestType(),
		Quantity:    req.Quantity(),
		Purpose:     req.Purpose(),
		Priority:    req.Priority().String(),
		Status:      req.Status().String(),
		RequestedBy: req.RequestedBy(),
		ApprovedBy:  req.ApprovedBy(),
		FulfilledBy: req.FulfilledBy(),
		CreatedAt:   req.CreatedAt(),
		UpdatedAt:   req.UpdatedAt(),
	}
	if req.Schedule() != nil {
		start := req.Schedule().Start()
		end := req.Schedule().End()
		duration := req.Schedule().DurationDays()
		view.StartDate = &start
		view.EndDate = &end
		view.DurationDays = &duration
	}
	return view, nil
}

func statusIn(s request.Status, set []request.Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func notFoundErr() error {
	return infra.WrapRepoErr("row not found", errs.New("no rows in result set"), infra.KindNotFound)
}
