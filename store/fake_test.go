package store

import (
	"context"
	"sync"

	"gatedesk/models"
)

type result struct {
	guests []models.RawGuest
	guards []models.Guard
	err    error
}

type call struct {
	kind  Kind
	reply chan result
}

// fakeTransport answers from canned results, or hands every call to the test when gated.
type fakeTransport struct {
	mu      sync.Mutex
	results map[Kind]result
	log     []Kind

	gated bool
	calls chan call

	checkIns []string
	receipt  models.CheckInReceipt
	checkErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{results: make(map[Kind]result), calls: make(chan call)}
}

func (f *fakeTransport) set(kind Kind, r result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[kind] = r
}

func (f *fakeTransport) issued() []Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Kind(nil), f.log...)
}

func (f *fakeTransport) answer(ctx context.Context, kind Kind) result {
	f.mu.Lock()
	f.log = append(f.log, kind)
	gated := f.gated
	r := f.results[kind]
	f.mu.Unlock()

	if !gated {
		return r
	}
	c := call{kind: kind, reply: make(chan result, 1)}
	select {
	case f.calls <- c:
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
	select {
	case r := <-c.reply:
		return r
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
}

func (f *fakeTransport) FetchAllGuests(ctx context.Context) ([]models.RawGuest, error) {
	r := f.answer(ctx, KindAll)
	return r.guests, r.err
}

func (f *fakeTransport) FetchPendingGuests(ctx context.Context) ([]models.RawGuest, error) {
	r := f.answer(ctx, KindPending)
	return r.guests, r.err
}

func (f *fakeTransport) FetchArrivedGuests(ctx context.Context) ([]models.RawGuest, error) {
	r := f.answer(ctx, KindArrived)
	return r.guests, r.err
}

func (f *fakeTransport) FetchAllGuards(ctx context.Context) ([]models.Guard, error) {
	r := f.answer(ctx, KindGuards)
	return r.guards, r.err
}

func (f *fakeTransport) SubmitCheckIn(_ context.Context, guestCode, guardCode string) (models.CheckInReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkIns = append(f.checkIns, guestCode+"/"+guardCode)
	return f.receipt, f.checkErr
}

type fakeSession struct {
	id models.Identity
	ok bool
}

func (s fakeSession) Current(context.Context) (models.Identity, bool) {
	return s.id, s.ok
}
