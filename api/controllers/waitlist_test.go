package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/wecr8/damp-backend/internal/waitlist"
)

type stubWaitlist struct {
	result *waitlist.Result
	count  int64
	err    error
	got    waitlist.SaveInput
}

func (s *stubWaitlist) Save(_ context.Context, in waitlist.SaveInput) (*waitlist.Result, error) {
	s.got = in
	return s.result, s.err
}

func (s *stubWaitlist) Count(context.Context) (int64, error) {
	return s.count, s.err
}

func TestWaitlistJoinStatusCodes(t *testing.T) {
	stub := &stubWaitlist{result: &waitlist.Result{Entry: &waitlist.Entry{Email: "fan@example.com"}, Count: 12}}
	rec := serve(t, http.MethodPost, "/api/v1/waitlist", "/api/v1/waitlist",
		`{"email":"Fan@Example.com","name":"  Fan  ","source":"footer"}`, WaitlistJoin(stub, nil),
		withHeader("X-Forwarded-For", "203.0.113.9"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if stub.got.Name != "Fan" || stub.got.IP != "203.0.113.9" || stub.got.Source != "footer" {
		t.Fatalf("unexpected save input %+v", stub.got)
	}

	stub.result = &waitlist.Result{Count: 12, AlreadyExists: true}
	rec = serve(t, http.MethodPost, "/api/v1/waitlist", "/api/v1/waitlist", `{"email":"fan@example.com"}`, WaitlistJoin(stub, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate got %d", rec.Code)
	}
	if got := decodeData[waitlist.Result](t, rec); !got.AlreadyExists || got.Count != 12 {
		t.Fatalf("unexpected duplicate result %+v", got)
	}
}

func TestWaitlistJoinValidation(t *testing.T) {
	stub := &stubWaitlist{err: waitlist.ErrInvalidEmail}
	rec := serve(t, http.MethodPost, "/api/v1/waitlist", "/api/v1/waitlist", `{"email":"not-an-email"}`, WaitlistJoin(stub, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	rec = serve(t, http.MethodPost, "/api/v1/waitlist", "/api/v1/waitlist", `{}`, WaitlistJoin(&stubWaitlist{}, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email got %d", rec.Code)
	}
}

func TestWaitlistCountDegradesToZero(t *testing.T) {
	rec := serve(t, http.MethodGet, "/api/v1/waitlist/count", "/api/v1/waitlist/count", "", WaitlistCount(&stubWaitlist{count: 42}, nil))
	if got := decodeData[map[string]int64](t, rec)["count"]; got != 42 {
		t.Fatalf("expected 42 got %d", got)
	}

	rec = serve(t, http.MethodGet, "/api/v1/waitlist/count", "/api/v1/waitlist/count", "", WaitlistCount(&stubWaitlist{err: errors.New("gcs down")}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on storage failure, got %d", rec.Code)
	}
	if got := decodeData[map[string]int64](t, rec)["count"]; got != 0 {
		t.Fatalf("expected 0 on failure got %d", got)
	}
}
