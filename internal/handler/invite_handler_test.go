package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/lendbridge/internal/invite"
	"github.com/hitoshi/lendbridge/internal/model"
)

func TestInviteHandler_CreateInvite_Success(t *testing.T) {
	var gotUser string
	var gotReq invite.Request
	svc := &mockInviteService{
		inviteFn: func(ctx context.Context, userID string, req invite.Request) (*invite.Result, error) {
			gotUser, gotReq = userID, req
			return &invite.Result{Success: true, Message: "Invitation sent", InviteID: "inv-1"}, nil
		},
	}
	h := NewInviteHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/lender/invites",
		strings.NewReader(`{"email":"borrower@example.com","first_name":"Ann","last_name":"Lee","message":"Hi"}`))
	w := httptest.NewRecorder()
	h.CreateInvite(w, withUser(req, "user-lender"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUser != "user-lender" || gotReq.Email != "borrower@example.com" || gotReq.FirstName != "Ann" {
		t.Errorf("called with (%q, %+v)", gotUser, gotReq)
	}
	var body invite.Result
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !body.Success || body.InviteID != "inv-1" {
		t.Errorf("body = %+v", body)
	}
}

func TestInviteHandler_CreateInvite_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"invalid email", `{"email":"nope"}`, model.NewInvalidEmailError("nope"), http.StatusBadRequest},
		{"no lender row", `{"email":"a@example.com"}`, model.NewLenderNotFoundError(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockInviteService{
				inviteFn: func(ctx context.Context, userID string, req invite.Request) (*invite.Result, error) {
					return nil, tt.err
				},
			}
			h := NewInviteHandler(svc, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/lender/invites", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.CreateInvite(w, withUser(req, "user-lender"))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
