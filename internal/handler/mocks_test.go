package handler

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hitoshi/lendbridge/internal/auth"
	"github.com/hitoshi/lendbridge/internal/diagnostic"
	"github.com/hitoshi/lendbridge/internal/document"
	"github.com/hitoshi/lendbridge/internal/invite"
	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/profile"
	"github.com/hitoshi/lendbridge/internal/verification"
)

// --- サービスのモック定義 ---

type mockAuthService struct {
	exchangeTokenHashFn func(ctx context.Context, tokenHash, otpType string) (*model.TokenPair, error)
	acceptTokensFn      func(ctx context.Context, accessToken, refreshToken string) (*model.TokenPair, error)
	logoutFn            func(ctx context.Context, accessToken string) error
}

func (m *mockAuthService) ExchangeTokenHash(ctx context.Context, tokenHash, otpType string) (*model.TokenPair, error) {
	if m.exchangeTokenHashFn != nil {
		return m.exchangeTokenHashFn(ctx, tokenHash, otpType)
	}
	return nil, nil
}

func (m *mockAuthService) AcceptTokens(ctx context.Context, accessToken, refreshToken string) (*model.TokenPair, error) {
	if m.acceptTokensFn != nil {
		return m.acceptTokensFn(ctx, accessToken, refreshToken)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, accessToken string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, accessToken)
	}
	return nil
}

type mockRoleLister struct {
	rolesFn func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockRoleLister) Roles(ctx context.Context, userID string) ([]string, error) {
	if m.rolesFn != nil {
		return m.rolesFn(ctx, userID)
	}
	return nil, nil
}

type mockVerificationService struct {
	getStatusFn func(ctx context.Context, userID string) (*verification.Status, error)
}

func (m *mockVerificationService) GetStatus(ctx context.Context, userID string) (*verification.Status, error) {
	if m.getStatusFn != nil {
		return m.getStatusFn(ctx, userID)
	}
	return nil, nil
}

type mockDocumentService struct {
	uploadFn      func(ctx context.Context, req document.UploadRequest, uploadedBy string) (*model.BorrowerDocument, error)
	listForUserFn func(ctx context.Context, userID string) ([]*model.BorrowerDocument, error)
}

func (m *mockDocumentService) Upload(ctx context.Context, req document.UploadRequest, uploadedBy string) (*model.BorrowerDocument, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, req, uploadedBy)
	}
	return nil, nil
}

func (m *mockDocumentService) ListForUser(ctx context.Context, userID string) ([]*model.BorrowerDocument, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return nil, nil
}

type mockDiagnosticService struct {
	inspectAccountFn func(ctx context.Context, userID string) (*diagnostic.AccountReport, error)
}

func (m *mockDiagnosticService) InspectAccount(ctx context.Context, userID string) (*diagnostic.AccountReport, error) {
	if m.inspectAccountFn != nil {
		return m.inspectAccountFn(ctx, userID)
	}
	return &diagnostic.AccountReport{}, nil
}

type mockInviteService struct {
	inviteFn func(ctx context.Context, userID string, req invite.Request) (*invite.Result, error)
}

func (m *mockInviteService) Invite(ctx context.Context, userID string, req invite.Request) (*invite.Result, error) {
	if m.inviteFn != nil {
		return m.inviteFn(ctx, userID, req)
	}
	return &invite.Result{Success: true}, nil
}

type mockBillingService struct {
	createPortalSessionFn func(ctx context.Context, userID string) (string, error)
}

func (m *mockBillingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	if m.createPortalSessionFn != nil {
		return m.createPortalSessionFn(ctx, userID)
	}
	return "", nil
}

type mockProfileService struct {
	getOverviewFn       func(ctx context.Context, userID string) (*profile.Overview, error)
	getBorrowerFn       func(ctx context.Context, userID string) (*model.Borrower, error)
	getLenderOverviewFn func(ctx context.Context, userID string) (*profile.LenderOverview, error)
}

func (m *mockProfileService) GetOverview(ctx context.Context, userID string) (*profile.Overview, error) {
	if m.getOverviewFn != nil {
		return m.getOverviewFn(ctx, userID)
	}
	return &profile.Overview{Roles: []string{}}, nil
}

func (m *mockProfileService) GetBorrower(ctx context.Context, userID string) (*model.Borrower, error) {
	if m.getBorrowerFn != nil {
		return m.getBorrowerFn(ctx, userID)
	}
	return nil, model.NewBorrowerNotFoundError()
}

func (m *mockProfileService) GetLenderOverview(ctx context.Context, userID string) (*profile.LenderOverview, error) {
	if m.getLenderOverviewFn != nil {
		return m.getLenderOverviewFn(ctx, userID)
	}
	return &profile.LenderOverview{}, nil
}

type mockLendingService struct {
	lenderTierFn        func(ctx context.Context, userID string) (json.RawMessage, error)
	borrowerRiskScoreFn func(ctx context.Context, borrowerID string) (json.RawMessage, error)
	generateAgreementFn func(ctx context.Context, loanID, userID string) (json.RawMessage, error)
}

func (m *mockLendingService) LenderTier(ctx context.Context, userID string) (json.RawMessage, error) {
	if m.lenderTierFn != nil {
		return m.lenderTierFn(ctx, userID)
	}
	return json.RawMessage(`{"tier":"basic"}`), nil
}

func (m *mockLendingService) BorrowerRiskScore(ctx context.Context, borrowerID string) (json.RawMessage, error) {
	if m.borrowerRiskScoreFn != nil {
		return m.borrowerRiskScoreFn(ctx, borrowerID)
	}
	return json.RawMessage(`{"score":50}`), nil
}

func (m *mockLendingService) GenerateAgreement(ctx context.Context, loanID, userID string) (json.RawMessage, error) {
	if m.generateAgreementFn != nil {
		return m.generateAgreementFn(ctx, loanID, userID)
	}
	return json.RawMessage(`{"agreement_id":"agr-1"}`), nil
}

type mockHealthChecker struct {
	pingFn func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// --- 記録系のモック定義 ---

type mockFailureRecorder struct {
	mu         sync.Mutex
	operations []string
}

func (m *mockFailureRecorder) RecordBackendFailure(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(m.operations, operation)
}

type uploadRecord struct {
	result      string
	missingExif bool
}

type mockUploadRecorder struct {
	mu      sync.Mutex
	records []uploadRecord
}

func (m *mockUploadRecorder) RecordDocumentUpload(result string, missingExif bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, uploadRecord{result: result, missingExif: missingExif})
}

// --- ミドルウェア依存のモック定義 ---

// mockTokenResolver はアクセストークンとIdentityの対応表でセッションを解決する。
type mockTokenResolver struct {
	identities map[string]*model.Identity
}

func (m *mockTokenResolver) Resolve(ctx context.Context, creds auth.Credentials) (*auth.Resolution, error) {
	return &auth.Resolution{Identity: m.identities[creds.AccessToken]}, nil
}

// mockRoleTable はユーザーIDごとのロール表で判定する。
type mockRoleTable struct {
	roles map[string][]string
}

func (m *mockRoleTable) Allowed(ctx context.Context, userID string, required ...string) (bool, error) {
	for _, held := range m.roles[userID] {
		for _, want := range required {
			if held == want {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockRoleTable) Roles(ctx context.Context, userID string) ([]string, error) {
	return m.roles[userID], nil
}

// --- リポジトリのフェイク（実サービスを通す結合テスト用） ---

type fakeBorrowerRepo struct {
	byID     map[string]*model.Borrower
	byUserID map[string]*model.Borrower
}

func (f *fakeBorrowerRepo) FindByUserID(ctx context.Context, userID string) (*model.Borrower, error) {
	return f.byUserID[userID], nil
}

func (f *fakeBorrowerRepo) FindByID(ctx context.Context, id string) (*model.Borrower, error) {
	return f.byID[id], nil
}

type fakeDocumentRepo struct {
	mu      sync.Mutex
	created []*model.BorrowerDocument
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *model.BorrowerDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, doc)
	return nil
}

func (f *fakeDocumentRepo) ListByBorrowerID(ctx context.Context, borrowerID string) ([]*model.BorrowerDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []*model.BorrowerDocument
	for _, d := range f.created {
		if d.BorrowerID == borrowerID {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (f *fakeDocumentRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}
