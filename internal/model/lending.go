// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"time"
)

// VerificationStatus は借り手の本人確認状態を表す。
type VerificationStatus string

const (
	// VerificationNotStarted は本人確認が未着手の状態。
	VerificationNotStarted VerificationStatus = "not_started"
	// VerificationPending は審査待ちの状態。
	VerificationPending VerificationStatus = "pending"
	// VerificationVerified は本人確認済みの状態。
	VerificationVerified VerificationStatus = "verified"
	// VerificationRejected は本人確認が却下された状態。
	VerificationRejected VerificationStatus = "rejected"
)

// Borrower は借り手レコードを表す。user_idでIdentityと紐づく。
type Borrower struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	FirstName          string             `json:"first_name"`
	LastName           string             `json:"last_name"`
	Email              string             `json:"email"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Lender は貸し手レコードを表す。
type Lender struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CompanyName string    `json:"company_name"`
	Email       string    `json:"email"`
	Tier        string    `json:"tier"`
	CreatedAt   time.Time `json:"created_at"`
}

// Subscription は貸し手の有料プラン契約を表す。
type Subscription struct {
	ID               string     `json:"id"`
	LenderID         string     `json:"lender_id"`
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// BorrowerDocument は借り手がアップロードした書類のメタデータを表す。
// ファイル本体はストレージバケットにあり、ここではパスのみ保持する。
type BorrowerDocument struct {
	ID              string          `json:"id"`
	BorrowerID      string          `json:"borrower_id"`
	DocumentType    string          `json:"document_type"`
	FileName        string          `json:"file_name"`
	FilePath        string          `json:"file_path"`
	FileSize        int64           `json:"file_size"`
	MimeType        string          `json:"mime_type"`
	ExifData        json.RawMessage `json:"exif_data"`
	MissingExifData bool            `json:"missing_exif_data"`
	RiskScore       int             `json:"risk_score"`
	RiskFlags       []string        `json:"risk_flags"`
	UploadedBy      *string         `json:"uploaded_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BorrowerInvite は貸し手から借り手への招待リクエストを表す。
type BorrowerInvite struct {
	LenderID  string
	Email     string
	FirstName string
	LastName  string
	Message   string
}
