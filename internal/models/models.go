package models

import "time"

type ImageStatus string

const (
	ImagePending  ImageStatus = "pending"
	ImageApproved ImageStatus = "approved"
	ImageRejected ImageStatus = "rejected"
)

type User struct {
	ID                int64
	Name              string
	Email             string
	PasswordHash      string
	Verified          bool
	VerificationToken *string
	IsModerator       bool
	IsAdmin           bool
	Banned            bool
	BanReason         *string
	BannedBy          *int64
	BannedAt          *time.Time
	Bio               string
	Picture           string
	Website           string
	Twitter           string
	Instagram         string
	Theme             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Image struct {
	ID              int64
	Title           string
	Description     string
	Filename        string
	Status          ImageStatus
	OwnerID         int64
	ReviewedBy      *int64
	RejectionReason *string
	IsPublic        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Album struct {
	ID           int64
	Title        string
	Description  string
	CoverImageID *int64
	OwnerID      int64
	IsPublic     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AlbumImage struct {
	AlbumID int64
	ImageID int64
	AddedAt time.Time
}

// ModerationStats counts pending images plus decisions made during the
// current calendar day.
type ModerationStats struct {
	Pending       int `json:"pending"`
	ApprovedToday int `json:"approved_today"`
	RejectedToday int `json:"rejected_today"`
}

// ProfileUpdate carries the owner-editable user fields.
type ProfileUpdate struct {
	Name      string
	Bio       string
	Picture   string
	Website   string
	Twitter   string
	Instagram string
	Theme     string
}
