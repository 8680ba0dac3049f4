package api

import (
	"time"

	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
)

// User is an account as reported by the server.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful sign-in.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type eventUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Date        *string `json:"date,omitempty"`
}

type eventResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	MediaIDs    []string  `json:"mediaIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (r eventResponse) toModel() (*models.Event, error) {
	d, err := time.Parse(common.DateLayout, r.Date)
	if err != nil {
		return nil, err
	}
	return &models.Event{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Date:        d,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

// LinkInput references an externally hosted file.
type LinkInput struct {
	EventID  string `json:"eventId"`
	Type     string `json:"type"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type mediaResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"eventId"`
	Type        string    `json:"type"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// toModel maps server media onto a local record; the server id becomes the
// remote id.
func (r mediaResponse) toModel() *models.Media {
	return &models.Media{
		RemoteID:    r.ID,
		EventID:     r.EventID,
		Type:        models.MediaType(r.Type),
		Filename:    r.Filename,
		URL:         r.URL,
		ContentType: r.ContentType,
		Size:        r.Size,
		CreatedAt:   r.CreatedAt,
	}
}

// ExportRequest selects the document format and content.
type ExportRequest struct {
	Format           string `json:"format"`
	Title            string `json:"title"`
	IncludeImages    bool   `json:"includeImages"`
	IncludeDocuments bool   `json:"includeDocuments"`
}

// ExportFile is a rendered timeline document.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
