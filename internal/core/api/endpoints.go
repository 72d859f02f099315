package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/neilberkman/eqviz/internal/core/models"
)

// LoginResponse is returned by the token endpoint
type LoginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// RegisterRequest creates an account
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// ChangePasswordRequest changes the password of the logged-in user
type ChangePasswordRequest struct {
	OldPassword  string `json:"old_password"`
	NewPassword1 string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

// Artifact is a downloaded binary file
type Artifact struct {
	ContentType string
	Data        []byte
}

func (g *Gateway) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := g.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   "/login/",
		JSON:   map[string]string{"username": username, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &Error{Kind: KindServer, Message: "login response carried no token"}
	}
	return &out, nil
}

func (g *Gateway) Register(ctx context.Context, req RegisterRequest) error {
	return g.DoJSON(ctx, Request{Method: http.MethodPost, Path: "/register/", JSON: req}, nil)
}

func (g *Gateway) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return g.DoJSON(ctx, Request{Method: http.MethodPut, Path: "/change-password/", JSON: req}, nil)
}

// UploadFile posts file as multipart field "file" and returns the analyzed dataset
func (g *Gateway) UploadFile(ctx context.Context, file models.PendingFile, onProgress ProgressFunc) (*models.Dataset, error) {
	var ds models.Dataset
	err := g.DoJSON(ctx, Request{
		Method:     http.MethodPost,
		Path:       "/upload/",
		Upload:     &Upload{Field: "file", Filename: file.Name, Content: file.Content},
		OnProgress: onProgress,
	}, &ds)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// History lists previous uploads, newest first, at most models.HistoryLimit
func (g *Gateway) History(ctx context.Context) ([]models.HistoryRecord, error) {
	var records []models.HistoryRecord
	if err := g.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/history/"}, &records); err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadedAt.After(records[j].UploadedAt)
	})
	if len(records) > models.HistoryLimit {
		records = records[:models.HistoryLimit]
	}
	return records, nil
}

func (g *Gateway) Dataset(ctx context.Context, id int64) (*models.Dataset, error) {
	var ds models.Dataset
	if err := g.DoJSON(ctx, Request{Method: http.MethodGet, Path: fmt.Sprintf("/datasets/%d/", id)}, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Report downloads the PDF report for dataset id
func (g *Gateway) Report(ctx context.Context, id int64) (*Artifact, error) {
	resp, err := g.Do(ctx, Request{Method: http.MethodGet, Path: fmt.Sprintf("/datasets/%d/report/", id)})
	if err != nil {
		return nil, err
	}
	return &Artifact{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        resp.Body,
	}, nil
}

// ReportFilename is the name a report for dataset id is saved under
func ReportFilename(id int64) string {
	return fmt.Sprintf("report_%d.pdf", id)
}
