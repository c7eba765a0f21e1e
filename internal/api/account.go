package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"vcar-client/internal/domain"
)

type LoginResult struct {
	User         domain.User
	AccessToken  string
	RefreshToken string
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var data struct {
		domain.User
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	_, err := c.do(ctx, request{
		op:        "Login",
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      map[string]string{"email": email, "password": password},
		anonymous: true,
	}, &data)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: data.User, AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}, nil
}

// GetCurrentUser fetches the full profile, including identity documents used
// to fill contract templates.
func (c *Client) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, request{op: "GetCurrentUser", method: http.MethodGet, path: "/users/me"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateReview(ctx context.Context, req domain.ReviewRequest) (*domain.Review, error) {
	var review domain.Review
	if _, err := c.do(ctx, request{op: "CreateReview", method: http.MethodPost, path: "/reviews", body: req}, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (c *Client) ListNotifications(ctx context.Context, page, size int) (*Page[domain.Notification], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	q.Set("sortBy", "createdAt")
	q.Set("sortDir", "desc")

	var items []domain.Notification
	meta, err := c.do(ctx, request{op: "ListNotifications", method: http.MethodGet, path: "/notifications", query: q}, &items)
	if err != nil {
		return nil, err
	}
	p := &Page[domain.Notification]{Items: items}
	if meta != nil {
		p.Meta = *meta
	}
	return p, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{
		op:     "MarkNotificationRead",
		method: http.MethodPut,
		path:   "/notifications/" + url.PathEscape(id) + "/markAsRead",
	}, nil)
	return err
}

// UploadSignature uploads a handwritten signature image for a contract and
// returns its public URL.
func (c *Client) UploadSignature(ctx context.Context, contractID, filename string, image []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("rental_contract_id", contractID); err != nil {
		return "", fmt.Errorf("UploadSignature: %w", err)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("UploadSignature: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("UploadSignature: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadSignature: %w", err)
	}

	var imageURL string
	_, err = c.do(ctx, request{
		op:          "UploadSignature",
		method:      http.MethodPost,
		path:        "/files/signatures",
		rawBody:     &buf,
		contentType: w.FormDataContentType(),
	}, &imageURL)
	if err != nil {
		return "", err
	}
	return imageURL, nil
}
