package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"vcar-client/internal/domain"
)

func (c *Client) GetContractByID(ctx context.Context, id string) (*domain.Contract, error) {
	var contract domain.Contract
	_, err := c.do(ctx, request{
		op:     "GetContractByID",
		method: http.MethodGet,
		path:   "/rental-contracts/" + url.PathEscape(id),
	}, &contract)
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (c *Client) ListLesseeContracts(ctx context.Context, params domain.ContractListParams) (*Page[domain.Contract], error) {
	return c.listContracts(ctx, "ListLesseeContracts", "/rental-contracts/lessee", params)
}

func (c *Client) ListLessorContracts(ctx context.Context, params domain.ContractListParams) (*Page[domain.Contract], error) {
	return c.listContracts(ctx, "ListLessorContracts", "/rental-contracts/lessor", params)
}

func (c *Client) listContracts(ctx context.Context, op, path string, params domain.ContractListParams) (*Page[domain.Contract], error) {
	if params.Size <= 0 {
		params.Size = 10
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("size", strconv.Itoa(params.Size))
	q.Set("sortDescending", strconv.FormatBool(params.SortDescending))

	var items []domain.Contract
	meta, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: q}, &items)
	if err != nil {
		return nil, err
	}
	page := &Page[domain.Contract]{Items: items}
	if meta != nil {
		page.Meta = *meta
	}
	return page, nil
}

// SignContract submits the lessee's signature and returns the payment URL
// the server answers with.
func (c *Client) SignContract(ctx context.Context, id string, payload domain.SignaturePayload) (string, error) {
	var paymentURL string
	_, err := c.do(ctx, request{
		op:     "SignContract",
		method: http.MethodPost,
		path:   "/rental-contracts/" + url.PathEscape(id) + "/sign",
		body:   payload,
	}, &paymentURL)
	if err != nil {
		return "", err
	}
	return paymentURL, nil
}
