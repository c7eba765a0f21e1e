package api

import (
	"context"
	"net/http"
	"net/url"

	"vcar-client/internal/domain"
)

// GetVehicleHandoverByContractID returns (nil, nil) when the contract has no
// handover record yet.
func (c *Client) GetVehicleHandoverByContractID(ctx context.Context, contractID string) (*domain.VehicleHandover, error) {
	var handover domain.VehicleHandover
	_, err := c.do(ctx, request{
		op:     "GetVehicleHandoverByContractID",
		method: http.MethodGet,
		path:   "/vehicle-handovers/rental-contract/" + url.PathEscape(contractID),
	}, &handover)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if handover.ID == "" {
		return nil, nil
	}
	return &handover, nil
}

func (c *Client) CreateVehicleHandover(ctx context.Context, req domain.HandoverRequest) (*domain.VehicleHandover, error) {
	return c.handoverCall(ctx, request{
		op:     "CreateVehicleHandover",
		method: http.MethodPost,
		path:   "/vehicle-handovers",
		body:   req,
	})
}

func (c *Client) LesseeApproveHandover(ctx context.Context, payload domain.SignaturePayload, handoverID string) (*domain.VehicleHandover, error) {
	return c.handoverCall(ctx, request{
		op:     "LesseeApproveHandover",
		method: http.MethodPut,
		path:   "/vehicle-handovers/" + url.PathEscape(handoverID) + "/lessee-approve",
		body:   payload,
	})
}

func (c *Client) ReturnVehicle(ctx context.Context, handoverID string, req domain.ReturnRequest) (*domain.VehicleHandover, error) {
	return c.handoverCall(ctx, request{
		op:     "ReturnVehicle",
		method: http.MethodPut,
		path:   "/vehicle-handovers/" + url.PathEscape(handoverID) + "/return",
		body:   req,
	})
}

func (c *Client) LessorApproveReturn(ctx context.Context, payload domain.SignaturePayload, handoverID string) (*domain.VehicleHandover, error) {
	return c.handoverCall(ctx, request{
		op:     "LessorApproveReturn",
		method: http.MethodPut,
		path:   "/vehicle-handovers/" + url.PathEscape(handoverID) + "/lessor-approve",
		body:   payload,
	})
}

func (c *Client) handoverCall(ctx context.Context, r request) (*domain.VehicleHandover, error) {
	var handover domain.VehicleHandover
	if _, err := c.do(ctx, r, &handover); err != nil {
		return nil, err
	}
	return &handover, nil
}
