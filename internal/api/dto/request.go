package dto

import (
	"time"

	"pickup-request-service/internal/domain"
)

type CreateRequestRequest struct {
	Address       string   `json:"address"`
	City          string   `json:"city"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	RequestedDate string   `json:"requested_date"`
	TimeWindow    string   `json:"time_window"`
	Notes         string   `json:"notes"`
	Zone          string   `json:"zone"`
}

func (in CreateRequestRequest) ToDomain(userID int64) domain.NewRequest {
	return domain.NewRequest{
		UserID: userID,
		Address: domain.Address{
			FullAddress: in.Address,
			City:        in.City,
			Lat:         in.Lat,
			Lon:         in.Lon,
		},
		RequestedDate: in.RequestedDate,
		TimeWindow:    domain.TimeWindow(in.TimeWindow),
		Notes:         in.Notes,
		Zone:          in.Zone,
	}
}

type AssignRequest struct {
	CollectorID int64 `json:"collector_id"`
}

type ConfirmRequest struct {
	Code string `json:"code"`
}

// RequestResponse never carries the confirmation code.
type RequestResponse struct {
	ID            int64      `json:"id"`
	TrackingCode  string     `json:"tracking_code"`
	UserID        int64      `json:"user_id"`
	CollectorID   *int64     `json:"collector_id"`
	WaybillID     *int64     `json:"waybill_id"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	RequestedDate string     `json:"requested_date"`
	TimeWindow    string     `json:"time_window"`
	Notes         string     `json:"notes"`
	Zone          string     `json:"zone"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	AssignedAt    *time.Time `json:"assigned_at"`
	InTransitAt   *time.Time `json:"in_transit_at"`
	DeliveredAt   *time.Time `json:"delivered_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
}

func FromRequest(r *domain.Request) RequestResponse {
	return RequestResponse{
		ID:            r.ID,
		TrackingCode:  r.TrackingCode,
		UserID:        r.UserID,
		CollectorID:   r.CollectorID,
		WaybillID:     r.WaybillID,
		Address:       r.FullAddress,
		City:          r.City,
		RequestedDate: r.RequestedDate,
		TimeWindow:    string(r.TimeWindow),
		Notes:         r.Notes,
		Zone:          r.Zone,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		AssignedAt:    r.AssignedAt,
		InTransitAt:   r.InTransitAt,
		DeliveredAt:   r.DeliveredAt,
		ConfirmedAt:   r.ConfirmedAt,
		CancelledAt:   r.CancelledAt,
	}
}

type ListRequestsResponse struct {
	Requests []RequestResponse `json:"requests"`
}

func FromRequests(rs []*domain.Request) ListRequestsResponse {
	res := ListRequestsResponse{Requests: make([]RequestResponse, 0, len(rs))}
	for _, r := range rs {
		res.Requests = append(res.Requests, FromRequest(r))
	}
	return res
}

type CreateWaybillRequest struct {
	Carrier       string  `json:"carrier"`
	Description   string  `json:"description"`
	DeclaredValue float64 `json:"declared_value"`
	WeightKg      float64 `json:"weight_kg"`
}

type WaybillResponse struct {
	ID             int64     `json:"id"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	Description    string    `json:"description"`
	DeclaredValue  float64   `json:"declared_value"`
	WeightKg       float64   `json:"weight_kg"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func FromWaybill(w *domain.Waybill) WaybillResponse {
	return WaybillResponse{
		ID:             w.ID,
		TrackingNumber: w.TrackingNumber,
		Carrier:        w.Carrier,
		Description:    w.Description,
		DeclaredValue:  w.DeclaredValue,
		WeightKg:       w.WeightKg,
		Status:         string(w.Status),
		CreatedAt:      w.CreatedAt,
	}
}

type TrackingResponse struct {
	TrackingCode  string    `json:"tracking_code"`
	Status        string    `json:"status"`
	Zone          string    `json:"zone,omitempty"`
	RequestedDate string    `json:"requested_date,omitempty"`
	TimeWindow    string    `json:"time_window,omitempty"`
	City          string    `json:"city,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
	Source        string    `json:"source"`
}

func FromTracking(v *domain.TrackingView) TrackingResponse {
	return TrackingResponse{
		TrackingCode:  v.TrackingCode,
		Status:        string(v.Status),
		Zone:          v.Zone,
		RequestedDate: v.RequestedDate,
		TimeWindow:    string(v.TimeWindow),
		City:          v.City,
		UpdatedAt:     v.UpdatedAt,
		Source:        v.Source,
	}
}

type StatusCountResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type ZoneSummaryResponse struct {
	Zone   string                `json:"zone"`
	Counts []StatusCountResponse `json:"counts"`
}
