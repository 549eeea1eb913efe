package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
	"github.com/ignatzorin/design-orders-backend/internal/usecase/designorder"
)

type CreateDesignOrderRequest struct {
	SellerID         string          `json:"seller_id" binding:"required,uuid"`
	Title            string          `json:"title" binding:"required,max=200"`
	Brief            string          `json:"brief" binding:"max=5000"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency" binding:"omitempty,len=3"`
	SellerTier       string          `json:"seller_tier" binding:"max=32"`
	RevisionsAllowed int             `json:"revisions_allowed" binding:"gte=0"`
	DeliveryDays     int             `json:"delivery_days" binding:"gte=0,lte=365"`
}

type DeliverRequest struct {
	Files   []string `json:"files" binding:"max=50"`
	Message string   `json:"message" binding:"max=5000"`
}

type RevisionRequest struct {
	Note string `json:"note" binding:"max=5000"`
}

type AcceptRequest struct {
	Confirm bool `json:"confirm"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

type DesignOrderResponse struct {
	ID                 uuid.UUID  `json:"id"`
	BuyerID            uuid.UUID  `json:"buyer_id"`
	SellerID           uuid.UUID  `json:"seller_id"`
	Title              string     `json:"title"`
	Brief              string     `json:"brief"`
	Amount             string     `json:"amount"`
	Currency           string     `json:"currency"`
	Status             string     `json:"status"`
	SellerTier         string     `json:"seller_tier,omitempty"`
	RevisionsAllowed   int        `json:"revisions_allowed"`
	RevisionsUsed      int        `json:"revisions_used"`
	RemainingRevisions int        `json:"remaining_revisions"`
	RevisionsLow       bool       `json:"revisions_low"`
	Deadline           *time.Time `json:"deadline"`
	DeadlineStatus     string     `json:"deadline_status"`
	LastDeliveredAt    *time.Time `json:"last_delivered_at"`
	AcceptedAt         *time.Time `json:"accepted_at"`
	EscrowReleaseAt    *time.Time `json:"escrow_release_at"`
	EscrowMatured      bool       `json:"escrow_matured"`
	CompletedAt        *time.Time `json:"completed_at"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	DisputedAt         *time.Time `json:"disputed_at"`
	Version            int64      `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func ToDesignOrderResponse(v designorder.View) DesignOrderResponse {
	o := v.Order
	return DesignOrderResponse{
		ID:                 o.ID,
		BuyerID:            o.BuyerID,
		SellerID:           o.SellerID,
		Title:              o.Title,
		Brief:              o.Brief,
		Amount:             o.Amount.Amount.StringFixed(2),
		Currency:           o.Amount.Currency,
		Status:             string(o.Status),
		SellerTier:         o.SellerTier,
		RevisionsAllowed:   o.RevisionsAllowed,
		RevisionsUsed:      o.RevisionsUsed,
		RemainingRevisions: v.RemainingRevisions,
		RevisionsLow:       v.RevisionsLow,
		Deadline:           o.Deadline,
		DeadlineStatus:     string(v.DeadlineStatus),
		LastDeliveredAt:    o.LastDeliveredAt,
		AcceptedAt:         o.AcceptedAt,
		EscrowReleaseAt:    o.EscrowReleaseAt,
		EscrowMatured:      v.EscrowMatured,
		CompletedAt:        o.CompletedAt,
		CancelledAt:        o.CancelledAt,
		DisputedAt:         o.DisputedAt,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func ToDesignOrderResponses(views []designorder.View) []DesignOrderResponse {
	result := make([]DesignOrderResponse, 0, len(views))
	for _, v := range views {
		result = append(result, ToDesignOrderResponse(v))
	}
	return result
}

type HistoryEntryResponse struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    *uuid.UUID      `json:"actor_id"`
	Action     string          `json:"action"`
	FromStatus string          `json:"from_status"`
	ToStatus   string          `json:"to_status"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

func ToHistoryResponses(entries []entity.HistoryEntry) []HistoryEntryResponse {
	result := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, HistoryEntryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Action:     string(e.Action),
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			Payload:    e.Payload,
			CreatedAt:  e.CreatedAt,
		})
	}
	return result
}

type DeliverableFileResponse struct {
	ID        uuid.UUID `json:"id"`
	Path      string    `json:"path"`
	MIMEType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func ToDeliverableFileResponse(f entity.DeliverableFile) DeliverableFileResponse {
	return DeliverableFileResponse{
		ID:        f.ID,
		Path:      f.Path,
		MIMEType:  f.MIMEType,
		Size:      f.Size,
		CreatedAt: f.CreatedAt,
	}
}

func ToDeliverableFileResponses(files []entity.DeliverableFile) []DeliverableFileResponse {
	result := make([]DeliverableFileResponse, 0, len(files))
	for _, f := range files {
		result = append(result, ToDeliverableFileResponse(f))
	}
	return result
}
