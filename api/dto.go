package api

import (
	"errors"
	"sort"
	"time"

	"giftboard/models"
	"giftboard/service"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers, matching what the front end sends
	decimal.MarshalJSONWithoutQuotes = true
}

// SendGiftRequest is the body of POST /api/competitors/send-gift
type SendGiftRequest struct {
	CompetitorID   string          `json:"competitorId"`
	GiftType       string          `json:"giftType"`
	GiftIcon       string          `json:"giftIcon"`
	GiftCost       decimal.Decimal `json:"giftCost"`
	GiftedByUserID string          `json:"giftedByUserId"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}

func (r *SendGiftRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CompetitorID, validation.Required),
		validation.Field(&r.GiftType, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.GiftIcon, validation.Length(0, 64)),
		validation.Field(&r.GiftCost, validation.By(positiveAmount)),
		validation.Field(&r.GiftedByUserID, validation.Required),
		validation.Field(&r.IdempotencyKey, validation.Length(0, 128)),
	)
}

// UpdateCompetitorRequest is the body of PATCH /api/competitors
type UpdateCompetitorRequest struct {
	CompetitorID      string  `json:"competitorId"`
	SurpriseHorseName *string `json:"surpriseHorseName"`
	ActiveHorse       *string `json:"activeHorse"`
}

func (r *UpdateCompetitorRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CompetitorID, validation.Required),
		validation.Field(&r.SurpriseHorseName, validation.Length(0, 100)),
		validation.Field(&r.ActiveHorse, validation.In(string(models.ActiveHorseMain), string(models.ActiveHorseSurprise))),
	)
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be an amount")
	}
	if !amount.IsPositive() {
		return errors.New("must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return errors.New("must have at most two decimal places")
	}
	return nil
}

// toValidationError flattens ozzo field errors into the service error the error writer understands.
// The alphabetically first field is reported.
func toValidationError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &service.ValidationError{Field: "body", Message: err.Error()}
	}

	fields := make([]string, 0, len(fieldErrs))
	for field := range fieldErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return &service.ValidationError{Field: fields[0], Message: fieldErrs[fields[0]].Error()}
}

type userResponse struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Email   string           `json:"email"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

type competitorResponse struct {
	ID                string               `json:"id"`
	CompetitionID     string               `json:"competitionId"`
	Name              string               `json:"name"`
	HorseName         string               `json:"horseName"`
	SurpriseHorseName *string              `json:"surpriseHorseName"`
	ActiveHorse       models.ActiveHorse   `json:"activeHorse"`
	Image             string               `json:"image"`
	TotalGifts        decimal.Decimal      `json:"totalGifts"`
	Gifts             []models.GiftSummary `json:"gifts"`
}

func newCompetitorResponse(c *models.Competitor) competitorResponse {
	return competitorResponse{
		ID:                c.ID,
		CompetitionID:     c.CompetitionID,
		Name:              c.Name,
		HorseName:         c.DisplayHorseName(),
		SurpriseHorseName: c.SurpriseHorseName,
		ActiveHorse:       c.ActiveHorse,
		Image:             c.Image,
		TotalGifts:        c.TotalGiftValue(),
		Gifts:             service.SummarizeGifts(c.Gifts),
	}
}

type competitorsResponse struct {
	Competitors []models.CompetitorView `json:"competitors"`
}

type updateCompetitorResponse struct {
	Success    bool               `json:"success"`
	Competitor competitorResponse `json:"competitor"`
}

type sendGiftResponse struct {
	Success        bool               `json:"success"`
	OperationID    string             `json:"operationId"`
	Replayed       bool               `json:"replayed,omitempty"`
	Competitor     competitorResponse `json:"competitor"`
	User           userResponse       `json:"user"`
	DeductedAmount decimal.Decimal    `json:"deductedAmount"`
	NewBalance     decimal.Decimal    `json:"newBalance"`
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
	User    userResponse    `json:"user"`
}

type historyEntryResponse struct {
	ID              int64                  `json:"id"`
	BalanceBefore   decimal.Decimal        `json:"balanceBefore"`
	BalanceAfter    decimal.Decimal        `json:"balanceAfter"`
	ChangeAmount    decimal.Decimal        `json:"changeAmount"`
	TransactionType models.TransactionType `json:"transactionType"`
	Metadata        map[string]any         `json:"metadata"`
	RelatedID       *string                `json:"relatedId,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

type historyResponse struct {
	History []historyEntryResponse `json:"history"`
}

type errorResponse struct {
	Success        bool              `json:"success"`
	Error          string            `json:"error"`
	Code           service.ErrorKind `json:"code"`
	Field          string            `json:"field,omitempty"`
	CurrentBalance string            `json:"currentBalance,omitempty"`
	RequiredAmount string            `json:"requiredAmount,omitempty"`
	Shortfall      string            `json:"shortfall,omitempty"`
	OperationID    string            `json:"operationId,omitempty"`
	RefundedAmount string            `json:"refundedAmount,omitempty"`
}
