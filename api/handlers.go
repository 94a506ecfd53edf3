package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"giftboard/models"
	"giftboard/service"
)

const maxBodyBytes = 1 << 20

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler serves the competitor, gift and balance endpoints
type Handler struct {
	ledger      service.LedgerService
	gifts       service.GiftService
	leaderboard service.LeaderboardService
	competitors service.CompetitorService
	health      HealthChecker
}

// NewHandler creates a new HTTP handler
func NewHandler(
	ledger service.LedgerService,
	gifts service.GiftService,
	leaderboard service.LeaderboardService,
	competitors service.CompetitorService,
	health HealthChecker,
) *Handler {
	return &Handler{
		ledger:      ledger,
		gifts:       gifts,
		leaderboard: leaderboard,
		competitors: competitors,
		health:      health,
	}
}

// ListCompetitors handles GET /api/competitors?competitionId=
func (h *Handler) ListCompetitors(w http.ResponseWriter, r *http.Request) {
	competitionID := strings.TrimSpace(r.URL.Query().Get("competitionId"))
	if competitionID == "" {
		writeError(w, r, &service.ValidationError{Field: "competitionId", Message: "is required"})
		return
	}

	views, err := h.leaderboard.ListRanked(r.Context(), competitionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, competitorsResponse{Competitors: views})
}

// UpdateCompetitor handles PATCH /api/competitors
func (h *Handler) UpdateCompetitor(w http.ResponseWriter, r *http.Request) {
	var req UpdateCompetitorRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, toValidationError(err))
		return
	}

	update := service.UpdateCompetitorRequest{
		CompetitorID:      req.CompetitorID,
		SurpriseHorseName: req.SurpriseHorseName,
		ActorID:           subjectFromContext(r.Context()),
	}
	if req.ActiveHorse != nil {
		activeHorse := models.ActiveHorse(*req.ActiveHorse)
		update.ActiveHorse = &activeHorse
	}

	competitor, err := h.competitors.UpdateCompetitor(r.Context(), update)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updateCompetitorResponse{
		Success:    true,
		Competitor: newCompetitorResponse(competitor),
	})
}

// SendGift handles POST /api/competitors/send-gift
func (h *Handler) SendGift(w http.ResponseWriter, r *http.Request) {
	var req SendGiftRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		req.IdempotencyKey = key
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, toValidationError(err))
		return
	}

	if subject := subjectFromContext(r.Context()); subject != "" && subject != req.GiftedByUserID {
		writeError(w, r, &service.ForbiddenError{
			Reason:  service.ForbiddenNotOwner,
			Message: "gifts can only be sent from the authenticated user's balance",
		})
		return
	}

	result, err := h.gifts.SendGift(r.Context(), service.SendGiftRequest{
		CompetitorID:   req.CompetitorID,
		GiftType:       req.GiftType,
		GiftIcon:       req.GiftIcon,
		GiftCost:       req.GiftCost,
		SenderID:       req.GiftedByUserID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	newBalance := result.NewBalance
	writeJSON(w, http.StatusOK, sendGiftResponse{
		Success:     true,
		OperationID: result.OperationID,
		Replayed:    result.Replayed,
		Competitor:  newCompetitorResponse(result.Competitor),
		User: userResponse{
			ID:      result.Sender.ID,
			Name:    result.Sender.Name,
			Email:   result.Sender.Email,
			Balance: &newBalance,
		},
		DeductedAmount: result.DeductedAmount,
		NewBalance:     result.NewBalance,
	})
}

// GetBalance handles GET /api/user/balance?userId=
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, r, &service.ValidationError{Field: "userId", Message: "is required"})
		return
	}

	user, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		Balance: user.Balance,
		User: userResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
	})
}

// GetBalanceHistory handles GET /api/user/balance/history?userId=&limit=
func (h *Handler) GetBalanceHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := strings.TrimSpace(query.Get("userId"))
	if userID == "" {
		writeError(w, r, &service.ValidationError{Field: "userId", Message: "is required"})
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, r, &service.ValidationError{Field: "limit", Message: "must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	history, err := h.ledger.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries := make([]historyEntryResponse, 0, len(history))
	for _, entry := range history {
		entries = append(entries, historyEntryResponse{
			ID:              entry.ID,
			BalanceBefore:   entry.BalanceBefore,
			BalanceAfter:    entry.BalanceAfter,
			ChangeAmount:    entry.ChangeAmount,
			TransactionType: entry.TransactionType,
			Metadata:        entry.TransactionMetadata,
			RelatedID:       entry.RelatedID,
			CreatedAt:       entry.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, historyResponse{History: entries})
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody reads a JSON request body into dst
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &service.ValidationError{Field: "body", Message: "is required"}
		}
		return &service.ValidationError{Field: "body", Message: "must be valid JSON"}
	}
	return nil
}
