package panel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

const statusSuccess = "success"

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e envelope) ok() bool {
	return e.Status == statusSuccess
}

// flexInt accepts JSON numbers, numeric strings and null. PHP panels often
// return numeric columns as strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s, null := scalar(b)
	if null {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < math.MinInt64 || n >= math.MaxInt64 {
		return fmt.Errorf("invalid integer %s", b)
	}
	*f = flexInt(int64(n))
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s, null := scalar(b)
	if null {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Errorf("invalid number %s", b)
	}
	*f = flexFloat(n)
	return nil
}

func scalar(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", true
	}
	s := string(bytes.Trim(b, `"`))
	return s, s == ""
}

type planDTO struct {
	ID           flexInt `json:"id"`
	Name         string  `json:"name"`
	VolumeMB     flexInt `json:"volume_mb"`
	DurationDays flexInt `json:"duration_days"`
	Price        flexInt `json:"price"`
	Status       string  `json:"status"`
}

func (p planDTO) toDomain() domain.Plan {
	return domain.Plan{
		ID:           int64(p.ID),
		Name:         p.Name,
		VolumeMB:     int64(p.VolumeMB),
		DurationDays: int64(p.DurationDays),
		Price:        int64(p.Price),
		Status:       domain.PlanStatus(p.Status),
	}
}

type userDTO struct {
	Username        string    `json:"username"`
	PlanID          flexInt   `json:"plan_id"`
	UsedVolume      flexFloat `json:"used_volume"`
	RemainingVolume flexFloat `json:"remaining_volume"`
	RemainingDays   flexInt   `json:"remaining_days"`
	ExpiryDate      string    `json:"expiry_date"`
	Status          string    `json:"status"`
}

func (u userDTO) toDomain() domain.AccountStatus {
	return domain.AccountStatus{
		Username:          u.Username,
		PlanID:            int64(u.PlanID),
		UsedVolumeMB:      float64(u.UsedVolume),
		RemainingVolumeMB: float64(u.RemainingVolume),
		RemainingDays:     int64(u.RemainingDays),
		ExpiryDate:        u.ExpiryDate,
		Status:            u.Status,
	}
}

type createUserRequest struct {
	Username     string  `json:"username"`
	Password     string  `json:"password"`
	PlanID       int64   `json:"plan_id"`
	MultiUser    int     `json:"multi_user"`
	VisitStatus  *string `json:"visit_status"`
	MultiAccount int     `json:"multi_account"`
	Status       string  `json:"status"`
	Options      *string `json:"options"`
}

// decodeList decodes an envelope data array; null yields an empty list.
func decodeList[T any](data json.RawMessage) ([]T, error) {
	var out []T
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
