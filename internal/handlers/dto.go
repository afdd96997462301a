package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"icarus/internal/models"
)

// UserDTO is the public shape of a user; the password hash never leaves the server.
type UserDTO struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	ProteinGoal string `json:"proteinGoal"`
	CreatedAt   string `json:"createdAt"`
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		ProteinGoal: u.ProteinGoal,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

// flexString accepts either a JSON string or a JSON number and keeps the raw text,
// so "25", 25 and 25.5 all reach the validator unchanged.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case b[0] == '{' || b[0] == '[':
		return errors.New("expected a string or number")
	default:
		*f = flexString(b)
	}
	return nil
}

type entryRequest struct {
	MealName      string     `json:"mealName"`
	ProteinAmount flexString `json:"proteinAmount"`
	Time          string     `json:"time"`
}
