package models

import "time"

type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	ProteinGoal  string    `db:"protein_goal" json:"proteinGoal"` // integer as string, "0" means no goal
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Entry is one logged meal. Entries are only ever inserted or deleted, never updated.
type Entry struct {
	ID            string    `db:"id" json:"_id"`
	UserID        int       `db:"user_id" json:"-"`
	MealName      string    `db:"meal_name" json:"mealName"` // Encrypted in DB when a key is configured
	ProteinAmount float64   `db:"protein_amount" json:"proteinAmount"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
